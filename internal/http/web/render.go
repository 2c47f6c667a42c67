package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"lower": func(v any) string { return strings.ToLower(fmt.Sprint(v)) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
	"dict": dict,
}

// dict builds a map from alternating keys and values for nested templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// renderStatus executes a page with the common layout data: the signed-in
// principal, the CSRF token and any pending flashes (which are consumed).
func (h *Handler) renderStatus(c *gin.Context, status int, name string, data gin.H) {
	sess := currentSession(c)

	if data == nil {
		data = gin.H{}
	}
	data["Principal"] = sess.Principal()
	data["CSRF"] = sess.CSRFToken
	data["CSRFField"] = csrfField

	if flashes := sess.PopFlashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
		if err := h.sessions.Save(c.Request.Context(), *sess); err != nil {
			h.log.WarnContext(c.Request.Context(), "save session", slog.Any("err", err))
		}
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	if err := h.tmpl.ExecuteTemplate(c.Writer, name, data); err != nil {
		h.log.ErrorContext(c.Request.Context(), "render page", slog.String("template", name), slog.Any("err", err))
	}
}

func (h *Handler) render(c *gin.Context, name string, data gin.H) {
	h.renderStatus(c, http.StatusOK, name, data)
}

// redirect saves the session (flashes included) and answers 303.
func (h *Handler) redirect(c *gin.Context, location string) {
	if err := h.persist(c, currentSession(c)); err != nil {
		h.log.ErrorContext(c.Request.Context(), "save session", slog.Any("err", err))
	}
	c.Redirect(http.StatusSeeOther, location)
}
