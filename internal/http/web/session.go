package web

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/http/middlewares"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookie = "applyhub_session"
	ctxSession    = "web.session"
	csrfField     = "csrf_token"
)

// loadSession attaches the browser's session, starting a new anonymous one
// when the cookie is missing or stale.
func (h *Handler) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess session.Session

		id, _ := c.Cookie(sessionCookie)
		existing, err := h.sessions.Get(c.Request.Context(), id)
		switch {
		case err == nil:
			sess = existing
		case errors.Is(err, session.ErrNotFound):
			sess, err = session.New(h.now())
			if err == nil {
				err = h.persist(c, &sess)
			}
			if err != nil {
				h.log.ErrorContext(c.Request.Context(), "start session", slog.Any("err", err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		default:
			h.log.ErrorContext(c.Request.Context(), "load session", slog.Any("err", err))
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		c.Set(ctxSession, &sess)
		if p := sess.Principal(); p.Authenticated() {
			middlewares.SetPrincipal(c, p)
		}

		c.Next()
	}
}

// verifyCSRF checks the synchronizer token on every form post.
func (h *Handler) verifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		sess := currentSession(c)
		got := c.PostForm(csrfField)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(sess.CSRFToken)) != 1 {
			h.log.WarnContext(c.Request.Context(), "csrf token mismatch", slog.String("path", c.Request.URL.Path))
			h.renderStatus(c, http.StatusForbidden, "error.html", gin.H{"Message": "Your form expired. Please go back and try again."})
			c.Abort()
			return
		}

		c.Next()
	}
}

// requireRole runs the shared Authorize predicate against the session.
func (h *Handler) requireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := currentSession(c)

		err := service.Authorize(sess.Principal(), role)
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, service.ErrUnauthorized):
			sess.AddFlash(session.FlashInfo, "Please log in to continue.")
			h.redirect(c, "/login")
			c.Abort()
		default:
			sess.AddFlash(session.FlashError, "You do not have access to that page.")
			h.redirect(c, homeFor(sess.Role))
			c.Abort()
		}
	}
}

func currentSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(ctxSession); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return &session.Session{}
}

// persist saves sess and refreshes the cookie.
func (h *Handler) persist(c *gin.Context, sess *session.Session) error {
	if err := h.sessions.Save(c.Request.Context(), *sess); err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, int(h.cfg.SessionTTL.Seconds()), "/", "", h.cfg.SecureCookies, true)
	return nil
}

// signIn replaces the anonymous session with a fresh one bound to p, so a
// session id seen before login is useless afterwards.
func (h *Handler) signIn(c *gin.Context, p service.Principal) (*session.Session, error) {
	old := currentSession(c)
	if old.ID != "" {
		if err := h.sessions.Delete(c.Request.Context(), old.ID); err != nil {
			h.log.WarnContext(c.Request.Context(), "drop pre-login session", slog.Any("err", err))
		}
	}

	fresh, err := session.New(h.now())
	if err != nil {
		return nil, err
	}
	fresh.SignIn(p)

	c.Set(ctxSession, &fresh)
	middlewares.SetPrincipal(c, p)
	return &fresh, nil
}
