// Package web is the server-rendered, session-cookie surface. It calls the
// same service operations as the JSON API.
package web

import (
	"html/template"
	"log/slog"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Registration *service.Registration
	Accounts     *service.Accounts
	Catalog      *service.Catalog
	Submissions  *service.Submissions
	Eligibility  *service.Eligibility
	Ranking      *service.Ranking
}

type Config struct {
	SessionTTL    time.Duration
	SecureCookies bool
}

type Handler struct {
	svc      Services
	sessions session.Store
	cfg      Config
	tmpl     *template.Template
	log      *slog.Logger
	prom     *observability.Prom
	now      func() time.Time
}

func New(svc Services, sessions session.Store, cfg Config, log *slog.Logger, prom *observability.Prom) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}

	return &Handler{
		svc:      svc,
		sessions: sessions,
		cfg:      cfg,
		tmpl:     tmpl,
		log:      log,
		prom:     prom,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register mounts the pages on r.
func (h *Handler) Register(r gin.IRouter) {
	pages := r.Group("/")
	pages.Use(h.loadSession(), h.verifyCSRF())

	pages.GET("/", h.home)
	pages.GET("/login", h.loginPage)
	pages.POST("/login", h.login)
	pages.GET("/register", h.registerPage)
	pages.POST("/register", h.register)
	pages.POST("/logout", h.logout)

	applicant := pages.Group("/")
	applicant.Use(h.requireRole(user.RoleApplicant))
	applicant.GET("/dashboard", h.dashboard)
	applicant.POST("/questions/:id/submit", h.submit)
	applicant.POST("/finalize", h.finalize)

	admin := pages.Group("/admin")
	admin.Use(h.requireRole(user.RoleAdmin))
	admin.GET("", h.adminDashboard)
	admin.GET("/questions", h.adminQuestions)
	admin.POST("/questions", h.adminCreateQuestion)
	admin.GET("/questions/:id", h.adminEditQuestionPage)
	admin.POST("/questions/:id", h.adminEditQuestion)
	admin.POST("/questions/:id/delete", h.adminDeactivateQuestion)
	admin.GET("/applicants", h.adminApplicants)
	admin.GET("/applicants/export", h.adminExport)
}

func homeFor(role user.Role) string {
	if role == user.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}
