package http

import (
	"log/slog"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/http/handlers"
	"github.com/geocoder89/applyhub/internal/http/middlewares"
	"github.com/geocoder89/applyhub/internal/http/web"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type RouterDeps struct {
	Config config.Config
	Log    *slog.Logger

	Store         service.Store
	Credentials   service.Credentials
	RefreshTokens handlers.RefreshTokenStore
	Sessions      session.Store
	JWT           *auth.Manager

	// Prom and Gatherer may be nil; metrics are then not recorded or served.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// Checks back /readyz, keyed by dependency name.
	Checks map[string]handlers.Check
}

// NewRouter wires both surfaces onto one engine. The JSON API lives under
// /api and the server-rendered pages at the root.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	cfg := deps.Config
	log := deps.Log

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("applyhub-api"))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// services
	opts := []service.Option{service.WithLogger(log)}
	registration := service.NewRegistration(deps.Store, deps.Credentials, opts...)
	accounts := service.NewAccounts(deps.Store, deps.Credentials, opts...)
	catalog := service.NewCatalog(deps.Store, opts...)
	submissions := service.NewSubmissions(deps.Store, opts...)
	eligibility := service.NewEligibility(deps.Store, opts...)
	ranking := service.NewRanking(deps.Store, opts...)
	exports := service.NewExports(deps.Store, opts...)

	secure := cfg.IsProd()

	// handlers
	authHandler := handlers.NewAuthHandler(registration, accounts, deps.JWT, deps.RefreshTokens, deps.Prom, log, secure)
	applicantHandler := handlers.NewApplicantHandler(accounts, catalog, submissions, eligibility, log)
	adminQuestions := handlers.NewAdminQuestionsHandler(catalog, log)
	adminApplicants := handlers.NewAdminApplicantsHandler(ranking, catalog, log)
	exportsHandler := handlers.NewExportsHandler(exports, cfg.ExportDir, log)

	authMW := middlewares.NewAuthMiddleware(deps.JWT)
	authLimiter := middlewares.NewRateLimiter(cfg.AuthRatePerMinute)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	authGroup := api.Group("/auth")
	authGroup.Use(authLimiter.Middleware(middlewares.KeyByIP))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	applicant := api.Group("")
	applicant.Use(authMW.RequireAuth(), middlewares.RequireRole(user.RoleApplicant))
	applicant.GET("/profile", applicantHandler.Profile)
	applicant.GET("/questions", applicantHandler.Questions)
	applicant.POST("/questions/:id/submission", applicantHandler.Submit)
	applicant.POST("/finalize", applicantHandler.Finalize)

	admin := api.Group("/admin")
	admin.Use(authMW.RequireAuth(), middlewares.RequireRole(user.RoleAdmin))
	admin.GET("/questions", adminQuestions.List)
	admin.GET("/questions/:id", adminQuestions.Get)
	admin.POST("/questions", adminQuestions.Create)
	admin.PUT("/questions/:id", adminQuestions.Update)
	admin.DELETE("/questions/:id", adminQuestions.Deactivate)
	admin.GET("/applicants", adminApplicants.List)
	admin.GET("/applicants/export", adminApplicants.Export)
	admin.GET("/stats", adminApplicants.Stats)
	admin.POST("/exports", exportsHandler.Enqueue)
	admin.GET("/exports/:id", exportsHandler.Status)
	admin.GET("/exports/:id/file", exportsHandler.Download)

	// legacy pages
	pages, err := web.New(web.Services{
		Registration: registration,
		Accounts:     accounts,
		Catalog:      catalog,
		Submissions:  submissions,
		Eligibility:  eligibility,
		Ranking:      ranking,
	}, deps.Sessions, web.Config{SessionTTL: cfg.SessionTTL, SecureCookies: secure}, log, deps.Prom)
	if err != nil {
		return nil, err
	}
	pages.Register(r)

	return r, nil
}
