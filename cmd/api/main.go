package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/db"
	httpx "github.com/geocoder89/applyhub/internal/http"
	"github.com/geocoder89/applyhub/internal/http/handlers"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/redisclient"
	"github.com/geocoder89/applyhub/internal/repo/postgres"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, "applyhub-api", cfg.Env, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, scancel := config.WithTimeout(5 * time.Second)
		defer scancel()
		_ = shutdownTracer(sctx)
	}()

	pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(pool); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	store := postgres.NewStore(pool, prom)

	if err := db.EnsureAdminUser(ctx, store, cfg, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	checks := map[string]handlers.Check{"postgres": pool.Ping}

	var sessions session.Store
	switch cfg.SessionStore {
	case "memory":
		mem := session.NewMemoryStore(cfg.SessionTTL)
		sessions = mem
		go sweepSessions(mem, cfg.SessionTTL)
	default:
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		sessions = session.NewRedisStore(rdb.Raw(), cfg.SessionTTL)
		checks["redis"] = rdb.Ping
	}

	router, err := httpx.NewRouter(httpx.RouterDeps{
		Config:        cfg,
		Log:           log,
		Store:         store,
		Credentials:   security.NewHasher(),
		RefreshTokens: store.RefreshTokens(),
		Sessions:      sessions,
		JWT:           auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL),
		Prom:          prom,
		Gatherer:      prometheus.DefaultGatherer,
		Checks:        checks,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.Env), slog.String("sessions", cfg.SessionStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	sctx, scancel := config.WithTimeout(10 * time.Second)
	defer scancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// sweepSessions drops expired in-memory sessions; it runs for the process lifetime.
func sweepSessions(store *session.MemoryStore, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		store.Sweep()
	}
}
