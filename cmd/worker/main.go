package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/applyhub/internal/config"
	"github.com/geocoder89/applyhub/internal/db"
	"github.com/geocoder89/applyhub/internal/notifications"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/repo/postgres"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/geocoder89/applyhub/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, cfg.LogLevel).With(slog.String("component", "worker"))

	if err := run(cfg, log); err != nil {
		log.Error("worker stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if err := os.MkdirAll(cfg.ExportDir, 0o750); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	store := postgres.NewStore(pool, prom)
	opts := []service.Option{service.WithLogger(log)}

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{
			Timeout:          3 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 1,
		},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:      workerID,
		PollInterval:  cfg.WorkerPollInterval,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
		ExportDir:     cfg.ExportDir,
	}, worker.Deps{
		Jobs:          store.JobQueue(),
		Deliveries:    store.Deliveries(),
		Notifier:      notifier,
		Accounts:      service.NewAccounts(store, security.NewHasher(), opts...),
		Ranking:       service.NewRanking(store, opts...),
		RefreshTokens: store.RefreshTokens(),
		Log:           log,
		Prom:          prom,
	})

	health := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(pool),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("worker health server starting", slog.Int("port", cfg.WorkerHealthPort))
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", slog.Any("err", err))
		}
	}()

	runErr := w.Run(ctx)

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	if err := health.Shutdown(sctx); err != nil {
		log.Warn("health server shutdown", slog.Any("err", err))
	}

	log.Info("worker shutdown complete")
	return runErr
}
