package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/delivery"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/notifications"
	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/service"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type DeliveriesRepository interface {
	TryStart(ctx context.Context, kind delivery.Kind, subjectID, jobID, recipient string) error
	MarkSent(ctx context.Context, kind delivery.Kind, subjectID string, providerMessageID *string) error
	MarkFailed(ctx context.Context, kind delivery.Kind, subjectID, errMsg string) error
}

type RefreshTokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrincipalResolver reloads the identity an export was requested by.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (service.Principal, error)
}

type RankingExporter interface {
	Export(ctx context.Context, p service.Principal, w io.Writer) error
}

type Config struct {
	WorkerID      string
	PollInterval  time.Duration
	Concurrency   int
	ShutdownGrace time.Duration
	JobTimeout    time.Duration
	LockTTL       time.Duration
	PurgeInterval time.Duration
	ExportDir     string
}

type Deps struct {
	Jobs          JobsRepository
	Deliveries    DeliveriesRepository
	Notifier      notifications.Notifier
	Accounts      PrincipalResolver
	Ranking       RankingExporter
	RefreshTokens RefreshTokenPurger
	Log           *slog.Logger
	Prom          *observability.Prom
	Now           func() time.Time
}

type Worker struct {
	cfg  Config
	deps Deps

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, deps Deps) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = time.Hour
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Worker{cfg: cfg, deps: deps}
}

// Run polls for jobs on Concurrency goroutines until ctx is cancelled, then
// waits up to ShutdownGrace for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.deps.Log.Info("worker started",
		slog.String("worker_id", w.cfg.WorkerID),
		slog.Int("concurrency", w.cfg.Concurrency),
	)

	// jobs get their own context so a shutdown signal does not cut them mid-write
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, jobCtx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.housekeeping(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)
	w.deps.Log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.deps.Log.Warn("shutdown grace elapsed, cancelling in-flight jobs")
		cancelJobs()
		<-done
	}

	return nil
}

func (w *Worker) loop(ctx, jobCtx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}

		processed, err := w.ProcessOne(jobCtx)
		if err != nil {
			w.deps.Log.Error("process job", slog.Int("slot", slot), slog.Any("err", err))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

func (w *Worker) housekeeping(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep requeues jobs abandoned by crashed workers and drops dead refresh tokens.
func (w *Worker) sweep(ctx context.Context) {
	n, err := w.deps.Jobs.RequeueStaleProcessing(ctx, w.cfg.LockTTL)
	if err != nil {
		w.deps.Log.Error("requeue stale jobs", slog.Any("err", err))
	} else if n > 0 {
		w.deps.Log.Warn("requeued stale jobs", slog.Int64("count", n))
	}

	if w.deps.RefreshTokens == nil {
		return
	}
	purged, err := w.deps.RefreshTokens.PurgeExpired(ctx, w.deps.Now())
	if err != nil {
		w.deps.Log.Error("purge refresh tokens", slog.Any("err", err))
		return
	}
	if purged > 0 {
		w.deps.Log.Info("purged refresh tokens", slog.Int64("count", purged))
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
