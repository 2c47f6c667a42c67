package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/jobs"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

// ProcessOne claims and runs at most one job. The bool reports whether a
// job was claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.deps.Jobs.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("claim job: %w", err)
	}

	w.inFlight(1)
	defer w.inFlight(-1)

	log := w.deps.Log.With(
		slog.String("job_id", j.ID),
		slog.String("job_type", j.Type),
		slog.Int("attempt", j.Attempts+1),
	)

	start := time.Now()
	runCtx, cancelRun := context.WithTimeout(ctx, w.cfg.JobTimeout)
	err = w.execute(runCtx, j)
	cancelRun()

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.deps.Prom.ObserveJob(j.Type, result, time.Since(start))
		log.Warn("job failed", slog.String("result", result), slog.Any("err", err))
		return true, nil
	}

	if err := w.deps.Jobs.MarkDone(ctx, j.ID); err != nil {
		_ = w.deps.Jobs.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, fmt.Errorf("mark job done: %w", err)
	}

	w.deps.Prom.ObserveJob(j.Type, "done", time.Since(start))
	log.Info("job done", slog.Duration("took", time.Since(start)))
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.Decode(j)
	if err != nil {
		return permanent(err)
	}

	switch p := payload.(type) {
	case jobs.ExportApplicantsCSVPayload:
		return w.exportApplicants(ctx, j, p)
	case jobs.FinalizationNoticePayload:
		return w.sendFinalizationNotice(ctx, j, p)
	default:
		return permanent(fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type))
	}
}

// handleFailure either reschedules j with backoff or fails it for good, and
// returns the metric result label.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) string {
	msg := cause.Error()

	var perm permanentError
	if errors.As(cause, &perm) || j.Attempts+1 >= j.MaxAttempts {
		if err := w.deps.Jobs.MarkFailed(ctx, j.ID, msg); err != nil {
			w.deps.Log.Error("mark job failed", slog.String("job_id", j.ID), slog.Any("err", err))
		}
		return "failed"
	}

	runAt := w.deps.Now().Add(ExponentialBackoff(j.Attempts))
	if err := w.deps.Jobs.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.deps.Log.Error("reschedule job", slog.String("job_id", j.ID), slog.Any("err", err))
	}
	return "retry"
}

func (w *Worker) inFlight(delta float64) {
	if w.deps.Prom == nil {
		return
	}
	w.deps.Prom.JobsInFlight.Add(delta)
}
