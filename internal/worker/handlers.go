package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/geocoder89/applyhub/internal/domain/delivery"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/jobs"
	"github.com/geocoder89/applyhub/internal/notifications"
	"github.com/geocoder89/applyhub/internal/service"
)

// exportApplicants writes the ranking as CSV. The requester is re-authorized
// at run time so a demoted admin's queued export fails.
func (w *Worker) exportApplicants(ctx context.Context, j job.Job, p jobs.ExportApplicantsCSVPayload) error {
	principal, err := w.deps.Accounts.Principal(ctx, p.RequestedBy)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return permanent(err)
		}
		return err
	}

	if err := os.MkdirAll(w.cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	final := filepath.Join(w.cfg.ExportDir, jobs.ExportFileName(j.ID))
	tmp, err := os.CreateTemp(w.cfg.ExportDir, ".export-*.csv")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.deps.Ranking.Export(ctx, principal, tmp); err != nil {
		_ = tmp.Close()
		if errors.Is(err, service.ErrForbidden) || errors.Is(err, service.ErrUnauthorized) {
			return permanent(err)
		}
		return fmt.Errorf("write export: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("publish export file: %w", err)
	}

	w.deps.Log.InfoContext(ctx, "export written",
		slog.String("job_id", j.ID),
		slog.String("path", final),
		slog.String("request_id", p.RequestID),
	)
	return nil
}

// sendFinalizationNotice delivers at most once per applicant: the delivery
// row is claimed before sending and a sent row short-circuits retries.
func (w *Worker) sendFinalizationNotice(ctx context.Context, j job.Job, p jobs.FinalizationNoticePayload) error {
	kind := delivery.KindFinalizationNotice

	if err := w.deps.Deliveries.TryStart(ctx, kind, p.UserID, j.ID, p.Email); err != nil {
		if errors.Is(err, delivery.ErrAlreadySent) {
			return nil
		}
		return err
	}

	id, err := w.deps.Notifier.SendFinalizationNotice(ctx, notifications.FinalizationNoticeInput{
		UserID:      p.UserID,
		Email:       p.Email,
		Name:        p.Name,
		FinalizedAt: p.FinalizedAt,
	})
	if err != nil {
		if markErr := w.deps.Deliveries.MarkFailed(ctx, kind, p.UserID, err.Error()); markErr != nil {
			w.deps.Log.Error("mark delivery failed", slog.String("user_id", p.UserID), slog.Any("err", markErr))
		}
		return fmt.Errorf("send finalization notice: %w", err)
	}

	var providerID *string
	if id != "" {
		providerID = &id
	}
	if err := w.deps.Deliveries.MarkSent(ctx, kind, p.UserID, providerID); err != nil {
		// the notice went out; retrying would send it twice
		w.deps.Log.Error("mark delivery sent", slog.String("user_id", p.UserID), slog.Any("err", err))
	}
	return nil
}
