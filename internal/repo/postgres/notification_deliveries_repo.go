package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/delivery"
	"github.com/jackc/pgx/v5"
)

type NotificationDeliveriesRepo struct {
	s *Store
}

// TryStart claims the delivery of (kind, subjectID) for jobID. It returns
// delivery.ErrAlreadySent or delivery.ErrInProgress when another attempt owns it.
func (r *NotificationDeliveriesRepo) TryStart(ctx context.Context, kind delivery.Kind, subjectID, jobID, recipient string) error {
	// 1) insert if missing
	var inserted bool
	err := r.s.observe("deliveries.try_start.insert", func() error {
		tag, err := r.s.q.Exec(ctx, `
			INSERT INTO notification_deliveries (kind, subject_id, job_id, recipient, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
			ON CONFLICT (kind, subject_id) DO NOTHING
		`, string(kind), subjectID, jobID, recipient)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return err
	}
	if inserted {
		return nil
	}

	// 2) row exists; a failed attempt can be claimed again, atomically
	var claimed bool
	err = r.s.observe("deliveries.try_start.reclaim", func() error {
		tag, err := r.s.q.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'sending',
			    job_id = $3,
			    recipient = $4,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE kind = $1 AND subject_id = $2 AND status = 'failed'
		`, string(kind), subjectID, jobID, recipient)
		if err != nil {
			return err
		}
		claimed = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return err
	}
	if claimed {
		return nil
	}

	// 3) already sent or still sending
	var (
		status string
		sentAt *time.Time
	)
	err = r.s.observe("deliveries.try_start.status", func() error {
		return r.s.q.QueryRow(ctx, `
			SELECT status, sent_at
			FROM notification_deliveries
			WHERE kind = $1 AND subject_id = $2
		`, string(kind), subjectID).Scan(&status, &sentAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if sentAt != nil || delivery.Status(status) == delivery.StatusSent {
		return delivery.ErrAlreadySent
	}
	return delivery.ErrInProgress
}

func (r *NotificationDeliveriesRepo) MarkSent(ctx context.Context, kind delivery.Kind, subjectID string, providerMessageID *string) error {
	return r.s.observe("deliveries.mark_sent", func() error {
		_, err := r.s.q.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'sent',
			    sent_at = NOW(),
			    provider_message_id = $3,
			    last_error = NULL,
			    updated_at = NOW()
			WHERE kind = $1 AND subject_id = $2
		`, string(kind), subjectID, providerMessageID)
		return err
	})
}

func (r *NotificationDeliveriesRepo) MarkFailed(ctx context.Context, kind delivery.Kind, subjectID, errMsg string) error {
	return r.s.observe("deliveries.mark_failed", func() error {
		_, err := r.s.q.Exec(ctx, `
			UPDATE notification_deliveries
			SET status = 'failed',
			    last_error = $3,
			    updated_at = NOW()
			WHERE kind = $1 AND subject_id = $2
		`, string(kind), subjectID, errMsg)
		return err
	})
}
