package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/jobs"
)

// Exports queues ranking exports for the worker.
type Exports struct {
	store Store
	options
}

func NewExports(store Store, opts ...Option) *Exports {
	return &Exports{store: store, options: buildOptions(opts)}
}

func (e *Exports) Enqueue(ctx context.Context, p Principal, requestID string) (job.Job, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return job.Job{}, err
	}

	now := e.now()
	raw, err := jobs.Encode(jobs.TypeExportApplicantsCSV, jobs.ExportApplicantsCSVPayload{
		RequestedBy: p.UserID,
		RequestedAt: now,
		RequestID:   requestID,
	})
	if err != nil {
		return job.Job{}, err
	}

	userID := p.UserID
	j, err := e.store.Jobs().Create(ctx, job.CreateRequest{
		Type:        jobs.TypeExportApplicantsCSV,
		Payload:     raw,
		RunAt:       now,
		MaxAttempts: 5,
		UserID:      &userID,
	})
	if err != nil {
		return job.Job{}, fmt.Errorf("enqueue export: %w", err)
	}

	return j, nil
}

func (e *Exports) Status(ctx context.Context, p Principal, id string) (job.Job, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return job.Job{}, err
	}

	j, err := e.store.Jobs().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, fmt.Errorf("load job: %w", err)
	}

	if j.Type != jobs.TypeExportApplicantsCSV {
		return job.Job{}, ErrJobNotFound
	}

	return j, nil
}
