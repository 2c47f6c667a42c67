package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/jobs"
)

// RequiredMandatory is the number of mandatory submissions needed to finalize.
const RequiredMandatory = 15

type Progress struct {
	MandatoryCount int  `json:"mandatoryCount"`
	TotalCount     int  `json:"totalCount"`
	Required       int  `json:"required"`
	Remaining      int  `json:"remaining"`
	CanFinalize    bool `json:"canFinalize"`
	Finalized      bool `json:"finalized"`
}

type FinalizeResult struct {
	AlreadyFinalized bool      `json:"alreadyFinalized"`
	FinalizedAt      time.Time `json:"finalizedAt"`
}

type Eligibility struct {
	store Store
	options
}

func NewEligibility(store Store, opts ...Option) *Eligibility {
	return &Eligibility{store: store, options: buildOptions(opts)}
}

func canFinalize(mandatory int) bool {
	return mandatory >= RequiredMandatory
}

// MandatoryCount counts submissions against MANDATORY questions, active or not.
func (e *Eligibility) MandatoryCount(ctx context.Context, p Principal) (int, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return 0, err
	}

	n, err := e.store.Submissions().CountMandatory(ctx, p.UserID)
	if err != nil {
		return 0, fmt.Errorf("count mandatory submissions: %w", err)
	}
	return n, nil
}

func (e *Eligibility) CanFinalize(ctx context.Context, p Principal) (bool, error) {
	n, err := e.MandatoryCount(ctx, p)
	if err != nil {
		return false, err
	}
	return canFinalize(n), nil
}

func (e *Eligibility) Progress(ctx context.Context, p Principal) (Progress, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return Progress{}, err
	}

	u, err := loadUser(ctx, e.store, p.UserID)
	if err != nil {
		return Progress{}, err
	}

	return progressFor(ctx, e.store, u)
}

func progressFor(ctx context.Context, store Store, u user.User) (Progress, error) {
	mandatory, err := store.Submissions().CountMandatory(ctx, u.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("count mandatory submissions: %w", err)
	}

	total, err := store.Submissions().CountByUser(ctx, u.ID)
	if err != nil {
		return Progress{}, fmt.Errorf("count submissions: %w", err)
	}

	return Progress{
		MandatoryCount: mandatory,
		TotalCount:     total,
		Required:       RequiredMandatory,
		Remaining:      max(0, RequiredMandatory-mandatory),
		CanFinalize:    canFinalize(mandatory),
		Finalized:      u.Finalized,
	}, nil
}

// Finalize flips the applicant's finalized flag once the quota is met.
// Calling it again is a successful no-op. The first successful call also
// enqueues the finalization notice in the same unit of work.
func (e *Eligibility) Finalize(ctx context.Context, p Principal) (FinalizeResult, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return FinalizeResult{}, err
	}

	var res FinalizeResult

	err := e.store.WithTx(ctx, func(tx Store) error {
		u, err := loadUser(ctx, tx, p.UserID)
		if err != nil {
			return err
		}

		if u.Finalized {
			res.AlreadyFinalized = true
			if u.FinalizedAt != nil {
				res.FinalizedAt = *u.FinalizedAt
			}
			return nil
		}

		count, err := tx.Submissions().CountMandatory(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("count mandatory submissions: %w", err)
		}

		if !canFinalize(count) {
			return &QuotaNotMetError{Current: count, Required: RequiredMandatory}
		}

		now := e.now()
		changed, err := tx.Users().SetFinalized(ctx, u.ID, now)
		if err != nil {
			return fmt.Errorf("set finalized: %w", err)
		}

		if !changed {
			res.AlreadyFinalized = true
			return nil
		}

		res.FinalizedAt = now
		return enqueueFinalizationNotice(ctx, tx, u, now)
	})
	if err != nil {
		if errors.Is(err, ErrQuotaNotMet) {
			e.log.InfoContext(ctx, "finalize refused", slog.String("user_id", p.UserID), slog.String("reason", err.Error()))
		}
		return FinalizeResult{}, err
	}

	if !res.AlreadyFinalized {
		e.log.InfoContext(ctx, "application finalized", slog.String("user_id", p.UserID))
	}

	return res, nil
}

func enqueueFinalizationNotice(ctx context.Context, tx Store, u user.User, at time.Time) error {
	raw, err := jobs.Encode(jobs.TypeFinalizationNotice, jobs.FinalizationNoticePayload{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.DisplayName(),
		FinalizedAt: at,
	})
	if err != nil {
		return err
	}

	key := "finalize:" + u.ID
	userID := u.ID

	_, err = tx.Jobs().Create(ctx, job.CreateRequest{
		Type:           jobs.TypeFinalizationNotice,
		Payload:        raw,
		RunAt:          at,
		IdempotencyKey: &key,
		UserID:         &userID,
	})
	if err != nil && !errors.Is(err, job.ErrDuplicateIdempotent) {
		return fmt.Errorf("enqueue finalization notice: %w", err)
	}

	return nil
}

func loadUser(ctx context.Context, store Store, id string) (user.User, error) {
	u, err := store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
