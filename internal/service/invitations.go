package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/user"
)

const maxCodeAttempts = 10

var ErrCodeSpaceExhausted = errors.New("could not generate a unique invitation code")

type IssueResult struct {
	Invitation invitation.Invitation
	// Existing is true when a still redeemable invitation for the email was returned instead.
	Existing bool
}

// Invitations issues tokens. It is driven by the maintenance CLI, not by
// either HTTP surface.
type Invitations struct {
	store   Store
	newCode func() (string, error)
	options
}

func NewInvitations(store Store, opts ...Option) *Invitations {
	return &Invitations{store: store, newCode: invitation.GenerateCode, options: buildOptions(opts)}
}

func (s *Invitations) Issue(ctx context.Context, email string, validFor time.Duration) (IssueResult, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return IssueResult{}, &ValidationError{Fields: map[string]string{"email": "must be a valid email address"}}
	}
	email = user.NormalizeEmail(addr.Address)

	if validFor <= 0 {
		validFor = invitation.DefaultValidFor
	}

	now := s.now()

	existing, err := s.store.Invitations().FindRedeemableByEmail(ctx, email, now)
	if err == nil {
		return IssueResult{Invitation: existing, Existing: true}, nil
	}
	if !errors.Is(err, invitation.ErrNotFound) {
		return IssueResult{}, fmt.Errorf("find invitation: %w", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return IssueResult{}, fmt.Errorf("generate code: %w", err)
		}

		inv := invitation.Invitation{
			Token:     code,
			Email:     email,
			ExpiresAt: now.Add(validFor),
			CreatedAt: now,
		}

		err = s.store.Invitations().Create(ctx, inv)
		if err == nil {
			s.log.InfoContext(ctx, "invitation issued", slog.String("email", email), slog.Time("expires_at", inv.ExpiresAt))
			return IssueResult{Invitation: inv}, nil
		}
		if !errors.Is(err, invitation.ErrTokenTaken) {
			return IssueResult{}, fmt.Errorf("create invitation: %w", err)
		}

		s.log.DebugContext(ctx, "invitation code collision", slog.Int("attempt", attempt))
	}

	return IssueResult{}, ErrCodeSpaceExhausted
}
