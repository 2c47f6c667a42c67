package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/idx"
)

const (
	maxNameLength     = 150
	minPasswordLength = 6
)

type RegisterInput struct {
	Token           string
	Name            string
	Password        string
	PasswordConfirm string
}

func (in RegisterInput) Validate() error {
	errs := fieldErrors{}

	if strings.TrimSpace(in.Token) == "" {
		errs.add("token", "is required")
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		errs.add("name", "is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		errs.add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}

	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		errs.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	if in.Password != in.PasswordConfirm {
		errs.add("passwordConfirm", "passwords do not match")
	}

	return errs.err()
}

// Registration redeems invitation tokens into applicant accounts.
type Registration struct {
	store Store
	creds Credentials
	options
}

func NewRegistration(store Store, creds Credentials, opts ...Option) *Registration {
	return &Registration{store: store, creds: creds, options: buildOptions(opts)}
}

// Lookup returns the invitation behind token if it can still be redeemed.
// The legacy surface uses it to prefill the registration form.
func (r *Registration) Lookup(ctx context.Context, token string) (invitation.Invitation, error) {
	inv, err := r.store.Invitations().Lookup(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, invitation.ErrNotFound) {
			return invitation.Invitation{}, ErrInvalidToken
		}
		return invitation.Invitation{}, fmt.Errorf("lookup invitation: %w", err)
	}

	if err := checkRedeemable(inv, r.now()); err != nil {
		return invitation.Invitation{}, err
	}

	return inv, nil
}

// Redeem creates exactly one APPLICANT account per token. The token row is
// re-read under a row lock inside the unit of work so concurrent redemptions
// serialize and every loser sees ErrTokenAlreadyUsed.
func (r *Registration) Redeem(ctx context.Context, in RegisterInput) (user.User, error) {
	if err := in.Validate(); err != nil {
		return user.User{}, err
	}

	token := strings.TrimSpace(in.Token)
	log := r.log.With(slog.String("op", "registration.redeem"))

	// cheap rejection before taking any lock
	inv, err := r.Lookup(ctx, token)
	if err != nil {
		log.WarnContext(ctx, "invitation rejected before lock", slog.String("reason", err.Error()))
		return user.User{}, err
	}
	log = log.With(slog.String("token_email", inv.Email))

	hash, err := r.creds.Hash(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created user.User

	err = r.store.WithTx(ctx, func(tx Store) error {
		locked, err := tx.Invitations().GetForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, invitation.ErrNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("lock invitation: %w", err)
		}

		now := r.now()
		if err := checkRedeemable(locked, now); err != nil {
			return err
		}

		u := user.User{
			ID:           idx.NewAt(now),
			Email:        user.NormalizeEmail(locked.Email),
			PasswordHash: hash,
			Name:         strings.TrimSpace(in.Name),
			Role:         user.RoleApplicant,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return ErrAccountExists
			}
			return fmt.Errorf("create user: %w", err)
		}

		if err := tx.Invitations().MarkUsed(ctx, token); err != nil {
			return fmt.Errorf("mark invitation used: %w", err)
		}

		created = u
		return nil
	})
	if err != nil {
		log.WarnContext(ctx, "invitation redemption failed", slog.String("reason", err.Error()))
		return user.User{}, err
	}

	log.InfoContext(ctx, "invitation redeemed", slog.String("user_id", created.ID))
	return created, nil
}

func checkRedeemable(inv invitation.Invitation, now time.Time) error {
	if inv.Used {
		return ErrTokenAlreadyUsed
	}
	if inv.Expired(now) {
		return ErrTokenExpired
	}
	return nil
}
