package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/idx"
)

type Accounts struct {
	store Store
	creds Credentials
	options
}

func NewAccounts(store Store, creds Credentials, opts ...Option) *Accounts {
	return &Accounts{store: store, creds: creds, options: buildOptions(opts)}
}

// Login verifies an email and password pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (a *Accounts) Login(ctx context.Context, email, password string) (user.User, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return user.User{}, ErrInvalidCredentials
	}

	u, err := a.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := a.creds.Compare(u.PasswordHash, password); err != nil {
		a.log.InfoContext(ctx, "login failed", slog.String("user_id", u.ID))
		return user.User{}, ErrInvalidCredentials
	}

	return u, nil
}

func (a *Accounts) Profile(ctx context.Context, p Principal) (user.User, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return user.User{}, err
	}
	return loadUser(ctx, a.store, p.UserID)
}

// Principal resolves a stored user into a principal, so work that runs
// outside a request (worker jobs) is authorized against current data.
func (a *Accounts) Principal(ctx context.Context, userID string) (Principal, error) {
	u, err := loadUser(ctx, a.store, userID)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalFor(u), nil
}

// Promote grants ADMIN to an existing account. Only the maintenance CLI calls it.
func (a *Accounts) Promote(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)
	if email == "" {
		return &ValidationError{Fields: map[string]string{"email": "is required"}}
	}

	if err := a.store.Users().SetRole(ctx, email, user.RoleAdmin, a.now()); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set role: %w", err)
	}

	a.log.InfoContext(ctx, "user promoted", slog.String("email", email))
	return nil
}

// EnsureAdmin creates the configured admin account when it does not exist yet.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	_, err := a.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("load admin: %w", err)
	}

	hash, err := a.creds.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	now := a.now()
	u := user.User{
		ID:           idx.NewAt(now),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := a.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	a.log.InfoContext(ctx, "admin seeded", slog.String("email", email))
	return true, nil
}
