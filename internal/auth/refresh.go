package auth

import (
	"errors"
	"time"
)

var (
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrRefreshRevoked  = errors.New("refresh token revoked")
	ErrRefreshExpired  = errors.New("refresh token expired")
	ErrRefreshMismatch = errors.New("refresh token does not match stored hash")
)

// RefreshToken is the persisted side of a refresh credential.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckPresented validates a stored row against the digest of the token the
// client presented.
func (r RefreshToken) CheckPresented(hash string, now time.Time) error {
	if r.RevokedAt != nil {
		return ErrRefreshRevoked
	}
	if !now.Before(r.ExpiresAt) {
		return ErrRefreshExpired
	}
	if r.TokenHash != hash {
		return ErrRefreshMismatch
	}
	return nil
}
