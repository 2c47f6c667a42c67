package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/applyhub/internal/auth"
)

// RefreshTokensRepo mirrors the Postgres refresh token store for the
// in-memory API mode and for handler tests.
type RefreshTokensRepo struct {
	mu   sync.Mutex
	rows map[string]auth.RefreshToken
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{rows: make(map[string]auth.RefreshToken)}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row auth.RefreshToken) error {
	r.mu.Lock()
	r.rows[row.ID] = row
	r.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, id, presentedHash string, next auth.RefreshToken, now time.Time) (auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return auth.RefreshToken{}, auth.ErrRefreshNotFound
	}

	if err := row.CheckPresented(presentedHash, now); err != nil {
		return auth.RefreshToken{}, err
	}

	next.UserID = row.UserID
	r.rows[next.ID] = next

	revoked := row
	revoked.RevokedAt = &now
	revoked.ReplacedBy = &next.ID
	r.rows[id] = revoked

	return row, nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	r.rows[id] = row
	return nil
}

func (r *RefreshTokensRepo) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if row.ExpiresAt.Before(cutoff) || (row.RevokedAt != nil && row.RevokedAt.Before(cutoff)) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}
