package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/applyhub/internal/auth"
	"github.com/jackc/pgx/v5"
)

type RefreshTokensRepo struct {
	s *Store
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row auth.RefreshToken) error {
	return r.s.observe("refresh_tokens.create", func() error {
		_, err := r.s.q.Exec(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt)
		return err
	})
}

// Locks the row to prevent concurrent refresh races.
func (r *RefreshTokensRepo) getForUpdate(ctx context.Context, id string) (auth.RefreshToken, error) {
	var row auth.RefreshToken

	err := r.s.observe("refresh_tokens.get_for_update", func() error {
		return r.s.q.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
			FROM refresh_tokens
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&row.ID, &row.UserID, &row.TokenHash, &row.ExpiresAt, &row.RevokedAt, &row.ReplacedBy, &row.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.RefreshToken{}, auth.ErrRefreshNotFound
		}
		return auth.RefreshToken{}, err
	}
	return row, nil
}

// Rotate revokes the presented token and stores next in its place, all
// under the row lock of the old token. It returns the old row.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, id, presentedHash string, next auth.RefreshToken, now time.Time) (auth.RefreshToken, error) {
	var old auth.RefreshToken

	err := r.s.withTx(ctx, func(tx *Store) error {
		repo := tx.RefreshTokens()

		row, err := repo.getForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := row.CheckPresented(presentedHash, now); err != nil {
			return err
		}

		next.UserID = row.UserID
		if err := repo.Create(ctx, next); err != nil {
			return err
		}

		if err := repo.revoke(ctx, row.ID, &next.ID, now); err != nil {
			return err
		}

		old = row
		return nil
	})

	return old, err
}

func (r *RefreshTokensRepo) revoke(ctx context.Context, id string, replacedBy *string, now time.Time) error {
	return r.s.observe("refresh_tokens.revoke", func() error {
		_, err := r.s.q.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = $3, replaced_by = $2
			WHERE id = $1 AND revoked_at IS NULL
		`, id, replacedBy, now)
		return err
	})
}

// Revoke is idempotent.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.revoke(ctx, id, nil, time.Now().UTC())
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.s.observe("refresh_tokens.revoke_all_for_user", func() error {
		_, err := r.s.q.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}

// PurgeExpired deletes tokens that expired or were revoked before cutoff.
func (r *RefreshTokensRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64

	err := r.s.observe("refresh_tokens.purge_expired", func() error {
		tag, err := r.s.q.Exec(ctx, `
			DELETE FROM refresh_tokens
			WHERE expires_at < $1
			   OR (revoked_at IS NOT NULL AND revoked_at < $1)
		`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})

	return n, err
}
