package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type InvitationsRepo struct {
	s *Store
}

const invitationColumns = `token, email, used, expires_at, created_at`

func (r *InvitationsRepo) one(ctx context.Context, op, sql string, args ...any) (invitation.Invitation, error) {
	var inv invitation.Invitation

	err := r.s.observe(op, func() error {
		return r.s.q.QueryRow(ctx, sql, args...).Scan(&inv.Token, &inv.Email, &inv.Used, &inv.ExpiresAt, &inv.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invitation.Invitation{}, invitation.ErrNotFound
		}
		return invitation.Invitation{}, err
	}
	return inv, nil
}

func (r *InvitationsRepo) Lookup(ctx context.Context, token string) (invitation.Invitation, error) {
	return r.one(ctx, "invitations.lookup", `SELECT `+invitationColumns+` FROM invitation_tokens WHERE token = $1`, token)
}

// Locks the row to serialize concurrent redemptions of the same token.
func (r *InvitationsRepo) GetForUpdate(ctx context.Context, token string) (invitation.Invitation, error) {
	if r.s.tx == nil {
		return invitation.Invitation{}, ErrNoTx
	}

	return r.one(ctx, "invitations.get_for_update", `
		SELECT `+invitationColumns+`
		FROM invitation_tokens
		WHERE token = $1
		FOR UPDATE
	`, token)
}

func (r *InvitationsRepo) MarkUsed(ctx context.Context, token string) error {
	var tag pgconn.CommandTag

	err := r.s.observe("invitations.mark_used", func() error {
		var err error
		tag, err = r.s.q.Exec(ctx, `UPDATE invitation_tokens SET used = TRUE WHERE token = $1`, token)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return invitation.ErrNotFound
	}
	return nil
}

func (r *InvitationsRepo) Create(ctx context.Context, inv invitation.Invitation) error {
	err := r.s.observe("invitations.create", func() error {
		_, err := r.s.q.Exec(ctx, `
			INSERT INTO invitation_tokens (token, email, used, expires_at, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, inv.Token, inv.Email, inv.Used, inv.ExpiresAt, inv.CreatedAt)
		return err
	})

	if IsUniqueViolation(err) {
		return invitation.ErrTokenTaken
	}
	return err
}

func (r *InvitationsRepo) FindRedeemableByEmail(ctx context.Context, email string, now time.Time) (invitation.Invitation, error) {
	return r.one(ctx, "invitations.find_redeemable_by_email", `
		SELECT `+invitationColumns+`
		FROM invitation_tokens
		WHERE email = $1 AND used = FALSE AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`, email, now)
}
