package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UsersRepo struct {
	s *Store
}

const userColumns = `id, email, password_hash, name, role, finalized, finalized_at, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&role,
		&u.Finalized,
		&u.FinalizedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	u.Role = user.Role(role)
	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	err := r.s.observe("users.create", func() error {
		_, err := r.s.q.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, name, role, finalized, finalized_at, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.Finalized, u.FinalizedAt, u.CreatedAt, u.UpdatedAt)
		return err
	})

	if IsUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UsersRepo) get(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.s.observe(op, func() error {
		var err error
		u, err = scanUser(r.s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.get(ctx, "users.get_by_id", "id = $1", id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.get(ctx, "users.get_by_email", "email = $1", email)
}

// SetFinalized only flips rows that are not finalized yet, so concurrent
// callers agree on a single winner.
func (r *UsersRepo) SetFinalized(ctx context.Context, id string, at time.Time) (bool, error) {
	var tag pgconn.CommandTag

	err := r.s.observe("users.set_finalized", func() error {
		var err error
		tag, err = r.s.q.Exec(ctx, `
			UPDATE users
			SET finalized = TRUE, finalized_at = $2, updated_at = $2
			WHERE id = $1 AND finalized = FALSE
		`, id, at)
		return err
	})
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *UsersRepo) SetRole(ctx context.Context, email string, role user.Role, at time.Time) error {
	var tag pgconn.CommandTag

	err := r.s.observe("users.set_role", func() error {
		var err error
		tag, err = r.s.q.Exec(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE email = $1`, email, string(role), at)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) ListByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var rows pgx.Rows

	err := r.s.observe("users.list_by_role", func() error {
		var err error
		rows, err = r.s.q.Query(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE role = $1
			ORDER BY created_at ASC, id ASC
		`, string(role))
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}

func (r *UsersRepo) CountByRole(ctx context.Context, role user.Role) (int, int, error) {
	var total, finalized int

	err := r.s.observe("users.count_by_role", func() error {
		return r.s.q.QueryRow(ctx, `
			SELECT COUNT(*), COUNT(*) FILTER (WHERE finalized)
			FROM users
			WHERE role = $1
		`, string(role)).Scan(&total, &finalized)
	})

	return total, finalized, err
}
