package postgres

import (
	"context"

	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/jackc/pgx/v5"
)

type SubmissionsRepo struct {
	s *Store
}

// Upsert relies on the (user_id, question_id) unique index. On conflict only
// link and updated_at change; xmax = 0 tells a fresh insert from an update.
func (r *SubmissionsRepo) Upsert(ctx context.Context, sub submission.Submission) (submission.Submission, bool, error) {
	var (
		out      submission.Submission
		inserted bool
	)

	err := r.s.observe("submissions.upsert", func() error {
		return r.s.q.QueryRow(ctx, `
			INSERT INTO submissions (id, user_id, question_id, link, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (user_id, question_id)
			DO UPDATE SET link = EXCLUDED.link, updated_at = EXCLUDED.updated_at
			RETURNING id, user_id, question_id, link, created_at, updated_at, (xmax = 0)
		`, sub.ID, sub.UserID, sub.QuestionID, sub.Link, sub.CreatedAt, sub.UpdatedAt).Scan(
			&out.ID, &out.UserID, &out.QuestionID, &out.Link, &out.CreatedAt, &out.UpdatedAt, &inserted,
		)
	})
	if err != nil {
		return submission.Submission{}, false, err
	}

	return out, inserted, nil
}

func (r *SubmissionsRepo) ListByUser(ctx context.Context, userID string) ([]submission.Submission, error) {
	var rows pgx.Rows

	err := r.s.observe("submissions.list_by_user", func() error {
		var err error
		rows, err = r.s.q.Query(ctx, `
			SELECT id, user_id, question_id, link, created_at, updated_at
			FROM submissions
			WHERE user_id = $1
			ORDER BY created_at ASC
		`, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]submission.Submission, 0)
	for rows.Next() {
		var s submission.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.QuestionID, &s.Link, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *SubmissionsRepo) count(ctx context.Context, op, sql string, args ...any) (int, error) {
	var n int
	err := r.s.observe(op, func() error {
		return r.s.q.QueryRow(ctx, sql, args...).Scan(&n)
	})
	return n, err
}

// CountMandatory ignores the question's active flag on purpose: retired
// questions keep counting toward the quota.
func (r *SubmissionsRepo) CountMandatory(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, "submissions.count_mandatory", `
		SELECT COUNT(*)
		FROM submissions s
		JOIN questions q ON q.id = s.question_id
		WHERE s.user_id = $1 AND q.type = 'MANDATORY'
	`, userID)
}

func (r *SubmissionsRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	return r.count(ctx, "submissions.count_by_user", `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID)
}

func (r *SubmissionsRepo) CountAll(ctx context.Context) (int, error) {
	return r.count(ctx, "submissions.count_all", `SELECT COUNT(*) FROM submissions`)
}

func (r *SubmissionsRepo) CountPerUser(ctx context.Context) (map[string]int, error) {
	var rows pgx.Rows

	err := r.s.observe("submissions.count_per_user", func() error {
		var err error
		rows, err = r.s.q.Query(ctx, `SELECT user_id, COUNT(*) FROM submissions GROUP BY user_id`)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			userID string
			n      int
		)
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, err
		}
		out[userID] = n
	}

	return out, rows.Err()
}
