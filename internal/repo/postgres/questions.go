package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type QuestionsRepo struct {
	s *Store
}

const questionColumns = `id, title, link, type, difficulty, active, created_at, updated_at`

func scanQuestion(row pgx.Row) (question.Question, error) {
	var q question.Question
	var typ, difficulty string

	err := row.Scan(&q.ID, &q.Title, &q.Link, &typ, &difficulty, &q.Active, &q.CreatedAt, &q.UpdatedAt)
	q.Type = question.Type(typ)
	q.Difficulty = question.Difficulty(difficulty)
	return q, err
}

func (r *QuestionsRepo) Create(ctx context.Context, q question.Question) error {
	return r.s.observe("questions.create", func() error {
		_, err := r.s.q.Exec(ctx, `
			INSERT INTO questions (id, title, link, type, difficulty, active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, q.ID, q.Title, q.Link, string(q.Type), string(q.Difficulty), q.Active, q.CreatedAt, q.UpdatedAt)
		return err
	})
}

func (r *QuestionsRepo) Get(ctx context.Context, id string) (question.Question, error) {
	var q question.Question

	err := r.s.observe("questions.get", func() error {
		var err error
		q, err = scanQuestion(r.s.q.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Question{}, question.ErrNotFound
		}
		return question.Question{}, err
	}
	return q, nil
}

func (r *QuestionsRepo) Update(ctx context.Context, q question.Question) error {
	var tag pgconn.CommandTag

	err := r.s.observe("questions.update", func() error {
		var err error
		tag, err = r.s.q.Exec(ctx, `
			UPDATE questions
			SET title = $2, link = $3, type = $4, difficulty = $5, active = $6, updated_at = $7
			WHERE id = $1
		`, q.ID, q.Title, q.Link, string(q.Type), string(q.Difficulty), q.Active, q.UpdatedAt)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return question.ErrNotFound
	}
	return nil
}

func (r *QuestionsRepo) List(ctx context.Context, includeInactive bool) ([]question.Question, error) {
	var rows pgx.Rows

	err := r.s.observe("questions.list", func() error {
		var err error
		rows, err = r.s.q.Query(ctx, `
			SELECT `+questionColumns+`
			FROM questions
			WHERE active OR $1
			ORDER BY created_at ASC, id ASC
		`, includeInactive)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]question.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}

	return out, rows.Err()
}
