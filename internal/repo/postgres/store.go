package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoTx = errors.New("row lock requires a transaction")

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements service.Store on Postgres. A Store returned inside
// WithTx routes every query through the same pgx.Tx.
type Store struct {
	pool *pgxpool.Pool
	prom *observability.Prom
	q    querier
	tx   pgx.Tx
}

var _ service.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, prom *observability.Prom) *Store {
	return &Store{pool: pool, prom: prom, q: pool}
}

func (s *Store) Users() service.UserStore             { return &UsersRepo{s} }
func (s *Store) Questions() service.QuestionStore     { return &QuestionsRepo{s} }
func (s *Store) Submissions() service.SubmissionStore { return &SubmissionsRepo{s} }
func (s *Store) Invitations() service.InvitationStore { return &InvitationsRepo{s} }
func (s *Store) Jobs() service.JobStore               { return &JobsRepo{s} }

// JobQueue exposes the worker-side claim and completion methods.
func (s *Store) JobQueue() *JobsRepo { return &JobsRepo{s} }

func (s *Store) RefreshTokens() *RefreshTokensRepo { return &RefreshTokensRepo{s} }

func (s *Store) Deliveries() *NotificationDeliveriesRepo { return &NotificationDeliveriesRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx service.Store) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) withTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err = fn(&Store{pool: s.pool, prom: s.prom, q: tx, tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) observe(op string, fn func() error) error {
	if s.prom != nil {
		return s.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
