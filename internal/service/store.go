package service

import (
	"context"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/domain/user"
)

// Store is the persistence boundary. WithTx runs fn inside one unit of work:
// fn's error rolls everything back, nil commits.
type Store interface {
	Users() UserStore
	Questions() QuestionStore
	Submissions() SubmissionStore
	Invitations() InvitationStore
	Jobs() JobStore
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	// SetFinalized reports whether the flag flipped; false means it was already set.
	SetFinalized(ctx context.Context, id string, at time.Time) (bool, error)
	SetRole(ctx context.Context, email string, role user.Role, at time.Time) error
	// ListByRole returns users in creation order.
	ListByRole(ctx context.Context, role user.Role) ([]user.User, error)
	CountByRole(ctx context.Context, role user.Role) (total int, finalized int, err error)
}

type QuestionStore interface {
	Create(ctx context.Context, q question.Question) error
	Get(ctx context.Context, id string) (question.Question, error)
	Update(ctx context.Context, q question.Question) error
	List(ctx context.Context, includeInactive bool) ([]question.Question, error)
}

type SubmissionStore interface {
	// Upsert keys on (user, question). The returned bool is true when a row was inserted.
	Upsert(ctx context.Context, s submission.Submission) (submission.Submission, bool, error)
	ListByUser(ctx context.Context, userID string) ([]submission.Submission, error)
	CountMandatory(ctx context.Context, userID string) (int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountPerUser(ctx context.Context) (map[string]int, error)
	CountAll(ctx context.Context) (int, error)
}

type InvitationStore interface {
	Lookup(ctx context.Context, token string) (invitation.Invitation, error)
	// GetForUpdate takes an exclusive row lock held until the enclosing
	// unit of work ends. It fails outside WithTx.
	GetForUpdate(ctx context.Context, token string) (invitation.Invitation, error)
	MarkUsed(ctx context.Context, token string) error
	Create(ctx context.Context, inv invitation.Invitation) error
	FindRedeemableByEmail(ctx context.Context, email string, now time.Time) (invitation.Invitation, error)
}

type JobStore interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
	GetByID(ctx context.Context, id string) (job.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error)
}

// Credentials is the opaque password hasher and verifier.
type Credentials interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}
