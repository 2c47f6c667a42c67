package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
)

var ErrNoTx = errors.New("row lock requires a transaction")

type subKey struct {
	userID     string
	questionID string
}

// changes is a set of row writes. Outside a transaction each write commits
// as its own one-row change set.
type changes struct {
	users       map[string]user.User
	questions   map[string]question.Question
	submissions map[subKey]submission.Submission
	invitations map[string]invitation.Invitation
	jobs        map[string]job.Job

	insertedTokens map[string]bool
}

func newChanges() *changes {
	return &changes{
		users:       make(map[string]user.User),
		questions:   make(map[string]question.Question),
		submissions: make(map[subKey]submission.Submission),
		invitations: make(map[string]invitation.Invitation),
		jobs:        make(map[string]job.Job),

		insertedTokens: make(map[string]bool),
	}
}

type tables struct {
	changes
	emails  map[string]string // email -> user id
	jobKeys map[string]string // idempotency key -> job id
}

// Store is an in-process implementation of service.Store. It is used by
// tests and by the API when no database is configured.
type Store struct {
	mu    *sync.RWMutex
	data  *tables
	locks *lockTable
	now   func() time.Time

	tx   *changes
	held map[string]bool
}

var _ service.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		mu: &sync.RWMutex{},
		data: &tables{
			changes: *newChanges(),
			emails:  make(map[string]string),
			jobKeys: make(map[string]string),
		},
		locks: newLockTable(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() service.UserStore             { return usersRepo{s} }
func (s *Store) Questions() service.QuestionStore     { return questionsRepo{s} }
func (s *Store) Submissions() service.SubmissionStore { return submissionsRepo{s} }
func (s *Store) Invitations() service.InvitationStore { return invitationsRepo{s} }
func (s *Store) Jobs() service.JobStore               { return jobsRepo{s} }

// WithTx stages writes and applies them atomically when fn returns nil.
// Row locks taken inside fn are released after commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx service.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx := &Store{
		mu:    s.mu,
		data:  s.data,
		locks: s.locks,
		now:   s.now,
		tx:    newChanges(),
		held:  make(map[string]bool),
	}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}

	return s.commit(tx.tx)
}

func (s *Store) lockRow(ctx context.Context, key string) error {
	if s.tx == nil {
		return ErrNoTx
	}
	if s.held[key] {
		return nil
	}
	if err := s.locks.acquire(ctx, key); err != nil {
		return err
	}
	s.held[key] = true
	return nil
}

func (s *Store) releaseAll() {
	for key := range s.held {
		s.locks.release(key)
	}
	s.held = nil
}

func (s *Store) write(c *changes) error {
	if s.tx != nil {
		stage(s.tx, c)
		return nil
	}
	return s.commit(c)
}

func stage(dst, src *changes) {
	for k, v := range src.users {
		dst.users[k] = v
	}
	for k, v := range src.questions {
		dst.questions[k] = v
	}
	for k, v := range src.submissions {
		dst.submissions[k] = v
	}
	for k, v := range src.invitations {
		dst.invitations[k] = v
	}
	for k, v := range src.jobs {
		dst.jobs[k] = v
	}
	for k := range src.insertedTokens {
		dst.insertedTokens[k] = true
	}
}

// commit re-checks unique constraints against committed rows and then
// applies c. Nothing is applied when a check fails.
func (s *Store) commit(c *changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.data

	for id, u := range c.users {
		if owner, ok := d.emails[u.Email]; ok && owner != id {
			return user.ErrEmailTaken
		}
	}
	for token := range c.insertedTokens {
		if _, ok := d.invitations[token]; ok {
			return invitation.ErrTokenTaken
		}
	}
	for id, j := range c.jobs {
		if j.IdempotencyKey == nil {
			continue
		}
		if owner, ok := d.jobKeys[*j.IdempotencyKey]; ok && owner != id {
			return job.ErrDuplicateIdempotent
		}
	}

	for id, u := range c.users {
		if prev, ok := d.users[id]; ok && prev.Email != u.Email {
			delete(d.emails, prev.Email)
		}
		d.users[id] = u
		d.emails[u.Email] = id
	}
	for id, q := range c.questions {
		d.questions[id] = q
	}
	for k, sub := range c.submissions {
		if cur, ok := d.submissions[k]; ok {
			sub.ID = cur.ID
			sub.CreatedAt = cur.CreatedAt
		}
		d.submissions[k] = sub
	}
	for token, inv := range c.invitations {
		d.invitations[token] = inv
	}
	for id, j := range c.jobs {
		d.jobs[id] = j
		if j.IdempotencyKey != nil {
			d.jobKeys[*j.IdempotencyKey] = id
		}
	}

	return nil
}

// view helpers read staged rows first, then committed ones.

func (s *Store) getUser(id string) (user.User, bool) {
	if s.tx != nil {
		if u, ok := s.tx.users[id]; ok {
			return u, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data.users[id]
	return u, ok
}

func (s *Store) allUsers() []user.User {
	s.mu.RLock()
	merged := make(map[string]user.User, len(s.data.users))
	for id, u := range s.data.users {
		merged[id] = u
	}
	s.mu.RUnlock()

	if s.tx != nil {
		for id, u := range s.tx.users {
			merged[id] = u
		}
	}

	out := make([]user.User, 0, len(merged))
	for _, u := range merged {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) getQuestion(id string) (question.Question, bool) {
	if s.tx != nil {
		if q, ok := s.tx.questions[id]; ok {
			return q, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.data.questions[id]
	return q, ok
}

func (s *Store) allQuestions() map[string]question.Question {
	s.mu.RLock()
	merged := make(map[string]question.Question, len(s.data.questions))
	for id, q := range s.data.questions {
		merged[id] = q
	}
	s.mu.RUnlock()

	if s.tx != nil {
		for id, q := range s.tx.questions {
			merged[id] = q
		}
	}
	return merged
}

func (s *Store) allSubmissions() map[subKey]submission.Submission {
	s.mu.RLock()
	merged := make(map[subKey]submission.Submission, len(s.data.submissions))
	for k, sub := range s.data.submissions {
		merged[k] = sub
	}
	s.mu.RUnlock()

	if s.tx != nil {
		for k, sub := range s.tx.submissions {
			if cur, ok := merged[k]; ok {
				sub.ID = cur.ID
				sub.CreatedAt = cur.CreatedAt
			}
			merged[k] = sub
		}
	}
	return merged
}

func (s *Store) getInvitation(token string) (invitation.Invitation, bool) {
	if s.tx != nil {
		if inv, ok := s.tx.invitations[token]; ok {
			return inv, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.data.invitations[token]
	return inv, ok
}

func (s *Store) allInvitations() []invitation.Invitation {
	s.mu.RLock()
	merged := make(map[string]invitation.Invitation, len(s.data.invitations))
	for k, inv := range s.data.invitations {
		merged[k] = inv
	}
	s.mu.RUnlock()

	if s.tx != nil {
		for k, inv := range s.tx.invitations {
			merged[k] = inv
		}
	}

	out := make([]invitation.Invitation, 0, len(merged))
	for _, inv := range merged {
		out = append(out, inv)
	}
	return out
}

func (s *Store) getJob(id string) (job.Job, bool) {
	if s.tx != nil {
		if j, ok := s.tx.jobs[id]; ok {
			return j, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.data.jobs[id]
	return j, ok
}

func (s *Store) jobIDByKey(key string) (string, bool) {
	if s.tx != nil {
		for id, j := range s.tx.jobs {
			if j.IdempotencyKey != nil && *j.IdempotencyKey == key {
				return id, true
			}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.data.jobKeys[key]
	return id, ok
}
