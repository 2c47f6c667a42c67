package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
)

type usersRepo struct{ s *Store }

func (r usersRepo) emailOwner(email string) (string, bool) {
	if r.s.tx != nil {
		for id, u := range r.s.tx.users {
			if u.Email == email {
				return id, true
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.data.emails[email]
	return id, ok
}

func (r usersRepo) Create(_ context.Context, u user.User) error {
	if owner, ok := r.emailOwner(u.Email); ok && owner != u.ID {
		return user.ErrEmailTaken
	}

	c := newChanges()
	c.users[u.ID] = u
	return r.s.write(c)
}

func (r usersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := r.s.getUser(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	id, ok := r.emailOwner(email)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u, ok := r.s.getUser(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) SetFinalized(ctx context.Context, id string, at time.Time) (bool, error) {
	if r.s.tx == nil {
		var changed bool
		err := r.s.WithTx(ctx, func(tx service.Store) error {
			var err error
			changed, err = tx.Users().SetFinalized(ctx, id, at)
			return err
		})
		return changed, err
	}

	if err := r.s.lockRow(ctx, "user:"+id); err != nil {
		return false, err
	}

	u, ok := r.s.getUser(id)
	if !ok {
		return false, user.ErrNotFound
	}
	if u.Finalized {
		return false, nil
	}

	u.Finalized = true
	u.FinalizedAt = &at
	u.UpdatedAt = at

	c := newChanges()
	c.users[id] = u
	return true, r.s.write(c)
}

func (r usersRepo) SetRole(ctx context.Context, email string, role user.Role, at time.Time) error {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	u.Role = role
	u.UpdatedAt = at

	c := newChanges()
	c.users[u.ID] = u
	return r.s.write(c)
}

func (r usersRepo) ListByRole(_ context.Context, role user.Role) ([]user.User, error) {
	out := make([]user.User, 0)
	for _, u := range r.s.allUsers() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r usersRepo) CountByRole(ctx context.Context, role user.Role) (int, int, error) {
	users, _ := r.ListByRole(ctx, role)

	finalized := 0
	for _, u := range users {
		if u.Finalized {
			finalized++
		}
	}
	return len(users), finalized, nil
}

type questionsRepo struct{ s *Store }

func (r questionsRepo) Create(_ context.Context, q question.Question) error {
	c := newChanges()
	c.questions[q.ID] = q
	return r.s.write(c)
}

func (r questionsRepo) Get(_ context.Context, id string) (question.Question, error) {
	q, ok := r.s.getQuestion(id)
	if !ok {
		return question.Question{}, question.ErrNotFound
	}
	return q, nil
}

func (r questionsRepo) Update(_ context.Context, q question.Question) error {
	if _, ok := r.s.getQuestion(q.ID); !ok {
		return question.ErrNotFound
	}

	c := newChanges()
	c.questions[q.ID] = q
	return r.s.write(c)
}

func (r questionsRepo) List(_ context.Context, includeInactive bool) ([]question.Question, error) {
	out := make([]question.Question, 0)
	for _, q := range r.s.allQuestions() {
		if q.Active || includeInactive {
			out = append(out, q)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type submissionsRepo struct{ s *Store }

func (r submissionsRepo) Upsert(ctx context.Context, sub submission.Submission) (submission.Submission, bool, error) {
	if r.s.tx == nil {
		var (
			saved   submission.Submission
			created bool
		)
		err := r.s.WithTx(ctx, func(tx service.Store) error {
			var err error
			saved, created, err = tx.Submissions().Upsert(ctx, sub)
			return err
		})
		return saved, created, err
	}

	key := subKey{userID: sub.UserID, questionID: sub.QuestionID}
	if err := r.s.lockRow(ctx, "submission:"+key.userID+":"+key.questionID); err != nil {
		return submission.Submission{}, false, err
	}

	created := true
	if cur, ok := r.s.allSubmissions()[key]; ok {
		sub.ID = cur.ID
		sub.CreatedAt = cur.CreatedAt
		created = false
	}

	c := newChanges()
	c.submissions[key] = sub
	if err := r.s.write(c); err != nil {
		return submission.Submission{}, false, err
	}
	return sub, created, nil
}

func (r submissionsRepo) ListByUser(_ context.Context, userID string) ([]submission.Submission, error) {
	out := make([]submission.Submission, 0)
	for k, sub := range r.s.allSubmissions() {
		if k.userID == userID {
			out = append(out, sub)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r submissionsRepo) CountMandatory(_ context.Context, userID string) (int, error) {
	qs := r.s.allQuestions()

	n := 0
	for k := range r.s.allSubmissions() {
		if k.userID != userID {
			continue
		}
		if q, ok := qs[k.questionID]; ok && q.Type == question.TypeMandatory {
			n++
		}
	}
	return n, nil
}

func (r submissionsRepo) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for k := range r.s.allSubmissions() {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

func (r submissionsRepo) CountPerUser(_ context.Context) (map[string]int, error) {
	out := make(map[string]int)
	for k := range r.s.allSubmissions() {
		out[k.userID]++
	}
	return out, nil
}

func (r submissionsRepo) CountAll(_ context.Context) (int, error) {
	return len(r.s.allSubmissions()), nil
}

type invitationsRepo struct{ s *Store }

func (r invitationsRepo) Lookup(_ context.Context, token string) (invitation.Invitation, error) {
	inv, ok := r.s.getInvitation(token)
	if !ok {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	return inv, nil
}

func (r invitationsRepo) GetForUpdate(ctx context.Context, token string) (invitation.Invitation, error) {
	if err := r.s.lockRow(ctx, "invitation:"+token); err != nil {
		return invitation.Invitation{}, err
	}
	return r.Lookup(ctx, token)
}

func (r invitationsRepo) MarkUsed(ctx context.Context, token string) error {
	inv, err := r.Lookup(ctx, token)
	if err != nil {
		return err
	}

	inv.Used = true

	c := newChanges()
	c.invitations[token] = inv
	return r.s.write(c)
}

func (r invitationsRepo) Create(_ context.Context, inv invitation.Invitation) error {
	if _, ok := r.s.getInvitation(inv.Token); ok {
		return invitation.ErrTokenTaken
	}

	c := newChanges()
	c.invitations[inv.Token] = inv
	c.insertedTokens[inv.Token] = true
	return r.s.write(c)
}

// FindRedeemableByEmail returns the redeemable invitation that expires last.
func (r invitationsRepo) FindRedeemableByEmail(_ context.Context, email string, now time.Time) (invitation.Invitation, error) {
	var (
		best  invitation.Invitation
		found bool
	)

	for _, inv := range r.s.allInvitations() {
		if inv.Email != email || !inv.Redeemable(now) {
			continue
		}
		if !found || inv.ExpiresAt.After(best.ExpiresAt) {
			best, found = inv, true
		}
	}

	if !found {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	return best, nil
}

type jobsRepo struct{ s *Store }

func (r jobsRepo) Create(_ context.Context, req job.CreateRequest) (job.Job, error) {
	if req.IdempotencyKey != nil {
		if _, ok := r.s.jobIDByKey(*req.IdempotencyKey); ok {
			return job.Job{}, job.ErrDuplicateIdempotent
		}
	}

	j := job.New(req, r.s.now())

	c := newChanges()
	c.jobs[j.ID] = j
	if err := r.s.write(c); err != nil {
		return job.Job{}, err
	}
	return j, nil
}

func (r jobsRepo) GetByID(_ context.Context, id string) (job.Job, error) {
	j, ok := r.s.getJob(id)
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, nil
}

func (r jobsRepo) GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error) {
	id, ok := r.s.jobIDByKey(key)
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return r.GetByID(ctx, id)
}
