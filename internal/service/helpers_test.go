package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/repo/memory"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *testClock { return &testClock{now: t0} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	clock *testClock
	creds security.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: newClock(),
		creds: security.Hasher{Cost: bcrypt.MinCost},
	}
}

func (f *fixture) opts() []service.Option {
	return []service.Option{service.WithClock(f.clock.Now)}
}

func (f *fixture) applicant(t *testing.T, id, email string) service.Principal {
	t.Helper()
	u := user.User{ID: id, Email: email, Name: id, Role: user.RoleApplicant, CreatedAt: f.clock.Now()}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	f.clock.Advance(time.Second)
	return service.PrincipalFor(u)
}

func (f *fixture) admin(t *testing.T) service.Principal {
	t.Helper()
	u := user.User{ID: "admin", Email: "admin@x.com", Role: user.RoleAdmin, CreatedAt: f.clock.Now()}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return service.PrincipalFor(u)
}

func (f *fixture) question(t *testing.T, id string, typ question.Type, active bool) {
	t.Helper()
	require.NoError(t, f.store.Questions().Create(f.ctx, question.Question{
		ID:         id,
		Title:      "Question " + id,
		Link:       "https://leetcode.com/problems/" + id,
		Type:       typ,
		Difficulty: question.DifficultyEasy,
		Active:     active,
		CreatedAt:  f.clock.Now(),
	}))
}

func (f *fixture) mandatoryQuestions(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%02d", i)
		f.question(t, id, question.TypeMandatory, true)
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) invitation(t *testing.T, token, email string, validFor time.Duration) {
	t.Helper()
	require.NoError(t, f.store.Invitations().Create(f.ctx, invitation.Invitation{
		Token:     token,
		Email:     email,
		ExpiresAt: f.clock.Now().Add(validFor),
		CreatedAt: f.clock.Now(),
	}))
}
