package session

import (
	"context"
	"slices"
	"time"

	"github.com/geocoder89/applyhub/internal/cache"
)

// MemoryStore is a single-process Store for development and tests.
type MemoryStore struct {
	c *cache.Cache[Session]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New[Session](ttl)}
}

// WithClock swaps the expiry clock.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.c.WithClock(now)
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	sess, ok := s.c.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	sess.Flashes = slices.Clone(sess.Flashes)
	return sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	sess.Flashes = slices.Clone(sess.Flashes)
	s.c.Set(sess.ID, sess)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.c.Delete(id)
	return nil
}

// Sweep drops expired sessions.
func (s *MemoryStore) Sweep() int {
	return s.c.Sweep()
}
