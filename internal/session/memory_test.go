package session

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTripAndFlash(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour).WithClock(func() time.Time { return now })

	sess, err := New(now)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.NotEmpty(t, sess.CSRFToken)
	require.NotEqual(t, sess.ID, sess.CSRFToken)

	sess.SignIn(service.Principal{UserID: "u1", Email: "a@x.com", Role: user.RoleApplicant})
	sess.AddFlash(FlashSuccess, "Welcome")
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", got.Principal().UserID)
	require.Equal(t, []Flash{{Kind: FlashSuccess, Message: "Welcome"}}, got.PopFlashes())
	require.NoError(t, store.Save(ctx, got))

	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, again.Flashes)
}

func TestMemoryStore_ExpiryAndDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute).WithClock(func() time.Time { return now })

	a, _ := New(now)
	b, _ := New(now)
	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))

	require.NoError(t, store.Delete(ctx, b.ID))
	_, err := store.Get(ctx, b.ID)
	require.ErrorIs(t, err, ErrNotFound)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
