package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testRedis uses TEST_REDIS_ADDR or a throwaway container, skipping when neither is available.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis tests skipped in -short mode")
	}

	ctx := context.Background()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("redis unavailable: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		host, err := container.Host(ctx)
		require.NoError(t, err)
		port, err := container.MappedPort(ctx, "6379")
		require.NoError(t, err)
		addr = fmt.Sprintf("%s:%s", host, port.Port())
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStore_RoundTrip(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	store := NewRedisStore(rdb, time.Minute)

	sess, err := New(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	sess.UserID = "u1"
	sess.Role = user.RoleAdmin
	sess.AddFlash(FlashError, "nope")
	require.NoError(t, store.Save(ctx, sess))

	ttl, err := rdb.TTL(ctx, redisKeyPrefix+sess.ID).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Equal(t, user.RoleAdmin, got.Role)
	require.Equal(t, sess.CSRFToken, got.CSRFToken)
	require.Len(t, got.Flashes, 1)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
