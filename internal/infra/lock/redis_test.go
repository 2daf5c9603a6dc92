package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itinerary-pdf/internal/domain"
)

func newGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisGuard(rdb, ttl), mr
}

func TestRedisGuard_RejectsSecondHolder(t *testing.T) {
	g, mr := newGuard(t, time.Minute)
	ctx := context.Background()

	release, err := g.TryAcquire(ctx, "it-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"it-1"))

	_, err = g.TryAcquire(ctx, "it-1")
	assert.ErrorIs(t, err, domain.ErrExportInProgress)

	other, err := g.TryAcquire(ctx, "it-2")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(keyPrefix+"it-1"))

	again, err := g.TryAcquire(ctx, "it-1")
	require.NoError(t, err)
	again()
}

func TestRedisGuard_ExpiredLockIsNotStolenOnRelease(t *testing.T) {
	g, mr := newGuard(t, time.Second)
	ctx := context.Background()

	stale, err := g.TryAcquire(ctx, "it-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := g.TryAcquire(ctx, "it-1")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(keyPrefix+"it-1"), "stale release must not delete the new holder's lock")

	fresh()
	assert.False(t, mr.Exists(keyPrefix+"it-1"))
}

func TestRedisGuard_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	_, err := NewRedisGuard(rdb, 0).TryAcquire(context.Background(), "it-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrExportInProgress)
}
