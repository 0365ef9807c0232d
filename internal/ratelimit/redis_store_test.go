package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_SetGetIncr(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	err := store.Set(ctx, "u1", Entry{Count: 1, ResetAt: time.Now().Add(time.Minute)})
	require.NoError(t, err)

	e, ok, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, e.Count)
	assert.WithinDuration(t, time.Now().Add(time.Minute), e.ResetAt, 2*time.Second)

	n, err := store.Incr(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisStore_WindowExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	limiter := New(store)
	const max = 3
	for i := 0; i < max; i++ {
		require.True(t, limiter.Check(ctx, "u1", max, time.Minute).Allowed)
	}
	require.False(t, limiter.Check(ctx, "u1", max, time.Minute).Allowed)

	// miniredis only expires on FastForward; this stands in for the TTL lapsing
	mr.FastForward(61 * time.Second)

	res := limiter.Check(ctx, "u1", max, time.Minute)
	assert.True(t, res.Allowed)
	assert.Equal(t, max-1, res.Remaining)
}
