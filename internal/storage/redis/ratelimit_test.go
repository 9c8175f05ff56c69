package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, limit, time.Minute, 5*time.Minute), mr
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	limiter, mr := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.True(t, mr.Exists("ratelimit:block:client"))

	// Once blocked, attempts stay denied without touching the counter.
	allowed, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_CounterAlwaysCarriesTTL(t *testing.T) {
	limiter, mr := newTestLimiter(t, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.Greater(t, mr.TTL("ratelimit:count:client"), time.Duration(0))
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, allowed)

	mr.FastForward(time.Minute + time.Second)

	allowed, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_BlockOutlivesWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	allowed, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, allowed)

	// The counter window has passed but the block has not.
	mr.FastForward(2 * time.Minute)

	allowed, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	allowed, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, allowed)
}
