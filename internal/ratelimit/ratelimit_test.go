package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ringbill/ringbill/internal/config"
)

func newTestLimiter(t *testing.T, limit int, enabled bool) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{}
	cfg.RateLimit.Enabled = enabled
	cfg.RateLimit.RequestsPerMinute = limit

	return NewLimiter(LimiterParam{
		Client: client,
		Log:    zap.NewNop(),
		Config: cfg,
	}), mr
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key-a")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimiterIsolatesKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, true)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key-a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "key-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "key-b")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1, true)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "key-a")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiterDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, false)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "key-a")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}
