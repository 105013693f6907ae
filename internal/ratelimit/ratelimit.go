// Package ratelimit provides a redis-backed fixed-window request limiter
// keyed per API key.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ringbill/ringbill/internal/config"
)

// Limiter answers whether a caller may proceed with another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type limiter struct {
	client *redis.Client
	log    *zap.Logger
	limit  int
	window time.Duration
}

type LimiterParam struct {
	fx.In

	Client *redis.Client
	Log    *zap.Logger
	Config config.Config
}

func NewLimiter(p LimiterParam) Limiter {
	limit := p.Config.RateLimit.RequestsPerMinute
	if limit <= 0 {
		limit = 600
	}
	if !p.Config.RateLimit.Enabled {
		return noopLimiter{}
	}
	return &limiter{
		client: p.Client,
		log:    p.Log.Named("ratelimit"),
		limit:  limit,
		window: time.Minute,
	}
}

// Allow counts the request against the current window. The counter key is
// bucketed by window start so it expires on its own; INCR plus EXPIRE is
// pipelined to keep this one round trip.
func (l *limiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	counterKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.client.Pipeline()
	count := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis being down must not take the API with it.
		l.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true, nil
	}
	return count.Val() <= int64(l.limit), nil
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// NewClient builds the shared redis client, closed on shutdown.
func NewClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

var Module = fx.Module("ratelimit",
	fx.Provide(
		NewClient,
		NewLimiter,
	),
)
