package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter over Redis. Once a client exceeds
// the limit within the interval it is blocked for blockTime regardless of
// further attempts.
type RateLimiter struct {
	client    *redis.Client
	limit     int64
	interval  time.Duration
	blockTime time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, interval, blockTime time.Duration) *RateLimiter {
	return &RateLimiter{
		client:    client,
		limit:     int64(limit),
		interval:  interval,
		blockTime: blockTime,
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	blocked, err := l.client.Exists(ctx, "ratelimit:block:"+key).Result()
	if err != nil {
		return false, err
	}
	if blocked > 0 {
		return false, nil
	}

	// Increment and attach the window TTL in one round trip. EXPIRE NX only
	// fires on a fresh counter, so a crash can never leave a counter without
	// an expiry.
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, "ratelimit:count:"+key)
	pipe.ExpireNX(ctx, "ratelimit:count:"+key, l.interval)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if incr.Val() > l.limit {
		if err := l.client.Set(ctx, "ratelimit:block:"+key, "blocked", l.blockTime).Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}
