package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/hotel-reservations/internal/adapters/redis"
)

// RateLimiter is a fixed-window per-key limiter. Counters live in Redis and
// are shared across instances.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "rl:" + key

	// The TTL is armed once when the key is created; the window must not
	// slide on later hits.
	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false
	}

	return incr.Val() <= int64(rate)
}
