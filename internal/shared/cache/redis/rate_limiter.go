package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/shared/cache"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed window limiter: INCR on a key that expires with the window
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.rdb}
}

func rateLimitKey(key string, window time.Duration) string {
	slot := time.Now().UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("pigeonauction:ratelimit:%s:%d", key, slot)
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	k := rateLimitKey(key, window)

	var incr *redis.IntCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis: rate limit allow %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}

var _ cache.RateLimiter = (*RateLimiter)(nil)
