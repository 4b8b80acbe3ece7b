package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every gateway replica.
// Each key gets one counter per window; the first hit of a window arms its
// expiry.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter builds a RedisLimiter allowing RequestsPerWindow per Window.
// Burst is ignored: a fixed window already admits the whole budget at once.
func NewRedisLimiter(client redis.Cmdable, prefix string, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(config.RequestsPerWindow),
		window: config.Window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis limiter: expire: %w", err)
		}
	}

	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: ttl: %w", err)
	}
	if ttl < 0 {
		// Counter lost its expiry (crash between INCR and EXPIRE); re-arm it.
		_ = l.client.Expire(ctx, k, l.window).Err()
		ttl = l.window
	}
	return false, ttl, nil
}
