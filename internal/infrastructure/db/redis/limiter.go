package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter counts attempts per key in fixed windows.
// Key format: ratelimit:<name>:<key>
type FixedWindowLimiter struct {
	client redis.Cmdable
	name   string
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter allows limit attempts per key every window.
func NewFixedWindowLimiter(client redis.Cmdable, name string, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, name: name, limit: int64(limit), window: window}
}

// Allow records an attempt and reports whether it is within the limit. When
// it is not, the returned duration is the time left until the window resets.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", l.name, err)
	}

	if incr.Val() > l.limit {
		retry := ttl.Val()
		if retry < 0 {
			retry = l.window
		}
		return false, retry, nil
	}
	return true, 0, nil
}

// Reset forgets all attempts recorded for key.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *FixedWindowLimiter) key(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.name, key)
}
