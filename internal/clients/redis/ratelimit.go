package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window request counter.
type Limiter interface {
	// Allow counts one hit against key and reports whether it is within the
	// limit. retryAfter is the time left in the current window when denied.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type windowLimiter struct {
	rdb    goredis.UniversalClient
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewLimiter(rdb goredis.UniversalClient, limit int, window time.Duration) Limiter {
	return &windowLimiter{
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		prefix: "cortex:rl:",
		now:    time.Now,
	}
}

func (l *windowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	full := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	var incr *goredis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, full)
		p.PExpire(ctx, full, l.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if incr.Val() <= l.limit {
		return true, 0, nil
	}
	windowEnd := time.Unix(0, (bucket+1)*int64(l.window))
	return false, windowEnd.Sub(now), nil
}

type nopLimiter struct{}

// NopLimiter allows everything.
func NopLimiter() Limiter { return nopLimiter{} }

func (nopLimiter) Allow(context.Context, string) (bool, time.Duration, error) { return true, 0, nil }
