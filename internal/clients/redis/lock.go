package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("lock held")

// Locker serialises work on a key across processes. The returned release is
// always safe to call.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	rdb    goredis.UniversalClient
	log    *logger.Logger
	prefix string
	wait   time.Duration
}

// NewLocker returns a SET NX PX lock that polls for up to wait before giving
// up with ErrLocked.
func NewLocker(rdb goredis.UniversalClient, log *logger.Logger, wait time.Duration) Locker {
	return &locker{rdb: rdb, log: log.With("service", "RedisLocker"), prefix: "cortex:lock:", wait: wait}
}

func (l *locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := 25 * time.Millisecond

	for {
		ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return func() {}, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Detached so a cancelled request still frees the key.
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, l.rdb, []string{full}, token).Err(); err != nil {
					l.log.Warn("redis lock release failed", "key", full, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return func() {}, ErrLocked
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

type nopLocker struct{}

// NopLocker never blocks; used when redis is not configured.
func NopLocker() Locker { return nopLocker{} }

func (nopLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
