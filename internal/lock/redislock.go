package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// releaseScript deletes the key only when the holder token still matches,
// so a lock that expired and was re-acquired by someone else is left alone.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker is a Redis-backed mutual exclusion helper. Draft finalization uses
// it so two terminals finalizing the same draft serialize instead of racing
// the checkout pipeline.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the named lock. Acquisition polls with a
// backoff until the context is cancelled; the lock is released when fn
// returns, error or not.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	token := uuid.NewString()

	for {
		acquired, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			defer l.release(key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l Locker) release(key, token string) {
	// Background context: the caller's context may already be cancelled
	// and the lock must still come off.
	_ = l.R.Eval(context.Background(), releaseScript, []string{key}, token).Err()
}
