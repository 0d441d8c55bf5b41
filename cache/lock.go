// Package cache implements C6, the cache & lock layer: a distributed
// advisory lock with lease extension, and a memoizing cache built on top of
// it, both over go-redis. Grounded on db/repository/redis.go's
// AcquireLock/ReleaseLock (SetNX+TTL) and SetCache/GetCache, generalized to
// spec.md §4.5's exact lease/backoff/extension protocol.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockLease          = 60 * time.Second
	lockExtendInterval = 30 * time.Second
	lockBackoffStart   = 16 * time.Millisecond
	lockBackoffFactor  = 2
	lockMaxAttempts    = 14
)

// ErrLockNotAcquired is returned by WithLock when every acquisition attempt
// within lockMaxAttempts fails.
var ErrLockNotAcquired = errors.New("cache: lock not acquired")

// ErrLeaseExtensionFailed is the error WithLock returns when the lease could
// not be renewed mid-flight; the block itself sees its context canceled.
var ErrLeaseExtensionFailed = errors.New("cache: lock lease extension failed")

// releaseScript deletes key only if its value still matches token, so that a
// caller whose lease already expired and was reacquired by someone else
// never deletes the new holder's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func lockKey(lockID string) string {
	return "hoover3_lock__" + lockID
}

// WithLock acquires a distributed advisory lock named lockID with a 60 s
// lease, retrying acquisition with exponential backoff (16 ms ×2, at most 14
// tries) before giving up. While fn runs, the lease is extended every 30 s;
// if an extension fails, fn's context is canceled, WithLock waits for fn to
// return, and ErrLeaseExtensionFailed is returned in place of fn's error.
// Release happens on every exit path.
func WithLock(ctx context.Context, client *redis.Client, lockID string, fn func(ctx context.Context) error) error {
	key := lockKey(lockID)
	token := uuid.NewString()

	if err := acquire(ctx, client, key, token); err != nil {
		return err
	}
	defer release(context.Background(), client, key, token)

	lockCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	extendFailed := make(chan struct{}, 1)
	ticker := time.NewTicker(lockExtendInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-ticker.C:
				ok, err := client.Expire(context.Background(), key, lockLease).Result()
				if err != nil || !ok {
					select {
					case extendFailed <- struct{}{}:
					default:
					}
					cancel()
					return
				}
			case <-done:
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(lockCtx)
	}()

	select {
	case err := <-errCh:
		select {
		case <-extendFailed:
			return ErrLeaseExtensionFailed
		default:
		}
		return err
	case <-extendFailed:
		<-errCh // let fn observe cancellation and return before we report the failure
		return ErrLeaseExtensionFailed
	}
}

func acquire(ctx context.Context, client *redis.Client, key, token string) error {
	backoff := lockBackoffStart
	for attempt := 0; attempt < lockMaxAttempts; attempt++ {
		ok, err := client.SetNX(ctx, key, token, lockLease).Result()
		if err != nil {
			return fmt.Errorf("cache: acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= lockBackoffFactor
	}
	return fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
}

func release(ctx context.Context, client *redis.Client, key, token string) {
	client.Eval(ctx, releaseScript, []string{key}, token)
}
