package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestWithLockRunsOnce(t *testing.T) {
	client := newTestClient(t)
	var calls int32

	err := WithLock(context.Background(), client, "test-lock", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), calls)
}

func TestWithLockReleasesAfterBlock(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, WithLock(context.Background(), client, "test-lock", func(ctx context.Context) error {
		return nil
	}))

	var ran bool
	require.NoError(t, WithLock(context.Background(), client, "test-lock", func(ctx context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestWithLockSerializesConcurrentCallers(t *testing.T) {
	client := newTestClient(t)
	var active, maxActive int32

	run := func() error {
		return WithLock(context.Background(), client, "shared-lock", func(ctx context.Context) error {
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		})
	}

	done := make(chan error, 2)
	go func() { done <- run() }()
	go func() { done <- run() }()
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	require.Equal(t, int32(1), maxActive)
}
