package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithCacheMemoizes(t *testing.T) {
	client := newTestClient(t)
	var calls int32

	compute := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "computed-value", nil
	}

	v1, err := WithCache(context.Background(), client, "widget", time.Minute, "key-a", compute)
	require.NoError(t, err)
	require.Equal(t, "computed-value", v1)

	v2, err := WithCache(context.Background(), client, "widget", time.Minute, "key-a", compute)
	require.NoError(t, err)
	require.Equal(t, "computed-value", v2)
	require.Equal(t, int32(1), calls)
}

func TestWithCacheDistinguishesKeys(t *testing.T) {
	client := newTestClient(t)
	var calls int32

	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return int(calls), nil
	}

	v1, err := WithCache(context.Background(), client, "counter", time.Minute, "key-a", compute)
	require.NoError(t, err)
	v2, err := WithCache(context.Background(), client, "counter", time.Minute, "key-b", compute)
	require.NoError(t, err)

	require.NotEqual(t, v1, v2)
	require.Equal(t, int32(2), calls)
}

func TestWithCachePropagatesError(t *testing.T) {
	client := newTestClient(t)

	_, err := WithCache(context.Background(), client, "failing", time.Minute, "key", func(ctx context.Context) (string, error) {
		return "", assertErr
	})
	require.ErrorIs(t, err, assertErr)
}

var assertErr = errString("boom")

type errString string

func (e errString) Error() string { return string(e) }
