package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/model"
)

// maxCacheablePayload is the 64 MiB cutoff past which a computed value is
// still returned to the caller but not written to the cache, per spec.md
// §4.5 step 6.
const maxCacheablePayload = 64 * 1024 * 1024

func cacheKey(id, keyHash string) string {
	return fmt.Sprintf("hoover3_cache_data__%s__%s", id, keyHash)
}

func cacheLockID(id, keyHash string) string {
	return fmt.Sprintf("cache__%s__%s", id, keyHash)
}

// WithCache memoizes fn's result, keyed by (id, stable_hash(key)), with ttl,
// following the GET → lock → re-GET → compute → serialize → size-gated-SET
// protocol in spec.md §4.5. fn must be pure with respect to key: the cache
// never distinguishes calls that share a key.
func WithCache[T any](ctx context.Context, client *redis.Client, id string, ttl time.Duration, key interface{}, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	keyHash, err := model.StableHashJSON(key)
	if err != nil {
		return zero, fmt.Errorf("cache: hash key: %w", err)
	}
	ck := cacheKey(id, keyHash)

	if v, ok, err := getCached[T](ctx, client, ck); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	logger := common.ServiceLogger("cache", "1")
	var result T
	var resultErr error

	lockErr := WithLock(ctx, client, cacheLockID(id, keyHash), func(ctx context.Context) error {
		if v, ok, err := getCached[T](ctx, client, ck); err != nil {
			return err
		} else if ok {
			result = v
			return nil
		}

		v, err := fn(ctx)
		if err != nil {
			resultErr = err
			return err
		}
		result = v

		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("cache: serialize %s: %w", ck, err)
		}
		if len(payload) > maxCacheablePayload {
			logger.WithField("key", ck).Warnf("computed value (%d bytes) exceeds cache size cutoff, not caching", len(payload))
			return nil
		}
		if err := client.Set(ctx, ck, payload, ttl).Err(); err != nil {
			return fmt.Errorf("cache: set %s: %w", ck, err)
		}
		return nil
	})
	if lockErr != nil {
		if resultErr != nil {
			return zero, resultErr
		}
		return zero, lockErr
	}
	return result, nil
}

func getCached[T any](ctx context.Context, client *redis.Client, key string) (T, bool, error) {
	var zero T
	raw, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return v, true, nil
}
