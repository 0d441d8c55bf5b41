package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// GlobalRedisClient returns the process-wide Redis client backing the cache
// and lock layer (C6), connecting on first use. REDIS_URL defaults to
// localhost, matching the pattern in db/repository/redis.go and
// queue/redis/queue.go.
func GlobalRedisClient() (*redis.Client, error) {
	redisOnce.Do(func() {
		url := os.Getenv("REDIS_URL")
		if url == "" {
			url = "redis://localhost:6379/0"
		}
		opts, err := redis.ParseURL(url)
		if err != nil {
			redisErr = fmt.Errorf("session: parse redis url: %w", err)
			return
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			redisErr = fmt.Errorf("session: connect redis: %w", err)
			return
		}
		redisClient = client
	})
	return redisClient, redisErr
}
