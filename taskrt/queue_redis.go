package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue adapts queue/redis/queue.go's Queue (RPush/BLPop envelopes,
// key-prefixed per queue name) to the taskrt.Queue interface, generalized
// from single-job envelopes to Task envelopes.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue wraps client as a taskrt.Queue, namespacing keys under
// prefix (defaults to "taskrt:").
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "taskrt:"
	}
	return &RedisQueue{client: client, prefix: prefix}
}

func (q *RedisQueue) key(queueName string) string {
	return q.prefix + queueName
}

func (q *RedisQueue) Enqueue(queueName string, task Task) error {
	b, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("taskrt: redis queue: marshal task: %w", err)
	}
	return q.client.RPush(context.Background(), q.key(queueName), b).Err()
}

func (q *RedisQueue) Dequeue(queueName string, timeout time.Duration) (*Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	result, err := q.client.BLPop(ctx, timeout, q.key(queueName)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("taskrt: redis queue: dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("taskrt: redis queue: decode task: %w", err)
	}
	return &task, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
