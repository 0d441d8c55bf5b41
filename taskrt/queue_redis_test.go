package taskrt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisQueue(client, "taskrt-test:")
}

func TestRedisQueueEnqueueDequeueRoundTrip(t *testing.T) {
	q := newTestRedisQueue(t)
	task := Task{
		WorkflowID: "wf_abc",
		Name:       "ingest.scan",
		ArgJSON:    json.RawMessage(`{"path":"/tmp"}`),
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, q.Enqueue("scan-queue", task))

	got, err := q.Dequeue("scan-queue", time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, task.WorkflowID, got.WorkflowID)
	require.Equal(t, task.Name, got.Name)
	require.JSONEq(t, string(task.ArgJSON), string(got.ArgJSON))
}

func TestRedisQueueDequeueTimesOutWhenEmpty(t *testing.T) {
	q := newTestRedisQueue(t)
	got, err := q.Dequeue("empty-queue", 50*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisQueueSeparatesQueuesByName(t *testing.T) {
	q := newTestRedisQueue(t)
	require.NoError(t, q.Enqueue("queue-a", Task{WorkflowID: "a"}))

	got, err := q.Dequeue("queue-b", 50*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, got, "task enqueued on queue-a must not be visible on queue-b")

	got, err = q.Dequeue("queue-a", time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a", got.WorkflowID)
}
