//go:build integration

package taskrt

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClientRegistry(t *testing.T, store *RunStore) (*Client, *Registry) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queue := NewRedisQueue(redisClient, "taskrt-client-test:")

	registry := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	return NewClient(store, queue, registry), registry
}

func TestStartWorkflowIsIdempotentForIdenticalArgs(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	client, registry := newTestClientRegistry(t, store)

	withDefault(registry, func() {
		RegisterWorkflow("echo-queue", "test.echo", func(wctx *WorkflowContext, arg string) (string, error) {
			return arg, nil
		})
	})

	ctx := context.Background()
	h1, err := client.StartWorkflow(ctx, "test.echo", "hello")
	require.NoError(t, err)
	h2, err := client.StartWorkflow(ctx, "test.echo", "hello")
	require.NoError(t, err)
	require.Equal(t, h1.WorkflowID, h2.WorkflowID, "same arg must resolve to the same deterministic workflow ID")

	task, err := client.Queue.Dequeue("echo-queue", 500*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, task, "the first StartWorkflow call must have enqueued exactly one task")

	task2, err := client.Queue.Dequeue("echo-queue", 50*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, task2, "the duplicate StartWorkflow call must not enqueue a second task")
}

func TestStartWorkflowDistinguishesDifferentArgs(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	client, registry := newTestClientRegistry(t, store)

	withDefault(registry, func() {
		RegisterWorkflow("echo-queue", "test.echo2", func(wctx *WorkflowContext, arg string) (string, error) {
			return arg, nil
		})
	})

	ctx := context.Background()
	h1, err := client.StartWorkflow(ctx, "test.echo2", "a")
	require.NoError(t, err)
	h2, err := client.StartWorkflow(ctx, "test.echo2", "b")
	require.NoError(t, err)
	require.NotEqual(t, h1.WorkflowID, h2.WorkflowID)
}

func TestGetResultBeforeCompletionErrors(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	client, registry := newTestClientRegistry(t, store)

	withDefault(registry, func() {
		RegisterWorkflow("echo-queue", "test.pending", func(wctx *WorkflowContext, arg string) (string, error) {
			return arg, nil
		})
	})

	ctx := context.Background()
	h, err := client.StartWorkflow(ctx, "test.pending", "x")
	require.NoError(t, err)

	var out string
	err = client.GetResult(ctx, h.WorkflowID, &out)
	require.Error(t, err)
}

func TestWorkerProcessesEnqueuedWorkflowToCompletion(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	client, registry := newTestClientRegistry(t, store)

	withDefault(registry, func() {
		RegisterWorkflow("echo-queue", "test.full", func(wctx *WorkflowContext, arg string) (string, error) {
			return arg + "-done", nil
		})
	})

	ctx := context.Background()
	h, err := client.StartWorkflow(ctx, "test.full", "task")
	require.NoError(t, err)

	task, err := client.Queue.Dequeue("echo-queue", time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)

	worker := NewWorker("echo-queue", client)
	worker.process(ctx, *task)

	status, err := client.GetStatus(ctx, h.WorkflowID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, status)

	var result string
	require.NoError(t, client.GetResult(ctx, h.WorkflowID, &result))
	require.Equal(t, "task-done", result)
}
