package taskrt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWorkflowContext(t *testing.T, registry *Registry) *WorkflowContext {
	t.Helper()
	client := &Client{Registry: registry}
	return &WorkflowContext{Ctx: context.Background(), client: client}
}

func TestExecuteActivitySucceedsFirstAttempt(t *testing.T) {
	registry := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	calls := 0
	withDefault(registry, func() {
		RegisterActivity("q", "test.ok", func(ctx context.Context, arg int) (int, error) {
			calls++
			return arg * 2, nil
		})
	})

	wctx := newTestWorkflowContext(t, registry)
	var out int
	require.NoError(t, wctx.ExecuteActivity("test.ok", 21, &out))
	require.Equal(t, 42, out)
	require.Equal(t, 1, calls)
}

func TestExecuteActivityRetriesThenFails(t *testing.T) {
	registry := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	calls := 0
	withDefault(registry, func() {
		RegisterActivity("q", "test.always-fails", func(ctx context.Context, arg int) (int, error) {
			calls++
			return 0, errors.New("boom")
		})
	})

	wctx := newTestWorkflowContext(t, registry)
	var out int
	err := wctx.ExecuteActivity("test.always-fails", 1, &out)
	require.Error(t, err)
	require.Equal(t, ActivityRetryMaxAttempts, calls, "must retry exactly ActivityRetryMaxAttempts times before giving up")
}

func TestExecuteActivityUnregisteredNameErrors(t *testing.T) {
	registry := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	wctx := newTestWorkflowContext(t, registry)
	var out int
	err := wctx.ExecuteActivity("test.missing", 1, &out)
	require.Error(t, err)
}
