package taskrt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func TestRegisterActivityWrapsJSONBoundary(t *testing.T) {
	r := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	withDefault(r, func() {
		RegisterActivity("compute-queue", "test.add", func(ctx context.Context, arg addArgs) (int, error) {
			return arg.A + arg.B, nil
		})
	})

	act, ok := r.activity("test.add")
	require.True(t, ok)
	require.Equal(t, "compute-queue", act.queue)

	retJSON, err := act.fn(context.Background(), json.RawMessage(`{"a":2,"b":3}`))
	require.NoError(t, err)
	require.JSONEq(t, "5", string(retJSON))
}

func TestRegisterWorkflowDuplicateNamePanics(t *testing.T) {
	r := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	withDefault(r, func() {
		RegisterWorkflow("scan-queue", "test.dup", func(wctx *WorkflowContext, arg int) (int, error) {
			return arg, nil
		})
		require.Panics(t, func() {
			RegisterWorkflow("scan-queue", "test.dup", func(wctx *WorkflowContext, arg int) (int, error) {
				return arg, nil
			})
		})
	})
}

func TestWorkflowsForQueueFiltersByQueue(t *testing.T) {
	r := &Registry{
		activities: make(map[string]registeredActivity),
		workflows:  make(map[string]registeredWorkflow),
	}
	withDefault(r, func() {
		RegisterWorkflow("scan-queue", "test.scan", func(wctx *WorkflowContext, arg int) (int, error) { return arg, nil })
		RegisterWorkflow("hash-queue", "test.hash", func(wctx *WorkflowContext, arg int) (int, error) { return arg, nil })
	})

	names := r.WorkflowsForQueue("scan-queue")
	require.Equal(t, []string{"test.scan"}, names)
}

// withDefault temporarily swaps the package-level Default registry for r,
// since RegisterActivity/RegisterWorkflow always register against Default,
// then restores it. Keeps each test's registrations isolated.
func withDefault(r *Registry, fn func()) {
	prev := Default
	Default = r
	defer func() { Default = prev }()
	fn()
}
