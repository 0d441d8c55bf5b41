package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type activityFunc func(ctx context.Context, argJSON json.RawMessage) (json.RawMessage, error)
type workflowFunc func(wctx *WorkflowContext, argJSON json.RawMessage) (json.RawMessage, error)

type registeredActivity struct {
	queue string
	fn    activityFunc
}

type registeredWorkflow struct {
	queue string
	fn    workflowFunc
}

// Registry is C7's inventory of named, queue-bound activities and workflows,
// mirroring C2's schema.Registry: package-level registration from init(),
// assembled into lookup tables a Worker dispatches against.
type Registry struct {
	mu         sync.RWMutex
	activities map[string]registeredActivity
	workflows  map[string]registeredWorkflow
}

// Default is the process-wide task registry populated by RegisterActivity
// and RegisterWorkflow calls, typically from init().
var Default = &Registry{
	activities: make(map[string]registeredActivity),
	workflows:  make(map[string]registeredWorkflow),
}

// RegisterActivity registers a named, queue-bound activity function against
// the default registry. Arg/Ret are JSON-marshaled at the call boundary, per
// spec.md §4.6 ("inputs/outputs are JSON").
func RegisterActivity[Arg any, Ret any](queueName, name string, fn func(ctx context.Context, arg Arg) (Ret, error)) {
	Default.mu.Lock()
	defer Default.mu.Unlock()
	if _, exists := Default.activities[name]; exists {
		panic(fmt.Sprintf("taskrt: activity %q already registered", name))
	}
	Default.activities[name] = registeredActivity{
		queue: queueName,
		fn: func(ctx context.Context, argJSON json.RawMessage) (json.RawMessage, error) {
			var arg Arg
			if err := json.Unmarshal(argJSON, &arg); err != nil {
				return nil, fmt.Errorf("taskrt: activity %s: decode arg: %w", name, err)
			}
			ret, err := fn(ctx, arg)
			if err != nil {
				return nil, err
			}
			out, err := json.Marshal(ret)
			if err != nil {
				return nil, fmt.Errorf("taskrt: activity %s: encode result: %w", name, err)
			}
			return out, nil
		},
	}
}

// RegisterWorkflow registers a named, queue-bound workflow function against
// the default registry.
func RegisterWorkflow[Arg any, Ret any](queueName, name string, fn func(wctx *WorkflowContext, arg Arg) (Ret, error)) {
	Default.mu.Lock()
	defer Default.mu.Unlock()
	if _, exists := Default.workflows[name]; exists {
		panic(fmt.Sprintf("taskrt: workflow %q already registered", name))
	}
	Default.workflows[name] = registeredWorkflow{
		queue: queueName,
		fn: func(wctx *WorkflowContext, argJSON json.RawMessage) (json.RawMessage, error) {
			var arg Arg
			if err := json.Unmarshal(argJSON, &arg); err != nil {
				return nil, fmt.Errorf("taskrt: workflow %s: decode arg: %w", name, err)
			}
			ret, err := fn(wctx, arg)
			if err != nil {
				return nil, err
			}
			out, err := json.Marshal(ret)
			if err != nil {
				return nil, fmt.Errorf("taskrt: workflow %s: encode result: %w", name, err)
			}
			return out, nil
		},
	}
}

func (r *Registry) activity(name string) (registeredActivity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.activities[name]
	return a, ok
}

func (r *Registry) workflow(name string) (registeredWorkflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[name]
	return w, ok
}

// WorkflowsForQueue returns every registered workflow name bound to
// queueName, for a Worker to dispatch against.
func (r *Registry) WorkflowsForQueue(queueName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for name, w := range r.workflows {
		if w.queue == queueName {
			out = append(out, name)
		}
	}
	return out
}
