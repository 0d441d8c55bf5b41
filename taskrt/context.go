package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// WorkflowContext is passed to a registered workflow function, giving it
// access to activity execution, child-workflow start, and parallel fan-out,
// all routed back through the owning Client/Registry.
type WorkflowContext struct {
	Ctx    context.Context
	client *Client
}

// ExecuteActivity runs the named activity with arg, retrying per spec.md
// §4.6's policy (initial 1.05 s backoff, at most 2 attempts, 10-minute
// start-to-close timeout per attempt). Activities execute in-process rather
// than round-tripping through a queue: the adapter's persisted state is
// workflow-run level only (see taskrt_run), so there is nothing to recover
// an in-flight activity from across a process crash beyond re-running the
// owning workflow, and re-running is exactly what idempotent activities are
// for.
func (w *WorkflowContext) ExecuteActivity(name string, arg interface{}, result interface{}) error {
	act, ok := w.client.Registry.activity(name)
	if !ok {
		return fmt.Errorf("taskrt: execute activity: %q is not registered", name)
	}
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return fmt.Errorf("taskrt: execute activity %s: marshal arg: %w", name, err)
	}

	var lastErr error
	for attempt := 1; attempt <= ActivityRetryMaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(w.Ctx, ActivityStartToCloseTimeout)
		retJSON, err := act.fn(attemptCtx, argJSON)
		cancel()
		if err == nil {
			if result != nil && len(retJSON) > 0 {
				if err := json.Unmarshal(retJSON, result); err != nil {
					return fmt.Errorf("taskrt: execute activity %s: decode result: %w", name, err)
				}
			}
			return nil
		}
		lastErr = err
		if attempt < ActivityRetryMaxAttempts {
			select {
			case <-time.After(ActivityRetryInitialInterval):
			case <-w.Ctx.Done():
				return w.Ctx.Err()
			}
		}
	}
	return fmt.Errorf("taskrt: activity %s failed after %d attempts: %w", name, ActivityRetryMaxAttempts, lastErr)
}

// StartAsChild starts (or binds to, or resolves) a child workflow, per
// spec.md §4.6's three-outcome contract. Identical to Client.StartWorkflow;
// exposed on WorkflowContext so workflow code never needs a direct Client
// reference.
func (w *WorkflowContext) StartAsChild(name string, arg interface{}) (*Handle, error) {
	return w.client.StartWorkflow(w.Ctx, name, arg)
}

// ParallelResult pairs one run_parallel argument with its outcome. Err is a
// string, not an error, so that group results round-trip through JSON when
// RunParallel dispatches a large fan-out via the intermediate "_group"
// workflow.
type ParallelResult struct {
	Arg    interface{}     `json:"arg,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Err    string          `json:"err,omitempty"`
}

// RunParallel starts one child workflow per element of args (workflow name)
// and awaits all of them, per spec.md §4.6. Fan-outs larger than 10 children
// are grouped into √N chunks dispatched via an intermediate "_group"
// workflow, bounding the parent's own history size.
func (w *WorkflowContext) RunParallel(workflowName string, args []interface{}) ([]ParallelResult, error) {
	if len(args) <= parallelFanOutThreshold {
		return w.runParallelDirect(workflowName, args)
	}

	groupSize := int(math.Ceil(math.Sqrt(float64(len(args)))))
	var groups [][]interface{}
	for len(args) > 0 {
		n := groupSize
		if n > len(args) {
			n = len(args)
		}
		groups = append(groups, args[:n])
		args = args[n:]
	}

	groupArgs := make([]interface{}, len(groups))
	for i, g := range groups {
		groupArgs[i] = groupArg{WorkflowName: workflowName, Args: g}
	}

	groupResults, err := w.runParallelDirect(groupWorkflowName, groupArgs)
	if err != nil {
		return nil, err
	}

	var out []ParallelResult
	for _, gr := range groupResults {
		if gr.Err != "" {
			out = append(out, gr)
			continue
		}
		var sub []ParallelResult
		if err := json.Unmarshal(gr.Result, &sub); err != nil {
			out = append(out, ParallelResult{Err: fmt.Sprintf("taskrt: decode group result: %v", err)})
			continue
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (w *WorkflowContext) runParallelDirect(workflowName string, args []interface{}) ([]ParallelResult, error) {
	type outcome struct {
		idx int
		res ParallelResult
	}
	resultsCh := make(chan outcome, len(args))

	for i, arg := range args {
		i, arg := i, arg
		go func() {
			handle, err := w.StartAsChild(workflowName, arg)
			if err != nil {
				resultsCh <- outcome{idx: i, res: ParallelResult{Arg: arg, Err: err.Error()}}
				return
			}
			var raw json.RawMessage
			errStr := ""
			if err := handle.Result(w.Ctx, &raw); err != nil {
				errStr = err.Error()
			}
			resultsCh <- outcome{idx: i, res: ParallelResult{Arg: arg, Result: raw, Err: errStr}}
		}()
	}

	out := make([]ParallelResult, len(args))
	for range args {
		o := <-resultsCh
		out[o.idx] = o.res
	}
	return out, nil
}

// groupWorkflowName is the intermediate workflow RunParallel dispatches
// large fan-outs through; registered once by RegisterGroupWorkflow (called
// from the worker bootstrap), following spec.md §4.6's "group workflow"
// design note.
const groupWorkflowName = "taskrt._group"

type groupArg struct {
	WorkflowName string        `json:"workflow_name"`
	Args         []interface{} `json:"args"`
}

// RegisterGroupWorkflow registers the intermediate "_group" workflow used by
// RunParallel's √N-chunking. Call once during worker bootstrap, on whichever
// queue fan-out workflows run on.
func RegisterGroupWorkflow(queueName string) {
	RegisterWorkflow(queueName, groupWorkflowName, func(wctx *WorkflowContext, arg groupArg) ([]ParallelResult, error) {
		return wctx.runParallelDirect(arg.WorkflowName, arg.Args)
	})
}
