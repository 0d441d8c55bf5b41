package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liquidinvestigations/hoover3-sub000/model"
)

// Client is the entry point used by callers (the read-side surface, cron
// triggers, other workflows) to start workflows and observe their status,
// per spec.md §4.6's client_* surface.
type Client struct {
	Runs     *RunStore
	Queue    Queue
	Registry *Registry
}

// NewClient constructs a Client bound to runs/queue/registry.
func NewClient(runs *RunStore, q Queue, registry *Registry) *Client {
	if registry == nil {
		registry = Default
	}
	return &Client{Runs: runs, Queue: q, Registry: registry}
}

// WorkflowID derives the deterministic ID for workflow name applied to arg:
// "<workflow_name>_<stable_hash(arg)>".
func WorkflowID(name string, arg interface{}) (string, error) {
	h, err := model.StableHashJSON(arg)
	if err != nil {
		return "", fmt.Errorf("taskrt: derive workflow id: %w", err)
	}
	return name + "_" + h, nil
}

// Handle is a single result future covering all three child-workflow
// outcomes from spec.md §4.6: fresh start, UseExisting binding to an
// in-flight run, and transparent fetch of an already-completed run's stored
// result.
type Handle struct {
	WorkflowID string
	client     *Client
}

// StartWorkflow starts (or binds to, or resolves against) workflow name
// applied to arg, with IdReuse=AllowDuplicate / IdConflict=UseExisting
// semantics: a repeat call for identical args is a no-op that returns a
// Handle to the same run.
func (c *Client) StartWorkflow(ctx context.Context, name string, arg interface{}) (*Handle, error) {
	wf, ok := c.Registry.workflow(name)
	if !ok {
		return nil, fmt.Errorf("taskrt: start workflow: %q is not registered", name)
	}

	id, err := WorkflowID(name, arg)
	if err != nil {
		return nil, err
	}

	_, fresh, err := c.Runs.CreateIfAbsent(ctx, id, name, arg)
	if err != nil {
		return nil, fmt.Errorf("taskrt: start workflow %s: %w", id, err)
	}
	if fresh {
		argJSON, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("taskrt: start workflow %s: marshal arg: %w", id, err)
		}
		if err := c.Queue.Enqueue(wf.queue, Task{
			WorkflowID: id,
			Name:       name,
			ArgJSON:    argJSON,
			EnqueuedAt: time.Now(),
		}); err != nil {
			return nil, fmt.Errorf("taskrt: start workflow %s: enqueue: %w", id, err)
		}
	}
	return &Handle{WorkflowID: id, client: c}, nil
}

// GetStatus resolves workflowID's current status (client_get_status).
func (c *Client) GetStatus(ctx context.Context, workflowID string) (RunStatus, error) {
	run, err := c.Runs.Get(ctx, workflowID)
	if err != nil {
		return "", fmt.Errorf("taskrt: get status %s: %w", workflowID, err)
	}
	return run.Status, nil
}

// GetResult resolves workflowID's stored result (client_get_result),
// decoding into result. The run must already be completed; callers that need
// to block until completion should use WaitForCompletion first.
func (c *Client) GetResult(ctx context.Context, workflowID string, result interface{}) error {
	run, err := c.Runs.Get(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("taskrt: get result %s: %w", workflowID, err)
	}
	if run.Status == StatusFailed {
		return fmt.Errorf("taskrt: workflow %s failed: %s", workflowID, run.Error)
	}
	if run.Status != StatusCompleted {
		return fmt.Errorf("taskrt: workflow %s is not completed (status=%s)", workflowID, run.Status)
	}
	if len(run.ResultJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(run.ResultJSON, result); err != nil {
		return fmt.Errorf("taskrt: get result %s: decode: %w", workflowID, err)
	}
	return nil
}

// WaitForCompletion polls workflowID's status with exponential backoff
// (0.1 s ×1.1, clamped to 5 s), per spec.md §4.6's client_wait_for_completion.
func (c *Client) WaitForCompletion(ctx context.Context, workflowID string) (RunStatus, error) {
	interval := StatusPollInitialInterval
	for {
		status, err := c.GetStatus(ctx, workflowID)
		if err != nil {
			return "", err
		}
		if status.IsTerminal() {
			return status, nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		interval = time.Duration(float64(interval) * StatusPollBackoffFactor)
		if interval > StatusPollMaxInterval {
			interval = StatusPollMaxInterval
		}
	}
}

// Result blocks until h's workflow completes, then decodes its result into
// result (a single result future regardless of which of the three
// child-workflow outcomes produced h).
func (h *Handle) Result(ctx context.Context, result interface{}) error {
	status, err := h.client.WaitForCompletion(ctx, h.WorkflowID)
	if err != nil {
		return err
	}
	if status == StatusFailed {
		run, getErr := h.client.Runs.Get(ctx, h.WorkflowID)
		if getErr != nil {
			return fmt.Errorf("taskrt: workflow %s failed", h.WorkflowID)
		}
		return fmt.Errorf("taskrt: workflow %s failed: %s", h.WorkflowID, run.Error)
	}
	return h.client.GetResult(ctx, h.WorkflowID, result)
}
