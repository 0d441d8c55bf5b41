package taskrt

import (
	"context"
	"time"

	"github.com/liquidinvestigations/hoover3-sub000/common"
)

// dequeueTimeout bounds how long one Worker poll blocks waiting for a task,
// matching worker/pool.go's dequeue-loop idiom (loop; dequeue with timeout;
// process; mark complete or failed; repeat).
const dequeueTimeout = 5 * time.Second

// Worker dispatches every workflow task it dequeues from one queue to its
// registered workflow function, generalized from worker.Pool/worker.Worker's
// single-JobProcessor dequeue loop to a name-keyed dispatch table.
type Worker struct {
	QueueName string
	client    *Client
	logger    *common.ContextLogger
}

// NewWorker constructs a Worker bound to queueName, dispatching through
// client.
func NewWorker(queueName string, client *Client) *Worker {
	return &Worker{
		QueueName: queueName,
		client:    client,
		logger:    common.ServiceLogger("taskrt-worker", queueName),
	}
}

// Run polls QueueName until ctx is canceled, processing one task at a time.
// Multiple Workers on the same queue name (across processes or goroutines)
// compete for tasks via the underlying Queue's blocking dequeue.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		task, err := w.client.Queue.Dequeue(w.QueueName, dequeueTimeout)
		if err != nil {
			w.logger.WithError(err).Error("dequeue failed")
			continue
		}
		if task == nil {
			continue
		}
		w.process(ctx, *task)
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	logger := w.logger.WithFields(common.WorkflowFields(task.Name, task.WorkflowID, w.QueueName))
	start := time.Now()

	wf, ok := w.client.Registry.workflow(task.Name)
	if !ok {
		logger.Errorf("workflow %q is not registered on this worker", task.Name)
		return
	}

	if err := w.client.Runs.MarkRunning(ctx, task.WorkflowID); err != nil {
		logger.WithError(err).Error("mark running failed")
		return
	}

	wctx := &WorkflowContext{Ctx: ctx, client: w.client}
	resultJSON, err := wf.fn(wctx, task.ArgJSON)
	if err != nil {
		if failErr := w.client.Runs.Fail(ctx, task.WorkflowID, err); failErr != nil {
			logger.WithError(failErr).Error("recording failure failed")
		}
		logger.WithError(err).Warnf("workflow failed after %s", time.Since(start))
		return
	}

	if err := w.client.Runs.Complete(ctx, task.WorkflowID, resultJSON); err != nil {
		logger.WithError(err).Error("recording completion failed")
		return
	}
	logger.Infof("workflow completed in %s", time.Since(start))
}
