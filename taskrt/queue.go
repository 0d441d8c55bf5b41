package taskrt

import (
	"encoding/json"
	"time"
)

// Task is the envelope dispatched through a Queue: either a workflow to run
// or (in a future extension) an activity task; C7 only ever enqueues
// workflow tasks, since activities execute in-process within
// ExecuteActivity's retry loop (see context.go) rather than round-tripping
// through a queue themselves.
type Task struct {
	WorkflowID string    `json:"workflow_id"`
	Name       string    `json:"name"`
	ArgJSON    json.RawMessage `json:"arg_json"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	RetryCount int       `json:"retry_count"`
}

// Queue is the task-dispatch abstraction a worker polls and a client
// publishes to, generalized from queue/redis/queue.go's Job/Queue shape
// (single-job envelopes) to typed workflow task envelopes; both the Redis
// and AMQP implementations satisfy it so a deployment can choose either
// backend for the same queue name.
type Queue interface {
	Enqueue(queueName string, task Task) error
	// Dequeue blocks up to timeout for the next task on queueName, returning
	// (nil, nil) on timeout with no task available.
	Dequeue(queueName string, timeout time.Duration) (*Task, error)
	Close() error
}
