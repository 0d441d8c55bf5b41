// Package taskrt implements C7, the task runtime adapter: typed,
// inventory-registered activities and workflows over a from-scratch
// in-process durable-workflow engine. No Temporal (or other durable-workflow)
// Go SDK appears anywhere in the retrieval pack, so this package models the
// public semantics spec.md §4.6/§6 describe — deterministic workflow IDs,
// idempotent child-workflow start, √N-grouped fan-out — rather than
// importing one. Run persistence rides Postgres (taskrt/run_store.go,
// adapted from db/state_store.go); queue dispatch rides a Redis-backed queue
// (taskrt/queue_redis.go, adapted from queue/redis/queue.go) or, optionally,
// an AMQP-backed one (taskrt/queue_amqp.go) behind the same Queue interface.
//
// The durable-workflow *host* runtime — replay, event sourcing, crash
// recovery mid-workflow — is explicitly out of scope (spec.md §1: "the
// durable-workflow host runtime" is an external collaborator the core
// consumes but does not own). This adapter therefore executes a workflow
// function once, synchronously, within whichever worker process dequeues it;
// durability comes from persisting status/result by workflow ID so a second
// client-side StartWorkflow for the same ID is a no-op, not from replaying
// the workflow's internal event history.
package taskrt

import "time"

const (
	// ActivityRetryInitialInterval is the first backoff before retrying a
	// failed activity.
	ActivityRetryInitialInterval = 1050 * time.Millisecond
	// ActivityRetryMaxAttempts bounds how many times an activity is run
	// (including the first attempt) before its error is returned to the
	// workflow.
	ActivityRetryMaxAttempts = 2
	// ActivityStartToCloseTimeout bounds a single activity attempt.
	ActivityStartToCloseTimeout = 10 * time.Minute

	// StatusPollInitialInterval is client_wait_for_completion's first poll
	// interval.
	StatusPollInitialInterval = 100 * time.Millisecond
	// StatusPollBackoffFactor is the multiplier applied to the poll interval
	// after each unsuccessful poll.
	StatusPollBackoffFactor = 1.1
	// StatusPollMaxInterval clamps the poll interval's growth.
	StatusPollMaxInterval = 5 * time.Second

	// parallelFanOutThreshold is the run_parallel child count above which
	// fan-out is grouped into √N chunks dispatched via an intermediate
	// "_group" workflow, to bound the parent's history size.
	parallelFanOutThreshold = 10
)

// RunStatus is a workflow run's lifecycle state.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether s is a status client_wait_for_completion should
// stop polling on.
func (s RunStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
