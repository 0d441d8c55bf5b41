package taskrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is one workflow execution record: one row per deterministic workflow
// ID, trimmed from db.ActionState's 12-phase state machine down to the four
// run states this adapter needs (pending/running/completed/failed) since the
// workflow-host's own replay phases have no analog here.
type Run struct {
	WorkflowID  string
	Name        string
	ArgJSON     []byte
	Status      RunStatus
	ResultJSON  []byte
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunStore persists workflow run records in Postgres, following
// db.StateStore's query shapes (row-count-checked transitions,
// CreateAction/GetByID style accessors) generalized from action-execution
// phases to workflow run status.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore wraps pool as a RunStore. Callers must have already applied
// RunStoreDDL.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// RunStoreDDL is the DDL for the taskrt_run table, applied once at service
// bootstrap (see cli/root.go's migrate subcommand) — process-wide, not
// per-collection, since workflow runs are not scoped to a single collection.
const RunStoreDDL = `
CREATE TABLE IF NOT EXISTS taskrt_run (
	workflow_id text PRIMARY KEY,
	name text NOT NULL,
	arg_json jsonb NOT NULL,
	status text NOT NULL,
	result_json jsonb,
	error text,
	started_at timestamptz NOT NULL DEFAULT now(),
	completed_at timestamptz
);
`

// CreateIfAbsent inserts a new pending run for workflowID, returning the
// existing row (and ok=false) if one is already present — this is the
// compare-and-create step behind StartWorkflow's IdReuse=AllowDuplicate /
// IdConflict=UseExisting semantics.
func (s *RunStore) CreateIfAbsent(ctx context.Context, workflowID, name string, arg interface{}) (Run, bool, error) {
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return Run{}, false, fmt.Errorf("taskrt: marshal workflow arg: %w", err)
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO taskrt_run (workflow_id, name, arg_json, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (workflow_id) DO NOTHING
		 RETURNING workflow_id, name, arg_json, status, result_json, error, started_at, completed_at`,
		workflowID, name, argJSON, StatusPending,
	)
	run, err := scanRun(row)
	if err == nil {
		return run, true, nil
	}
	if err != pgx.ErrNoRows {
		return Run{}, false, fmt.Errorf("taskrt: create run %s: %w", workflowID, err)
	}

	existing, err := s.Get(ctx, workflowID)
	if err != nil {
		return Run{}, false, fmt.Errorf("taskrt: create run %s: %w", workflowID, err)
	}
	return existing, false, nil
}

// Get returns workflowID's run record.
func (s *RunStore) Get(ctx context.Context, workflowID string) (Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT workflow_id, name, arg_json, status, result_json, error, started_at, completed_at
		 FROM taskrt_run WHERE workflow_id = $1`,
		workflowID,
	)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("taskrt: get run %s: %w", workflowID, err)
	}
	return run, nil
}

// MarkRunning transitions workflowID from pending to running.
func (s *RunStore) MarkRunning(ctx context.Context, workflowID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE taskrt_run SET status = $1 WHERE workflow_id = $2`,
		StatusRunning, workflowID,
	)
	if err != nil {
		return fmt.Errorf("taskrt: mark running %s: %w", workflowID, err)
	}
	return nil
}

// Complete records workflowID's successful result, already JSON-encoded (a
// registered workflow's wrapper encodes its typed Ret before this is
// called).
func (s *RunStore) Complete(ctx context.Context, workflowID string, resultJSON json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE taskrt_run SET status = $1, result_json = $2, completed_at = now() WHERE workflow_id = $3`,
		StatusCompleted, []byte(resultJSON), workflowID,
	)
	if err != nil {
		return fmt.Errorf("taskrt: complete run %s: %w", workflowID, err)
	}
	return nil
}

// Fail records workflowID's terminal failure.
func (s *RunStore) Fail(ctx context.Context, workflowID string, cause error) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE taskrt_run SET status = $1, error = $2, completed_at = now() WHERE workflow_id = $3`,
		StatusFailed, cause.Error(), workflowID,
	)
	if err != nil {
		return fmt.Errorf("taskrt: fail run %s: %w", workflowID, err)
	}
	return nil
}

func scanRun(row pgx.Row) (Run, error) {
	var r Run
	var status string
	err := row.Scan(&r.WorkflowID, &r.Name, &r.ArgJSON, &status, &r.ResultJSON, &r.Error, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return Run{}, err
	}
	r.Status = RunStatus(status)
	return r, nil
}
