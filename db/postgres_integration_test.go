//go:build integration

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	containertest "github.com/liquidinvestigations/hoover3-sub000/containers/testing"
)

// setupPostgresContainer starts a Postgres container via the shared
// testcontainers-go fixture and returns its connection string plus cleanup,
// following containers/testing/postgres.go's SetupPostgres.
func setupPostgresContainer(t *testing.T) (string, func()) {
	t.Helper()
	connStr, cleanup, err := containertest.SetupPostgres(context.Background(), t, nil)
	require.NoError(t, err)
	return connStr, cleanup
}

func TestMigrateCreatesIngestRunLogsTable(t *testing.T) {
	pgURL, cleanup := setupPostgresContainer(t)
	defer cleanup()

	require.NoError(t, Migrate(pgURL))
	require.NoError(t, Migrate(pgURL)) // idempotent re-run
}

func TestRecordRunAndListRunsRoundTrip(t *testing.T) {
	pgURL, cleanup := setupPostgresContainer(t)
	defer cleanup()
	require.NoError(t, Migrate(pgURL))

	require.NoError(t, RecordRun(pgURL, IngestRunLog{
		Collection:   "acme",
		Datasource:   "local-disk",
		WorkflowName: "ingest.scan.directory",
		WorkflowID:   "wf_1",
		Status:       "completed",
		DurationMS:   1200,
	}))
	require.NoError(t, RecordRun(pgURL, IngestRunLog{
		Collection:   "acme",
		Datasource:   "local-disk",
		WorkflowName: "ingest.hashplan.datasource",
		WorkflowID:   "wf_2",
		Status:       "failed",
		DurationMS:   400,
		Error:        "download failed",
	}))
	require.NoError(t, RecordRun(pgURL, IngestRunLog{
		Collection:   "other",
		WorkflowName: "ingest.scan.directory",
		WorkflowID:   "wf_3",
		Status:       "completed",
	}))

	logs, err := ListRuns(pgURL, "acme")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, "wf_2", logs[0].WorkflowID) // most recent first

	data, err := ListRunsJSON(pgURL, "acme")
	require.NoError(t, err)
	require.Contains(t, string(data), "wf_2")
}
