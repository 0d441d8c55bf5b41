//go:build integration

package taskrt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRunStorePostgres starts a Postgres container, applies RunStoreDDL, and
// returns a connected RunStore plus a cleanup func, following
// db/postgres_integration_test.go's setupPostgresContainer pattern.
func setupRunStorePostgres(t *testing.T) (*RunStore, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, RunStoreDDL)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return NewRunStore(pool), cleanup
}

func TestRunStoreCreateIfAbsentIsIdempotent(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	ctx := context.Background()

	run, fresh, err := store.CreateIfAbsent(ctx, "wf_1", "ingest.scan", map[string]string{"path": "/data"})
	require.NoError(t, err)
	require.True(t, fresh)
	require.Equal(t, StatusPending, run.Status)

	again, fresh, err := store.CreateIfAbsent(ctx, "wf_1", "ingest.scan", map[string]string{"path": "/data"})
	require.NoError(t, err)
	require.False(t, fresh)
	require.Equal(t, run.WorkflowID, again.WorkflowID)
}

func TestRunStoreLifecycleTransitions(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	ctx := context.Background()

	_, _, err := store.CreateIfAbsent(ctx, "wf_2", "ingest.hash", 1)
	require.NoError(t, err)

	require.NoError(t, store.MarkRunning(ctx, "wf_2"))
	run, err := store.Get(ctx, "wf_2")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, run.Status)

	require.NoError(t, store.Complete(ctx, "wf_2", []byte(`{"hash":"deadbeef"}`)))
	run, err = store.Get(ctx, "wf_2")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)
	require.JSONEq(t, `{"hash":"deadbeef"}`, string(run.ResultJSON))
}

func TestRunStoreFailRecordsError(t *testing.T) {
	store, cleanup := setupRunStorePostgres(t)
	defer cleanup()
	ctx := context.Background()

	_, _, err := store.CreateIfAbsent(ctx, "wf_3", "ingest.process", nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkRunning(ctx, "wf_3"))

	require.NoError(t, store.Fail(ctx, "wf_3", fmt.Errorf("download failed")))
	run, err := store.Get(ctx, "wf_3")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, run.Status)
	require.Equal(t, "download failed", run.Error)
}
