//go:build integration

package graph

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	containertest "github.com/liquidinvestigations/hoover3-sub000/containers/testing"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

// setupGraphPool starts a Postgres container via the shared testcontainers-go
// fixture (see db/postgres_integration_test.go's setupPostgresContainer) and
// materializes the shared graph tables schema.SharedTableDDL declares.
func setupGraphPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	connStr, cleanup, err := containertest.SetupPostgres(ctx, t, nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for _, ddl := range schema.SharedTableDDL() {
		_, err := pool.Exec(ctx, ddl)
		require.NoError(t, err)
	}
	return pool
}

// TestAddEdgesSecondCallAddsZero exercises spec.md §8 scenario 2 directly:
// add_edges(type, [(doc1,doc2)]) twice in a row leaves
// graph_edge_pages_counter(doc1, type, out) at 1 and the second call reports
// added = 0.
func TestAddEdgesSecondCallAddsZero(t *testing.T) {
	pool := setupGraphPool(t)
	ctx := context.Background()

	edges := []Edge{{Source: "doc1", Target: "doc2"}}

	added, err := AddEdges(ctx, pool, "LINKS_TO", edges)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	added, err = AddEdges(ctx, pool, "LINKS_TO", edges)
	require.NoError(t, err)
	require.Equal(t, 0, added)

	var count int64
	err = pool.QueryRow(ctx,
		`SELECT count FROM graph_edge_pages_counter WHERE pk_source = $1 AND edge_type = $2 AND direction_out = $3`,
		"doc1", "LINKS_TO", true,
	).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	neighbors, err := Neighbors(ctx, pool, "doc1", "LINKS_TO", true)
	require.NoError(t, err)
	require.Equal(t, []string{"doc2"}, neighbors)
}

// TestAddEdgesBatchInsertIdempotent exercises the insert(batch);
// insert(batch) idempotence law over a multi-edge, multi-source batch, and
// checks both directions' adjacency lists converge to the same content.
func TestAddEdgesBatchInsertIdempotent(t *testing.T) {
	pool := setupGraphPool(t)
	ctx := context.Background()

	edges := []Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
		{Source: "d", Target: "a"},
	}

	added, err := AddEdges(ctx, pool, "REL", edges)
	require.NoError(t, err)
	require.Equal(t, 3, added)

	added, err = AddEdges(ctx, pool, "REL", edges)
	require.NoError(t, err)
	require.Equal(t, 0, added)

	out, err := Neighbors(ctx, pool, "a", "REL", true)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, out)

	in, err := Neighbors(ctx, pool, "a", "REL", false)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"d"}, in)
}
