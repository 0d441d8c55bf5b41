//go:build integration

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	containertest "github.com/liquidinvestigations/hoover3-sub000/containers/testing"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

var upsertTestModel = schema.Model{
	Name:      "RowioTestDoc",
	TableName: model.MustIdentifier("rowio_test_docs"),
	Doc:       "fixture row entity for UpsertBatch's integration test",
	Fields: []schema.Field{
		{Name: model.MustIdentifier("doc_id"), Type: model.Scalar(model.KindString), PartitionKey: true, Doc: "primary key"},
		{Name: model.MustIdentifier("title"), Type: model.Scalar(model.KindString), Doc: "title"},
	},
}

// setupUpsertBatch starts Postgres and Meilisearch containers, materializes
// upsertTestModel's table plus the shared graph tables via a standalone
// schema.Registry (kept separate from schema.Default so this doesn't collide
// with the process's real model registrations), and wires
// session.GlobalRowStore/GlobalSearchClient to them.
func setupUpsertBatch(t *testing.T) (*session.RowStore, model.Identifier) {
	t.Helper()
	ctx := context.Background()

	pgURL, pgCleanup, err := containertest.SetupPostgres(ctx, t, nil)
	require.NoError(t, err)
	t.Cleanup(pgCleanup)

	meiliURL, meiliKey, meiliCleanup, err := containertest.SetupMeilisearch(ctx, t, nil)
	require.NoError(t, err)
	t.Cleanup(meiliCleanup)
	t.Setenv("MEILI_URL", meiliURL)
	t.Setenv("MEILI_MASTER_KEY", meiliKey)

	row, err := session.GlobalRowStore(ctx, pgURL)
	require.NoError(t, err)

	reg := &schema.Registry{}
	reg.RegisterModel(upsertTestModel)
	require.NoError(t, reg.Assemble())
	frags, err := reg.CharybdisDDLFragments()
	require.NoError(t, err)
	for _, ddl := range frags {
		_, err := row.Pool().Exec(ctx, ddl)
		require.NoError(t, err)
	}
	for _, ddl := range schema.SharedTableDDL() {
		_, err := row.Pool().Exec(ctx, ddl)
		require.NoError(t, err)
	}

	coll := model.MustIdentifier("acme")
	require.NoError(t, session.EnsureIndex(coll))
	return row, coll
}

// TestUpsertBatchWritesRowStoreAndMirrors exercises UpsertBatch directly
// against a live Postgres row store: the row lands in the model's table and
// a matching graph_node_pk_map entry is written in the same call, then a
// second upsert of the same primary key updates in place rather than
// duplicating either side.
func TestUpsertBatchWritesRowStoreAndMirrors(t *testing.T) {
	row, coll := setupUpsertBatch(t)
	ctx := context.Background()

	rows := []model.Row{{
		Table: upsertTestModel.TableName,
		Values: map[model.Identifier]model.ColumnValue{
			model.MustIdentifier("doc_id"): model.StringValue("r1"),
			model.MustIdentifier("title"):  model.StringValue("First"),
		},
	}}

	require.NoError(t, UpsertBatch(ctx, row, coll, upsertTestModel, rows))

	var title string
	require.NoError(t, row.Pool().QueryRow(ctx,
		`SELECT title FROM rowio_test_docs WHERE doc_id = $1`, "r1").Scan(&title))
	require.Equal(t, "First", title)

	fp := model.RowFingerprint(upsertTestModel.TableName, []model.ColumnValue{model.StringValue("r1")})
	var pkCount int
	require.NoError(t, row.Pool().QueryRow(ctx,
		`SELECT count(*) FROM graph_node_pk_map WHERE pk = $1`, fp).Scan(&pkCount))
	require.Equal(t, 1, pkCount)

	rows[0].Values[model.MustIdentifier("title")] = model.StringValue("First (edited)")
	require.NoError(t, UpsertBatch(ctx, row, coll, upsertTestModel, rows))

	require.NoError(t, row.Pool().QueryRow(ctx,
		`SELECT title FROM rowio_test_docs WHERE doc_id = $1`, "r1").Scan(&title))
	require.Equal(t, "First (edited)", title)

	require.NoError(t, row.Pool().QueryRow(ctx,
		`SELECT count(*) FROM graph_node_pk_map WHERE pk = $1`, fp).Scan(&pkCount))
	require.Equal(t, 1, pkCount)
}
