package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

func TestConflictUpdateClauseSkipsPrimaryKeyColumns(t *testing.T) {
	clause := conflictUpdateClause([]string{"sha3_256", "mime_type"}, []string{"sha3_256"})
	require.Equal(t, "DO UPDATE SET mime_type = EXCLUDED.mime_type", clause)
}

func TestConflictUpdateClauseAllKeysIsNoOp(t *testing.T) {
	clause := conflictUpdateClause([]string{"sha3_256", "chunk_index"}, []string{"sha3_256", "chunk_index"})
	require.Equal(t, "DO NOTHING", clause)
}

func TestPkNamesCollectsPartitionAndClusteringKeys(t *testing.T) {
	m := schema.Model{
		Name: "Example",
		Fields: []schema.Field{
			{Name: "sha3_256", PartitionKey: true},
			{Name: "chunk_index", ClusteringKey: true},
			{Name: "text"},
		},
	}
	require.Equal(t, []string{"sha3_256", "chunk_index"}, pkNames(m))
}

func TestModelByNamePanicsOnUnknownName(t *testing.T) {
	require.Panics(t, func() {
		ModelByName("DoesNotExist")
	})
}
