package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageIDAdvancesAtTargetPageSize(t *testing.T) {
	assert.Equal(t, int64(0), pageID(0, 0))
	assert.Equal(t, int64(0), pageID(0, TargetPageSize-1))
	assert.Equal(t, int64(1), pageID(0, TargetPageSize))
	assert.Equal(t, int64(2), pageID(TargetPageSize, TargetPageSize))
}

func TestEdgePKIsDirectional(t *testing.T) {
	assert.NotEqual(t, edgePK("a", "b"), edgePK("b", "a"))
	assert.Equal(t, edgePK("a", "b"), edgePK("a", "b"))
}

func TestChunkSplitsAtSize(t *testing.T) {
	edges := make([]Edge, 250)
	parts := chunk(edges, 100)
	if assert.Len(t, parts, 3) {
		assert.Len(t, parts[0], 100)
		assert.Len(t, parts[1], 100)
		assert.Len(t, parts[2], 50)
	}
}

func TestChunkStringsEmpty(t *testing.T) {
	assert.Nil(t, chunkStrings(nil, 100))
}
