package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenNestedObject(t *testing.T) {
	doc := map[string]interface{}{
		"patient": map[string]interface{}{
			"forename": "A",
		},
	}
	got := Flatten(doc)
	assert.Equal(t, "A", got["patient:forename"])
	_, hasNested := got["patient"]
	assert.False(t, hasNested)
}

func TestFlattenArrayOfObjectsDropsEmptySlots(t *testing.T) {
	doc := map[string]interface{}{
		"a": []interface{}{
			map[string]interface{}{"b": float64(1), "c": float64(2)},
			map[string]interface{}{"b": float64(3)},
		},
	}
	got := Flatten(doc)
	require.Contains(t, got, "a:b")
	require.Contains(t, got, "a:c")
	assert.Equal(t, []interface{}{float64(1), float64(3)}, got["a:b"])
	assert.Equal(t, []interface{}{float64(2)}, got["a:c"])
}

func TestFlattenScalarArrayPassesThrough(t *testing.T) {
	doc := map[string]interface{}{
		"tags": []interface{}{"x", "y"},
	}
	got := Flatten(doc)
	assert.Equal(t, []interface{}{"x", "y"}, got["tags"])
}

func TestFlattenDropsNilLeaf(t *testing.T) {
	doc := map[string]interface{}{
		"maybe": nil,
		"present": "v",
	}
	got := Flatten(doc)
	_, ok := got["maybe"]
	assert.False(t, ok)
	assert.Equal(t, "v", got["present"])
}
