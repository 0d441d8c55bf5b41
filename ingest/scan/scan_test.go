package scan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalsAddAccumulates(t *testing.T) {
	total := Totals{FileCount: 1, DirCount: 2, SizeBytes: 100, Errors: 0}
	total.add(Totals{FileCount: 3, DirCount: 0, SizeBytes: 50, Errors: 1})

	require.Equal(t, int64(4), total.FileCount)
	require.Equal(t, int64(2), total.DirCount)
	require.Equal(t, int64(150), total.SizeBytes)
	require.Equal(t, int64(1), total.Errors)
}

func TestJoinPath(t *testing.T) {
	require.Equal(t, "sub", joinPath("", "sub"))
	require.Equal(t, "a/b", joinPath("a", "b"))
	require.Equal(t, "a/b", joinPath("a/", "b"))
}

func TestDecodeResultRoundTrips(t *testing.T) {
	raw, err := json.Marshal(Result{Path: "a/b", Total: Totals{FileCount: 5}})
	require.NoError(t, err)

	var out Result
	require.NoError(t, decodeResult(raw, &out))
	require.Equal(t, "a/b", out.Path)
	require.Equal(t, int64(5), out.Total.FileCount)
}

func TestDecodeResultRejectsEmpty(t *testing.T) {
	var out Result
	require.Error(t, decodeResult(nil, &out))
}
