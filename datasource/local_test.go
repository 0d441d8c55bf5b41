package datasource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLocalDisk(t *testing.T) *LocalDisk {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644))
	return NewLocalDisk("local-test", root)
}

func TestLocalDiskListRoot(t *testing.T) {
	ds := newTestLocalDisk(t)
	entries, err := ds.List(context.Background(), "")
	require.NoError(t, err)

	byName := make(map[string]Entry)
	for _, e := range entries {
		byName[e.Name] = e
	}
	require.True(t, byName["sub"].IsDir)
	require.False(t, byName["a.txt"].IsDir)
	require.Equal(t, int64(5), byName["a.txt"].SizeBytes)
}

func TestLocalDiskListMissingPathReturnsNotFound(t *testing.T) {
	ds := newTestLocalDisk(t)
	_, err := ds.List(context.Background(), "does-not-exist")
	require.Error(t, err)
	var nf *ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestLocalDiskOpenReadStreamsContent(t *testing.T) {
	ds := newTestLocalDisk(t)
	rc, err := ds.OpenRead(context.Background(), "sub/b.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "world", string(data))
}

func TestLocalDiskResolveRejectsPathEscape(t *testing.T) {
	ds := newTestLocalDisk(t)
	_, err := ds.OpenRead(context.Background(), "../../etc/passwd")
	require.Error(t, err)
}

func TestRegistryGetUnknownErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	ds := newTestLocalDisk(t)
	r.Register(ds)
	got, err := r.Get(ds.ID())
	require.NoError(t, err)
	require.Equal(t, ds, got)
}
