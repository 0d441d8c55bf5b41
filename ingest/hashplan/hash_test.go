package hashplan

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/liquidinvestigations/hoover3-sub000/datasource"
)

func TestHashFileComputesAllFourDigests(t *testing.T) {
	dir := t.TempDir()
	content := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), content, 0o644))

	ds := datasource.NewLocalDisk("local", dir)
	digests, err := HashFile(context.Background(), ds, "f.txt", int64(len(content)))
	require.NoError(t, err)

	require.Equal(t, fmt.Sprintf("%x", sha256.Sum256(content)), digests.SHA256)
	require.Equal(t, fmt.Sprintf("%x", sha1.Sum(content)), digests.SHA1)
	require.Equal(t, fmt.Sprintf("%x", md5.Sum(content)), digests.MD5)

	h := sha3.New256()
	h.Write(content)
	require.Equal(t, fmt.Sprintf("%x", h.Sum(nil)), digests.SHA3_256)
}

func TestHashFileRejectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello"), 0o644))

	ds := datasource.NewLocalDisk("local", dir)
	_, err := HashFile(context.Background(), ds, "f.txt", 999)
	require.Error(t, err)
}
