package hashplan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionSplitsOnFileCount(t *testing.T) {
	files := make([]fileRef, 5)
	for i := range files {
		files[i] = fileRef{Path: string(rune('a' + i)), SizeBytes: 1}
	}

	plan := partition(files, 2, 1<<20)

	require.Len(t, plan.Pages, 3)
	require.Equal(t, int64(2), plan.Pages[0].FileCount)
	require.Equal(t, int64(2), plan.Pages[1].FileCount)
	require.Equal(t, int64(1), plan.Pages[2].FileCount)
	require.Equal(t, int64(0), plan.Pages[0].ChunkID)
	require.Equal(t, int64(1), plan.Pages[1].ChunkID)
	require.Equal(t, int64(2), plan.Pages[2].ChunkID)
}

func TestPartitionSplitsOnByteBudget(t *testing.T) {
	files := []fileRef{
		{Path: "a", SizeBytes: 60},
		{Path: "b", SizeBytes: 60},
		{Path: "c", SizeBytes: 10},
	}

	plan := partition(files, 100, 100)

	require.Len(t, plan.Pages, 2)
	require.Equal(t, int64(60), plan.Pages[0].SizeBytes)
	require.Equal(t, int64(70), plan.Pages[1].SizeBytes)
}

func TestPartitionOversizedFileGetsOwnPage(t *testing.T) {
	files := []fileRef{{Path: "huge", SizeBytes: 1000}}

	plan := partition(files, 10, 100)

	require.Len(t, plan.Pages, 1)
	require.Equal(t, int64(1000), plan.Pages[0].SizeBytes)
}

func TestPartitionEmptyInputYieldsNoPages(t *testing.T) {
	plan := partition(nil, 10, 100)
	require.Empty(t, plan.Pages)
}

func TestFilePKStringIsStableForSameInput(t *testing.T) {
	a := filePKString("ds1", "a/b.txt")
	b := filePKString("ds1", "a/b.txt")
	c := filePKString("ds1", "a/c.txt")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
