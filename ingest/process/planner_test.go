package process

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionBlobsLabelsSmallByDefault(t *testing.T) {
	blobs := []blobSize{{SHA3_256: "a", SizeBytes: 10}, {SHA3_256: "b", SizeBytes: 20}}

	plan := partitionBlobs(blobs, 10, 1000)

	require.Len(t, plan.Pages, 1)
	require.Equal(t, QueueClassSmall, plan.Pages[0].QueueClass)
	require.Equal(t, int64(30), plan.Pages[0].SizeBytes)
}

func TestPartitionBlobsLabelsBigWhenOverBudget(t *testing.T) {
	blobs := []blobSize{{SHA3_256: "a", SizeBytes: 2000}}

	plan := partitionBlobs(blobs, 10, 1000)

	require.Len(t, plan.Pages, 1)
	require.Equal(t, QueueClassBig, plan.Pages[0].QueueClass)
}

func TestPartitionBlobsSplitsOnCount(t *testing.T) {
	blobs := []blobSize{
		{SHA3_256: "a", SizeBytes: 1},
		{SHA3_256: "b", SizeBytes: 1},
		{SHA3_256: "c", SizeBytes: 1},
	}

	plan := partitionBlobs(blobs, 2, 1000)

	require.Len(t, plan.Pages, 2)
	require.Equal(t, int64(0), plan.Pages[0].PageID)
	require.Equal(t, int64(1), plan.Pages[1].PageID)
}

func TestPartitionBlobsEmptyYieldsNoPages(t *testing.T) {
	plan := partitionBlobs(nil, 10, 1000)
	require.Empty(t, plan.Pages)
}
