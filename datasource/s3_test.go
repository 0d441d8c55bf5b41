package datasource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestS3DatasourceKeyJoinsPrefix(t *testing.T) {
	d := &S3Datasource{id: "s3-test", prefix: "archive"}
	require.Equal(t, "archive/2024/file.txt", d.key("2024/file.txt"))
}

func TestS3DatasourceKeyNoPrefixTrimsLeadingSlash(t *testing.T) {
	d := &S3Datasource{id: "s3-test"}
	require.Equal(t, "2024/file.txt", d.key("/2024/file.txt"))
}

func TestS3DatasourceIDReturnsConfiguredID(t *testing.T) {
	d := &S3Datasource{id: "s3-test"}
	require.Equal(t, "s3-test", d.ID())
}
