package httpapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageTokenRoundTrips(t *testing.T) {
	token := encodePageToken(240)

	offset, err := decodePageToken(token)

	require.NoError(t, err)
	require.Equal(t, 240, offset)
}

func TestDecodePageTokenEmptyIsZero(t *testing.T) {
	offset, err := decodePageToken("")

	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestDecodePageTokenRejectsGarbage(t *testing.T) {
	_, err := decodePageToken("not-a-valid-token!!")

	require.Error(t, err)
}
