package process

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyByExtensionKnown(t *testing.T) {
	mime, score := classifyByExtension("report.pdf")
	require.Equal(t, "application/pdf", mime)
	require.Greater(t, score, 0.0)
}

func TestClassifyByExtensionUnknownFallsBackToOctetStream(t *testing.T) {
	mime, score := classifyByExtension("archive.xyz123")
	require.Equal(t, "application/octet-stream", mime)
	require.Equal(t, 0.0, score)
}

func TestClassifyByExtensionCaseInsensitive(t *testing.T) {
	mime, _ := classifyByExtension("IMAGE.JPG")
	require.Equal(t, "image/jpeg", mime)
}
