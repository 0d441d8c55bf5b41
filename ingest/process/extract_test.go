package process

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkParagraphsMergesShortParagraphs(t *testing.T) {
	text := "first paragraph\nsecond line\n\nsecond paragraph"

	chunks := chunkParagraphs(text)

	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0], "first paragraph")
	require.Contains(t, chunks[0], "second paragraph")
}

func TestChunkParagraphsDropsEmptyChunks(t *testing.T) {
	chunks := chunkParagraphs("\n\n\n")
	require.Empty(t, chunks)
}

func TestChunkParagraphsEmptyInput(t *testing.T) {
	require.Nil(t, chunkParagraphs(""))
}

func TestChunkParagraphsSplitsOversizedParagraph(t *testing.T) {
	huge := strings.Repeat("a", maxChunkBytes+100)

	chunks := chunkParagraphs(huge)

	require.Len(t, chunks, 2)
	require.LessOrEqual(t, len(chunks[0]), maxChunkBytes)
}

func TestSplitOversizedExactBoundary(t *testing.T) {
	s := strings.Repeat("x", maxChunkBytes*2)
	parts := splitOversized(s)
	require.Len(t, parts, 2)
}
