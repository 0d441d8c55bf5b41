package process

import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// metadataEntry is one key/value metadata entry from a provider, matching
// the ExtractedMetadata model's (provider, key, list_index, value) shape.
type metadataEntry struct {
	Provider  string
	Key       string
	ListIndex int32
	Value     string
}

// maxChunkBytes bounds one ExtractedContent chunk, per spec.md §4.9: "chunks
// ≤ 768 KiB, empty chunks dropped".
const maxChunkBytes = 768 * 1024

// extractAll runs the content/metadata extraction provider appropriate for
// mimeType against the blob at tempPath, per spec.md §4.9 step 3's "a
// content/metadata extractor that may produce a text file and a key/value
// metadata map". Providers are tried by MIME family; an unrecognized MIME
// type yields no metadata and no text rather than an error, since
// extraction coverage is necessarily partial.
func extractAll(tempPath, mimeType string) ([]metadataEntry, string, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return extractImage(tempPath)
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/json", mimeType == "application/xml":
		text, err := extractPlainText(tempPath)
		return nil, text, err
	default:
		return nil, "", nil
	}
}

// extractImage is the EXIF metadata provider, adapted from
// media/images.go's checkOrientationWithEXIF: instead of extracting just
// the orientation tag for resizing decisions, it walks every EXIF tag into
// a flat metadata entry so each becomes independently searchable.
func extractImage(tempPath string) ([]metadataEntry, string, error) {
	var entries []metadataEntry

	f, err := os.Open(tempPath)
	if err != nil {
		return nil, "", err
	}
	x, exifErr := exif.Decode(f)
	f.Close()
	if exifErr == nil {
		w := &exifWalker{provider: "exif"}
		if err := x.Walk(w); err == nil {
			entries = append(entries, w.entries...)
		}
	}
	// No EXIF data (or not a format goexif understands) is not an
	// extraction failure — plenty of valid images carry no EXIF block.

	if info, err := decodeImageInfo(tempPath); err == nil {
		entries = append(entries,
			metadataEntry{Provider: "image", Key: "width", Value: strconv.Itoa(info.Width)},
			metadataEntry{Provider: "image", Key: "height", Value: strconv.Itoa(info.Height)},
			metadataEntry{Provider: "image", Key: "thumbnail_jpeg_base64", Value: info.ThumbB64},
		)
	}
	// Decode failures (corrupt image, format the stdlib can't decode) drop
	// the thumbnail the same way a missing EXIF block drops those entries.

	return entries, "", nil
}

// exifWalker implements exif.Walker, collecting every tag x.Walk visits
// into a flat metadata entry list.
type exifWalker struct {
	provider string
	entries  []metadataEntry
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.entries = append(w.entries, metadataEntry{
		Provider: w.provider,
		Key:      string(name),
		Value:    tag.String(),
	})
	return nil
}

// extractPlainText is the text-content provider: the downloaded blob is
// already local, so extraction is just reading it back — the chunking that
// bounds row size happens downstream in chunkParagraphs.
func extractPlainText(tempPath string) (string, error) {
	b, err := os.ReadFile(tempPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// chunkParagraphs splits text on blank lines into paragraph-bounded chunks
// of at most maxChunkBytes, merging consecutive short paragraphs into one
// chunk and splitting any single paragraph that exceeds the limit on its
// own. Empty chunks are dropped, per spec.md §4.9.
func chunkParagraphs(text string) []string {
	if text == "" {
		return nil
	}

	var paragraphs []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			if cur.Len() > 0 {
				paragraphs = append(paragraphs, cur.String())
				cur.Reset()
			}
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		paragraphs = append(paragraphs, cur.String())
	}

	var chunks []string
	var acc strings.Builder
	flush := func() {
		if acc.Len() > 0 {
			chunks = append(chunks, acc.String())
			acc.Reset()
		}
	}
	for _, p := range paragraphs {
		if len(p) > maxChunkBytes {
			flush()
			chunks = append(chunks, splitOversized(p)...)
			continue
		}
		if acc.Len()+len(p)+1 > maxChunkBytes {
			flush()
		}
		if acc.Len() > 0 {
			acc.WriteByte('\n')
		}
		acc.WriteString(p)
	}
	flush()

	var out []string
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitOversized hard-splits a single paragraph larger than maxChunkBytes
// into maxChunkBytes-sized pieces.
func splitOversized(p string) []string {
	var out []string
	for len(p) > maxChunkBytes {
		out = append(out, p[:maxChunkBytes])
		p = p[maxChunkBytes:]
	}
	if len(p) > 0 {
		out = append(out, p)
	}
	return out
}
