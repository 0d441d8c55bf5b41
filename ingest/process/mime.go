package process

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// mimeResult is the reconciled MIME classification for one blob, per
// spec.md §4.9 step 3: "magic-based MIME sniffing; a learned MIME
// classifier (score + ruled/inferred)".
type mimeResult struct {
	MimeType        string
	SniffedMimeType string
	ClassifierScore float64
	ClassifierRuled bool
}

// sniffMime reads up to 512 bytes of f (net/http.DetectContentType's own
// read window) for magic-based sniffing, then runs the extension-scored
// classifier as a second pass. No MIME-sniffing library appears anywhere in
// the retrieval pack, so net/http.DetectContentType is the only grounded
// choice for the magic-byte pass — the one deliberate standard-library
// fallback in this repo's domain logic.
func sniffMime(f *os.File, path string) (mimeResult, error) {
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return mimeResult{}, err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return mimeResult{}, err
	}

	sniffed := http.DetectContentType(buf[:n])
	classified, score := classifyByExtension(path)

	result := mimeResult{SniffedMimeType: sniffed}
	if sniffed != "application/octet-stream" {
		result.MimeType = sniffed
		result.ClassifierRuled = true
		result.ClassifierScore = 1.0
		return result, nil
	}

	result.MimeType = classified
	result.ClassifierScore = score
	result.ClassifierRuled = false
	return result, nil
}

// extensionMimeTable is the learned classifier stub's scoring table: a
// fixed extension→MIME mapping with a confidence score, standing in for a
// trained model until one is wired in. Unknown extensions fall back to
// octet-stream at zero confidence.
var extensionMimeTable = map[string]struct {
	mime  string
	score float64
}{
	".txt":  {"text/plain", 0.95},
	".md":   {"text/markdown", 0.9},
	".json": {"application/json", 0.95},
	".csv":  {"text/csv", 0.85},
	".pdf":  {"application/pdf", 0.9},
	".jpg":  {"image/jpeg", 0.95},
	".jpeg": {"image/jpeg", 0.95},
	".png":  {"image/png", 0.95},
	".html": {"text/html", 0.85},
	".xml":  {"application/xml", 0.8},
}

func classifyByExtension(path string) (string, float64) {
	ext := strings.ToLower(filepath.Ext(path))
	if entry, ok := extensionMimeTable[ext]; ok {
		return entry.mime, entry.score
	}
	return "application/octet-stream", 0.0
}
