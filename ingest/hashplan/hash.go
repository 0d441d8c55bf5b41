// Package hashplan implements C9: streaming multi-digest hashing plus the
// hash-plan and blob-processing-plan partitioning that bounds per-work-unit
// cost, per spec.md §4.8.
package hashplan

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/liquidinvestigations/hoover3-sub000/datasource"
	"github.com/liquidinvestigations/hoover3-sub000/ingesterr"
)

// Digests holds the four hex-encoded digests computed for one blob.
type Digests struct {
	SHA3_256 string
	SHA256   string
	SHA1     string
	MD5      string
}

// HashFile streams path from ds, feeding four digests concurrently in
// ReadChunkSize-bounded chunks so per-file memory stays O(chunk size), not
// O(file size), per spec.md's streaming-hash invariant. recordedSize is the
// file size captured at scan time; a mismatch against the actual streamed
// byte count fails with ingesterr.SizeMismatchError rather than silently
// hashing a short or truncated read.
func HashFile(ctx context.Context, ds datasource.Datasource, path string, recordedSize int64) (Digests, error) {
	r, err := ds.OpenRead(ctx, path)
	if err != nil {
		return Digests{}, fmt.Errorf("hashplan: open %s: %w", path, err)
	}
	defer r.Close()

	sha3h := sha3.New256()
	sha256h := sha256.New()
	sha1h := sha1.New()
	md5h := md5.New()
	mw := io.MultiWriter(sha3h, sha256h, sha1h, md5h)

	buf := make([]byte, datasource.ReadChunkSize)
	n, err := io.CopyBuffer(mw, r, buf)
	if err != nil {
		return Digests{}, fmt.Errorf("hashplan: stream %s: %w", path, err)
	}
	if n != recordedSize {
		return Digests{}, ingesterr.SizeMismatchError(recordedSize, n)
	}

	return Digests{
		SHA3_256: hexDigest(sha3h),
		SHA256:   hexDigest(sha256h),
		SHA1:     hexDigest(sha1h),
		MD5:      hexDigest(md5h),
	}, nil
}

func hexDigest(h hash.Hash) string {
	return fmt.Sprintf("%x", h.Sum(nil))
}
