// Package process implements C10, the processing pipeline: building the
// blob-processing plan (groups of distinct blobs into small/big pages) and
// running each page through a small internally-pipelined actor — enumerate,
// download, compute, write — per spec.md §4.9.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/datasource"
	"github.com/liquidinvestigations/hoover3-sub000/ingesterr"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/session"
	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// QueueName is the taskrt queue process activities and workflows register
// against.
const QueueName = "process"

// pipelineStageBuffer is the channel capacity between pipeline stages,
// generalized from the teacher's worker.Pool dequeue-loop idiom (one
// dequeue → one process step) into a 4-stage actor chain, per spec.md
// §4.9's "small, internally-pipelined actor". 2-16 keeps a page's stages
// overlapped (download one blob while the previous one is being computed)
// without unbounded buffering ahead of a slow writer.
const pipelineStageBuffer = 8

// blobRef is one blob queued for processing within a page.
type blobRef struct {
	SHA3_256  string
	SizeBytes int64
	Datasource string
	Path      string
}

// downloaded is a blobRef materialized into a local tempfile.
type downloaded struct {
	blobRef
	tempPath string
}

// computed is one blob's MIME classification plus extracted
// metadata/content, ready for the writer stage.
type computed struct {
	blobRef
	mime     mimeResult
	metadata []metadataEntry
	chunks   []string
}

// PageArgs identifies one BlobProcessingPlan page to run through the
// pipeline.
type PageArgs struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
	PageID     int64  `json:"page_id"`
}

// PageResult tallies how a page's blobs were processed.
type PageResult struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Deps bundles the live resources the process activities need.
type Deps struct {
	Datasources *datasource.Registry
	RowStore    *session.RowStore
	Redis       *redis.Client
	Logger      *common.ContextLogger
}

// Register wires the plan-building and page-processing activities/workflows
// into taskrt.Default, bound to deps. Call once during worker bootstrap.
func Register(deps Deps) {
	taskrt.RegisterActivity(QueueName, "ingest.process.build_plan", func(ctx context.Context, arg PlanArgs) (BlobPlan, error) {
		return buildBlobPlanActivity(ctx, deps, arg)
	})
	taskrt.RegisterActivity(QueueName, "ingest.process.run_page", func(ctx context.Context, arg PageArgs) (PageResult, error) {
		return runPageActivity(ctx, deps, arg)
	})
	taskrt.RegisterWorkflow(QueueName, "ingest.process.page", func(wctx *taskrt.WorkflowContext, arg PageArgs) (PageResult, error) {
		var result PageResult
		err := wctx.ExecuteActivity("ingest.process.run_page", arg, &result)
		return result, err
	})
	taskrt.RegisterWorkflow(QueueName, "ingest.process.datasource", func(wctx *taskrt.WorkflowContext, arg PlanArgs) (PageResult, error) {
		return processDatasourceWorkflow(wctx, arg)
	})
}

// runPageActivity runs one BlobProcessingPlanPageBlobs page through the
// enumerate → download → compute → write pipeline. Stages are chained by
// buffered channels so a slow download doesn't stall an already-computed
// blob's write, and a slow write applies backpressure up the chain rather
// than growing memory unboundedly.
func runPageActivity(ctx context.Context, deps Deps, arg PageArgs) (PageResult, error) {
	start := time.Now()
	collID := model.MustIdentifier(arg.Collection)

	blobs, err := pageBlobs(ctx, deps.RowStore, collID, arg.Datasource, arg.PageID)
	if err != nil {
		return PageResult{}, fmt.Errorf("process: read page %d: %w", arg.PageID, err)
	}

	tempDir, err := os.MkdirTemp("", "hoover3-process-*")
	if err != nil {
		return PageResult{}, fmt.Errorf("process: tempdir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	ds, err := deps.Datasources.Get(arg.Datasource)
	if err != nil {
		return PageResult{}, fmt.Errorf("process: %w", err)
	}

	enumerated := make(chan blobRef, pipelineStageBuffer)
	downloadedCh := make(chan downloaded, pipelineStageBuffer)
	computedCh := make(chan computed, pipelineStageBuffer)
	failures := make(chan error, len(blobs))

	go enumerate(blobs, enumerated)
	go download(ctx, ds, tempDir, enumerated, downloadedCh, failures)
	go compute(downloadedCh, computedCh, failures)

	w := newBatchWriter(ctx, deps.RowStore, collID)
	var processed int64
	for c := range computedCh {
		if err := w.write(ctx, c); err != nil {
			failures <- err
			continue
		}
		processed++
	}
	if err := w.flushAll(ctx); err != nil {
		failures <- err
	}
	close(failures)

	var failed int64
	for range failures {
		failed++
	}

	deps.Logger.WithFields(common.IngestFields(arg.Collection, arg.Datasource, "process.run_page", len(blobs), time.Since(start))).
		Infof("page %d: %d processed, %d failed", arg.PageID, processed, failed)

	return PageResult{Processed: processed, Failed: failed}, nil
}

// enumerate streams blobs onto out in order, closing out when done, per
// spec.md §4.9 step 1 ("Enumerator task streams (blob, per-blob-tempdir)
// pairs").
func enumerate(blobs []blobRef, out chan<- blobRef) {
	defer close(out)
	for _, b := range blobs {
		out <- b
	}
}

// download materializes each enumerated blob into tempDir via the
// datasource's streaming read API, verifying the declared size, per
// spec.md §4.9 step 2. A failed download is reported on failures and its
// blob is dropped from the pipeline rather than failing the whole page.
func download(ctx context.Context, ds datasource.Datasource, tempDir string, in <-chan blobRef, out chan<- downloaded, failures chan<- error) {
	defer close(out)
	for b := range in {
		path, err := downloadOne(ctx, ds, tempDir, b)
		if err != nil {
			failures <- fmt.Errorf("process: download %s: %w", b.SHA3_256, err)
			continue
		}
		out <- downloaded{blobRef: b, tempPath: path}
	}
}

func downloadOne(ctx context.Context, ds datasource.Datasource, tempDir string, b blobRef) (string, error) {
	r, err := ds.OpenRead(ctx, b.Path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	f, err := os.CreateTemp(tempDir, "blob-*")
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", err
	}
	if n != b.SizeBytes {
		return "", ingesterr.SizeMismatchError(b.SizeBytes, n)
	}
	return f.Name(), nil
}

// compute runs MIME sniffing, classification, and content/metadata
// extraction over each downloaded blob, per spec.md §4.9 step 3. The
// tempfile is removed immediately after it's been read, per spec.md's
// "intermediate files are deleted immediately after consumption".
func compute(in <-chan downloaded, out chan<- computed, failures chan<- error) {
	defer close(out)
	for d := range in {
		c, err := computeOne(d)
		os.Remove(d.tempPath)
		if err != nil {
			failures <- fmt.Errorf("process: compute %s: %w", d.SHA3_256, err)
			continue
		}
		out <- c
	}
}

func computeOne(d downloaded) (computed, error) {
	f, err := os.Open(d.tempPath)
	if err != nil {
		return computed{}, err
	}
	defer f.Close()

	mr, err := sniffMime(f, d.Path)
	if err != nil {
		return computed{}, err
	}

	metadata, text, err := extractAll(d.tempPath, mr.MimeType)
	if err != nil {
		return computed{}, err
	}

	return computed{
		blobRef:  d.blobRef,
		mime:     mr,
		metadata: metadata,
		chunks:   chunkParagraphs(text),
	}, nil
}
