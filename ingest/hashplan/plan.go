package hashplan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liquidinvestigations/hoover3-sub000/cache"
	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/datasource"
	"github.com/liquidinvestigations/hoover3-sub000/graph"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/models"
	"github.com/liquidinvestigations/hoover3-sub000/session"
	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// QueueName is the taskrt queue hash-plan activities and workflows register
// against.
const QueueName = "hashplan"

// PlanMaxFiles and PlanMaxBytes bound one HashPlanPage, per spec.md §4.8's
// "partition the files of a datasource into chunks whose file-count and
// total-bytes are bounded".
const (
	PlanMaxFiles = 2000
	PlanMaxBytes = 512 * 1024 * 1024
)

// PlanCacheTTL is how long a computed hash plan is memoized for, so repeated
// scan-then-plan cycles over an unchanged datasource skip re-partitioning.
const PlanCacheTTL = 10 * time.Minute

// fileRef is one File row's identity and size, as read back for planning.
type fileRef struct {
	Path      string
	SizeBytes int64
}

// planKey is the cache.WithCache memoization key: the hash plan depends
// only on which files exist in a datasource, not on any external input.
type planKey struct {
	Collection string
	Datasource string
}

// Page is one bounded chunk of a datasource's hash plan.
type Page struct {
	ChunkID   int64
	FileCount int64
	SizeBytes int64
	Files     []fileRef
}

// Plan is the full set of bounded chunks computed for one (collection,
// datasource) pair.
type Plan struct {
	Pages []Page
}

// Deps bundles the live resources the hash-plan and hash-file activities
// need.
type Deps struct {
	Datasources *datasource.Registry
	RowStore    *session.RowStore
	Redis       *redis.Client
	Logger      *common.ContextLogger
}

// PlanArgs identifies which datasource to partition.
type PlanArgs struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
}

// HashChunkArgs identifies one hash plan chunk to digest.
type HashChunkArgs struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
	ChunkID    int64  `json:"chunk_id"`
}

// HashChunkResult tallies how a chunk's files were hashed.
type HashChunkResult struct {
	Hashed int64 `json:"hashed"`
	Failed int64 `json:"failed"`
}

// Register wires the hash-plan activities and workflow into taskrt.Default,
// bound to deps. Call once during worker bootstrap.
func Register(deps Deps) {
	taskrt.RegisterActivity(QueueName, "ingest.hashplan.build_plan", func(ctx context.Context, arg PlanArgs) (Plan, error) {
		return buildPlanActivity(ctx, deps, arg)
	})
	taskrt.RegisterActivity(QueueName, "ingest.hashplan.hash_chunk", func(ctx context.Context, arg HashChunkArgs) (HashChunkResult, error) {
		return hashChunkActivity(ctx, deps, arg)
	})
	taskrt.RegisterWorkflow(QueueName, "ingest.hashplan.chunk", func(wctx *taskrt.WorkflowContext, arg HashChunkArgs) (HashChunkResult, error) {
		var result HashChunkResult
		err := wctx.ExecuteActivity("ingest.hashplan.hash_chunk", arg, &result)
		return result, err
	})
	taskrt.RegisterWorkflow(QueueName, "ingest.hashplan.datasource", func(wctx *taskrt.WorkflowContext, arg PlanArgs) (HashChunkResult, error) {
		return hashDatasourceWorkflow(wctx, arg)
	})
}

// buildPlanActivity reads every File row for arg.Datasource, partitions them
// into PlanMaxFiles/PlanMaxBytes-bounded pages, persists HashPlanPage and
// HashPlan rows, and returns the plan — memoized per (collection,
// datasource) via cache.WithCache so a re-run of an unchanged datasource
// skips recomputation and rewriting.
func buildPlanActivity(ctx context.Context, deps Deps, arg PlanArgs) (Plan, error) {
	return cache.WithCache(ctx, deps.Redis, "hashplan.build_plan", PlanCacheTTL,
		planKey{Collection: arg.Collection, Datasource: arg.Datasource},
		func(ctx context.Context) (Plan, error) {
			collID := model.MustIdentifier(arg.Collection)
			files, err := listFiles(ctx, deps.RowStore, collID, arg.Datasource)
			if err != nil {
				return Plan{}, fmt.Errorf("hashplan: list files: %w", err)
			}

			plan := partition(files, PlanMaxFiles, PlanMaxBytes)

			if err := writePlan(ctx, deps.RowStore, collID, arg.Datasource, plan); err != nil {
				return Plan{}, fmt.Errorf("hashplan: write plan: %w", err)
			}

			deps.Logger.WithFields(common.IngestFields(arg.Collection, arg.Datasource, "hashplan.build", len(files), 0)).
				Infof("partitioned %d files into %d pages", len(files), len(plan.Pages))

			return plan, nil
		},
	)
}

// listFiles reads every File row's path and size_bytes for datasourceID.
func listFiles(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID string) ([]fileRef, error) {
	coll := rowStore.CollectionSession(collID)
	rows, err := coll.Query(ctx,
		fmt.Sprintf(`SELECT path, size_bytes FROM %s WHERE datasource = $1`, coll.Table(model.MustIdentifier("file"))),
		datasourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fileRef
	for rows.Next() {
		var f fileRef
		if err := rows.Scan(&f.Path, &f.SizeBytes); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// partition greedily bin-packs files into pages bounded by maxFiles and
// maxBytes, in listing order. A single file larger than maxBytes still gets
// its own page rather than being dropped.
func partition(files []fileRef, maxFiles int, maxBytes int64) Plan {
	var plan Plan
	var cur Page
	cur.ChunkID = 0

	flush := func() {
		if cur.FileCount > 0 {
			plan.Pages = append(plan.Pages, cur)
		}
	}

	for _, f := range files {
		overFiles := cur.FileCount+1 > int64(maxFiles)
		overBytes := cur.FileCount > 0 && cur.SizeBytes+f.SizeBytes > maxBytes
		if overFiles || overBytes {
			flush()
			cur = Page{ChunkID: cur.ChunkID + 1}
		}
		cur.Files = append(cur.Files, f)
		cur.FileCount++
		cur.SizeBytes += f.SizeBytes
	}
	flush()

	return plan
}

// writePlan persists plan as HashPlanPage and HashPlan rows.
func writePlan(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID string, plan Plan) error {
	var pageRows, fileRows []model.Row
	for _, page := range plan.Pages {
		pageRows = append(pageRows, model.Row{
			Table: model.MustIdentifier("hash_plan_page"),
			Values: map[model.Identifier]model.ColumnValue{
				"datasource": model.StringValue(datasourceID),
				"chunk_id":   model.Int64Value(page.ChunkID),
				"file_count": model.Int64Value(page.FileCount),
				"size_bytes": model.Int64Value(page.SizeBytes),
			},
		})
		for _, f := range page.Files {
			fileRows = append(fileRows, model.Row{
				Table: model.MustIdentifier("hash_plan"),
				Values: map[model.Identifier]model.ColumnValue{
					"datasource": model.StringValue(datasourceID),
					"chunk_id":   model.Int64Value(page.ChunkID),
					"path":       model.StringValue(f.Path),
					"size_bytes": model.Int64Value(f.SizeBytes),
				},
			})
		}
	}

	if err := models.UpsertBatch(ctx, rowStore, collID, models.ModelByName("HashPlanPage"), pageRows); err != nil {
		return err
	}
	return models.UpsertBatch(ctx, rowStore, collID, models.ModelByName("HashPlan"), fileRows)
}

// hashChunkActivity hashes every file in one hash plan chunk, writes a
// BlobHashes row per distinct digest (a later write of the same digest
// overwrites the provenance columns under ON CONFLICT DO UPDATE, which is
// harmless for the digests since a blob's content-addressed identity never actually
// changes), and links each File to its BlobHashes via a Stored file_hashes
// edge per spec.md §4.8.
func hashChunkActivity(ctx context.Context, deps Deps, arg HashChunkArgs) (HashChunkResult, error) {
	collID := model.MustIdentifier(arg.Collection)
	coll := deps.RowStore.CollectionSession(collID)

	rows, err := coll.Query(ctx,
		fmt.Sprintf(`SELECT path, size_bytes FROM %s WHERE datasource = $1 AND chunk_id = $2`, coll.Table(model.MustIdentifier("hash_plan"))),
		arg.Datasource, arg.ChunkID,
	)
	if err != nil {
		return HashChunkResult{}, fmt.Errorf("hashplan: read chunk %d: %w", arg.ChunkID, err)
	}
	var files []fileRef
	for rows.Next() {
		var f fileRef
		if err := rows.Scan(&f.Path, &f.SizeBytes); err != nil {
			rows.Close()
			return HashChunkResult{}, err
		}
		files = append(files, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return HashChunkResult{}, err
	}

	ds, err := deps.Datasources.Get(arg.Datasource)
	if err != nil {
		return HashChunkResult{}, fmt.Errorf("hashplan: %w", err)
	}

	var result HashChunkResult
	var blobRows []model.Row
	var edges []graph.Edge

	for _, f := range files {
		digests, err := HashFile(ctx, ds, f.Path, f.SizeBytes)
		if err != nil {
			deps.Logger.WithFields(common.ErrorFields(err, "hash_file")).WithField("path", f.Path).Warn("hash failed")
			result.Failed++
			continue
		}
		result.Hashed++

		blobRows = append(blobRows, model.Row{
			Table: model.MustIdentifier("blob_hashes"),
			Values: map[model.Identifier]model.ColumnValue{
				"sha3_256":   model.StringValue(digests.SHA3_256),
				"sha256":     model.StringValue(digests.SHA256),
				"sha1":       model.StringValue(digests.SHA1),
				"md5":        model.StringValue(digests.MD5),
				"size_bytes": model.Int64Value(f.SizeBytes),
				"datasource": model.StringValue(arg.Datasource),
				"path":       model.StringValue(f.Path),
			},
		})
		edges = append(edges, graph.Edge{
			Source: filePKString(arg.Datasource, f.Path),
			Target: digests.SHA3_256,
		})
	}

	if err := models.UpsertBatch(ctx, deps.RowStore, collID, models.ModelByName("BlobHashes"), blobRows); err != nil {
		return HashChunkResult{}, fmt.Errorf("hashplan: write blob hashes: %w", err)
	}
	if len(edges) > 0 {
		if _, err := graph.AddEdges(ctx, deps.RowStore.Pool(), "file_hashes", edges); err != nil {
			return HashChunkResult{}, fmt.Errorf("hashplan: write file_hashes edges: %w", err)
		}
	}

	deps.Logger.WithFields(common.IngestFields(arg.Collection, arg.Datasource, "hashplan.hash_chunk", len(files), 0)).
		Infof("hashed chunk %d: %d ok, %d failed", arg.ChunkID, result.Hashed, result.Failed)

	return result, nil
}

// filePKString mirrors the File model's partition+clustering key fingerprint
// so the file_hashes edge's source matches the node-PK map fanout.Writer
// already maintains for File rows.
func filePKString(datasourceID, path string) string {
	row := model.Row{
		Table: model.MustIdentifier("file"),
		Values: map[model.Identifier]model.ColumnValue{
			"datasource": model.StringValue(datasourceID),
			"path":       model.StringValue(path),
		},
	}
	fp, err := row.Fingerprint([]model.Identifier{"datasource", "path"})
	if err != nil {
		return datasourceID + "/" + path
	}
	return fp
}

// hashDatasourceWorkflow is the root workflow from spec.md §4.8: it builds
// the hash plan, then starts one ingest.hashplan.chunk child workflow per
// page — each chunk workflow runs a single hash_chunk activity over every
// file in its chunk sequentially. RunParallel handles the √N grouping
// threshold automatically for large plans, same as the scan workflow's
// subdirectory fan-out.
func hashDatasourceWorkflow(wctx *taskrt.WorkflowContext, arg PlanArgs) (HashChunkResult, error) {
	var plan Plan
	if err := wctx.ExecuteActivity("ingest.hashplan.build_plan", arg, &plan); err != nil {
		return HashChunkResult{}, fmt.Errorf("hashplan workflow: build plan: %w", err)
	}

	if len(plan.Pages) == 0 {
		return HashChunkResult{}, nil
	}

	chunkArgs := make([]interface{}, len(plan.Pages))
	for i, page := range plan.Pages {
		chunkArgs[i] = HashChunkArgs{Collection: arg.Collection, Datasource: arg.Datasource, ChunkID: page.ChunkID}
	}

	results, err := wctx.RunParallel("ingest.hashplan.chunk", chunkArgs)
	if err != nil {
		return HashChunkResult{}, fmt.Errorf("hashplan workflow: fan out: %w", err)
	}

	var total HashChunkResult
	for _, r := range results {
		if r.Err != "" {
			total.Failed++
			continue
		}
		var chunkResult HashChunkResult
		if len(r.Result) == 0 {
			total.Failed++
			continue
		}
		if err := json.Unmarshal(r.Result, &chunkResult); err != nil {
			total.Failed++
			continue
		}
		total.Hashed += chunkResult.Hashed
		total.Failed += chunkResult.Failed
	}

	return total, nil
}
