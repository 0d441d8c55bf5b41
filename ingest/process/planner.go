package process

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liquidinvestigations/hoover3-sub000/cache"
	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/models"
	"github.com/liquidinvestigations/hoover3-sub000/session"
	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// PageMaxBlobs and the small/big byte thresholds bound one
// BlobProcessingPlan page, per spec.md §4.8: "group distinct blobs into
// processing pages labeled small or big (by aggregate bytes); this label
// determines which queue executes them".
const (
	PageMaxBlobs    = 500
	smallPageBudget = 256 * 1024 * 1024
)

// QueueClassSmall and QueueClassBig are the two BlobProcessingPlan.queue_class
// values.
const (
	QueueClassSmall = "small"
	QueueClassBig   = "big"
)

// PlanCacheTTL mirrors hashplan.PlanCacheTTL: the blob processing plan is
// memoized per (collection, datasource) for the same reason — repeated
// runs over an unchanged hash set shouldn't repartition.
const PlanCacheTTL = 10 * time.Minute

// PlanArgs identifies which datasource's distinct blobs to partition.
type PlanArgs struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
}

// blobSize is one distinct blob's identity and size, read back from
// BlobHashes for planning.
type blobSize struct {
	SHA3_256  string
	SizeBytes int64
	Path      string
}

// Page is one bounded BlobProcessingPlan page.
type Page struct {
	PageID     int64
	FileCount  int64
	SizeBytes  int64
	QueueClass string
	Blobs      []blobSize
}

// BlobPlan is the full set of pages computed for one (collection,
// datasource) pair.
type BlobPlan struct {
	Pages []Page
}

type blobPlanKey struct {
	Collection string
	Datasource string
}

// buildBlobPlanActivity reads every distinct BlobHashes row produced by C9
// for arg.Datasource, partitions them into PageMaxBlobs-bounded pages
// labeled small/big by aggregate bytes, persists BlobProcessingPlan and
// BlobProcessingPlanPageBlobs rows, and returns the plan — memoized via
// cache.WithCache the same way hashplan.buildPlanActivity is.
func buildBlobPlanActivity(ctx context.Context, deps Deps, arg PlanArgs) (BlobPlan, error) {
	return cache.WithCache(ctx, deps.Redis, "process.build_plan", PlanCacheTTL,
		blobPlanKey{Collection: arg.Collection, Datasource: arg.Datasource},
		func(ctx context.Context) (BlobPlan, error) {
			collID := model.MustIdentifier(arg.Collection)
			blobs, err := listDistinctBlobs(ctx, deps.RowStore, collID, arg.Datasource)
			if err != nil {
				return BlobPlan{}, fmt.Errorf("process: list blobs: %w", err)
			}

			plan := partitionBlobs(blobs, PageMaxBlobs, smallPageBudget)

			if err := writeBlobPlan(ctx, deps.RowStore, collID, arg.Datasource, plan); err != nil {
				return BlobPlan{}, fmt.Errorf("process: write plan: %w", err)
			}

			deps.Logger.WithFields(common.IngestFields(arg.Collection, arg.Datasource, "process.build_plan", len(blobs), 0)).
				Infof("partitioned %d blobs into %d pages", len(blobs), len(plan.Pages))

			return plan, nil
		},
	)
}

func listDistinctBlobs(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID string) ([]blobSize, error) {
	coll := rowStore.CollectionSession(collID)
	rows, err := coll.Query(ctx,
		fmt.Sprintf(`SELECT sha3_256, size_bytes, path FROM %s WHERE datasource = $1`, coll.Table(model.MustIdentifier("blob_hashes"))),
		datasourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []blobSize
	for rows.Next() {
		var b blobSize
		if err := rows.Scan(&b.SHA3_256, &b.SizeBytes, &b.Path); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// partitionBlobs greedily bin-packs blobs into pages bounded by maxBlobs,
// labeling each page small or big by whether its aggregate bytes stay
// within smallBudget. A blob that would push a small page over smallBudget
// starts a new page. A blob over smallBudget is never dropped: its page is
// labeled big, and later blobs join that page until maxBlobs is reached.
func partitionBlobs(blobs []blobSize, maxBlobs int, smallBudget int64) BlobPlan {
	var plan BlobPlan
	var cur Page
	cur.PageID = 0

	flush := func() {
		if cur.FileCount == 0 {
			return
		}
		cur.QueueClass = QueueClassSmall
		if cur.SizeBytes > smallBudget {
			cur.QueueClass = QueueClassBig
		}
		plan.Pages = append(plan.Pages, cur)
	}

	for _, b := range blobs {
		overCount := cur.FileCount+1 > int64(maxBlobs)
		overBudget := cur.FileCount > 0 && cur.SizeBytes+b.SizeBytes > smallBudget && cur.SizeBytes <= smallBudget
		if overCount || overBudget {
			flush()
			cur = Page{PageID: cur.PageID + 1}
		}
		cur.Blobs = append(cur.Blobs, b)
		cur.FileCount++
		cur.SizeBytes += b.SizeBytes
	}
	flush()

	return plan
}

func writeBlobPlan(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID string, plan BlobPlan) error {
	var pageRows, blobRows []model.Row
	for _, page := range plan.Pages {
		pageRows = append(pageRows, model.Row{
			Table: model.MustIdentifier("blob_processing_plan"),
			Values: map[model.Identifier]model.ColumnValue{
				"datasource":  model.StringValue(datasourceID),
				"page_id":     model.Int64Value(page.PageID),
				"file_count":  model.Int64Value(page.FileCount),
				"size_bytes":  model.Int64Value(page.SizeBytes),
				"queue_class": model.StringValue(page.QueueClass),
				"is_started":  model.BoolValue(false),
			},
		})
		for _, b := range page.Blobs {
			blobRows = append(blobRows, model.Row{
				Table: model.MustIdentifier("blob_processing_plan_page_blobs"),
				Values: map[model.Identifier]model.ColumnValue{
					"datasource": model.StringValue(datasourceID),
					"page_id":    model.Int64Value(page.PageID),
					"sha3_256":   model.StringValue(b.SHA3_256),
				},
			})
		}
	}

	if err := models.UpsertBatch(ctx, rowStore, collID, models.ModelByName("BlobProcessingPlan"), pageRows); err != nil {
		return err
	}
	return models.UpsertBatch(ctx, rowStore, collID, models.ModelByName("BlobProcessingPlanPageBlobs"), blobRows)
}

// pageBlobs reads one page's BlobProcessingPlanPageBlobs, joined against
// BlobHashes for size and provenance path, for runPageActivity's enumerator
// stage.
func pageBlobs(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID string, pageID int64) ([]blobRef, error) {
	coll := rowStore.CollectionSession(collID)
	rows, err := coll.Query(ctx,
		fmt.Sprintf(`SELECT p.sha3_256, h.size_bytes, h.path
		              FROM %s p JOIN %s h ON h.sha3_256 = p.sha3_256 AND h.datasource = p.datasource
		              WHERE p.datasource = $1 AND p.page_id = $2`,
			coll.Table(model.MustIdentifier("blob_processing_plan_page_blobs")),
			coll.Table(model.MustIdentifier("blob_hashes")),
		),
		datasourceID, pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []blobRef
	for rows.Next() {
		var b blobRef
		if err := rows.Scan(&b.SHA3_256, &b.SizeBytes, &b.Path); err != nil {
			return nil, err
		}
		b.Datasource = datasourceID
		out = append(out, b)
	}
	return out, rows.Err()
}

// processDatasourceWorkflow is the root workflow that builds the blob
// processing plan, then starts one ingest.process.page child workflow per
// page, mirroring hashplan's root-workflow-per-chunk shape.
func processDatasourceWorkflow(wctx *taskrt.WorkflowContext, arg PlanArgs) (PageResult, error) {
	var plan BlobPlan
	if err := wctx.ExecuteActivity("ingest.process.build_plan", arg, &plan); err != nil {
		return PageResult{}, fmt.Errorf("process workflow: build plan: %w", err)
	}

	if len(plan.Pages) == 0 {
		return PageResult{}, nil
	}

	pageArgs := make([]interface{}, len(plan.Pages))
	for i, page := range plan.Pages {
		pageArgs[i] = PageArgs{Collection: arg.Collection, Datasource: arg.Datasource, PageID: page.PageID}
	}

	results, err := wctx.RunParallel("ingest.process.page", pageArgs)
	if err != nil {
		return PageResult{}, fmt.Errorf("process workflow: fan out: %w", err)
	}

	var total PageResult
	for _, r := range results {
		if r.Err != "" {
			total.Failed++
			continue
		}
		var pageResult PageResult
		if len(r.Result) == 0 {
			total.Failed++
			continue
		}
		if err := json.Unmarshal(r.Result, &pageResult); err != nil {
			total.Failed++
			continue
		}
		total.Processed += pageResult.Processed
		total.Failed += pageResult.Failed
	}

	return total, nil
}
