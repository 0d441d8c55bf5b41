// Package scan implements C8, the scan pipeline: a per-invocation activity
// that lists one directory and writes Directory/File rows, and a recursive
// workflow that fans out over subdirectories and aggregates totals, per
// spec.md §4.7. Both are registered against taskrt so that repeated scans of
// an already-converged datasource are no-ops (workflow IDs are
// argument-derived) and partial-failure restarts resume cleanly.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/datasource"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/models"
	"github.com/liquidinvestigations/hoover3-sub000/session"
	"github.com/liquidinvestigations/hoover3-sub000/taskrt"
)

// QueueName is the taskrt queue scan activities and workflows register
// against.
const QueueName = "scan"

// Args identifies one scan invocation: which collection/datasource/path to
// list. Path is "" for the datasource root.
type Args struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
	Path       string `json:"path"`
}

// Totals tallies file/dir counts, bytes, and errors either for one
// directory's immediate children (scan_children_*) or for its whole subtree
// (scan_total_*).
type Totals struct {
	FileCount int64 `json:"file_count"`
	DirCount  int64 `json:"dir_count"`
	SizeBytes int64 `json:"size_bytes"`
	Errors    int64 `json:"errors"`
}

func (t *Totals) add(o Totals) {
	t.FileCount += o.FileCount
	t.DirCount += o.DirCount
	t.SizeBytes += o.SizeBytes
	t.Errors += o.Errors
}

// ListResult is the per-invocation activity's return value: the children
// tally plus the subdirectory paths for the workflow to recurse into.
type ListResult struct {
	Children Totals   `json:"children"`
	Subdirs  []string `json:"subdirs"`
}

// Result is what the scan workflow returns for one directory: its own
// children tally plus the recursive subtree tally.
type Result struct {
	Path     string `json:"path"`
	Children Totals `json:"children"`
	Total    Totals `json:"total"`
}

// totalArg bundles a scan_total write for the "ingest.scan.update_total"
// activity — the workflow's own aggregation step is worker-local
// computation, but persisting it is I/O and goes through an activity like
// every other mutation.
type totalArg struct {
	Collection string `json:"collection"`
	Datasource string `json:"datasource"`
	Path       string `json:"path"`
	Total      Totals `json:"total"`
}

// Deps bundles the live resources the scan activity needs, resolved once at
// process bootstrap and closed over by the registered activity/workflow
// functions (taskrt activities are plain functions, so there is no
// constructor-injected struct to carry this through the registry itself).
type Deps struct {
	Datasources *datasource.Registry
	RowStore    *session.RowStore
	Logger      *common.ContextLogger
}

// Register wires the scan activity and workflow into taskrt.Default, bound
// to deps. Call once during worker bootstrap.
func Register(deps Deps) {
	taskrt.RegisterActivity(QueueName, "ingest.scan.list_directory", func(ctx context.Context, arg Args) (ListResult, error) {
		return listDirectoryActivity(ctx, deps, arg)
	})
	taskrt.RegisterActivity(QueueName, "ingest.scan.update_total", func(ctx context.Context, arg totalArg) (struct{}, error) {
		err := updateDirectoryTotalTally(ctx, deps.RowStore, model.MustIdentifier(arg.Collection), arg.Datasource, arg.Path, arg.Total)
		return struct{}{}, err
	})
	taskrt.RegisterWorkflow(QueueName, "ingest.scan.directory", func(wctx *taskrt.WorkflowContext, arg Args) (Result, error) {
		return scanDirectoryWorkflow(wctx, arg)
	})
}

// listDirectoryActivity implements spec.md §4.7's per-invocation activity:
// list root/path's immediate children, write their rows, tally
// scan_children, and return the child-directory paths for the workflow to
// recurse into.
func listDirectoryActivity(ctx context.Context, deps Deps, arg Args) (ListResult, error) {
	start := time.Now()
	ds, err := deps.Datasources.Get(arg.Datasource)
	if err != nil {
		return ListResult{}, fmt.Errorf("scan: %w", err)
	}

	entries, err := ds.List(ctx, arg.Path)
	if err != nil {
		return ListResult{}, fmt.Errorf("scan: list %s/%s: %w", arg.Datasource, arg.Path, err)
	}

	var dirRows, fileRows []model.Row
	var children Totals
	var subdirs []string

	for _, e := range entries {
		childPath := joinPath(arg.Path, e.Name)
		if e.IsDir {
			children.DirCount++
			subdirs = append(subdirs, childPath)
			dirRows = append(dirRows, model.Row{
				Table: model.MustIdentifier("directory"),
				Values: map[model.Identifier]model.ColumnValue{
					"datasource":  model.StringValue(arg.Datasource),
					"path":        model.StringValue(childPath),
					"name":        model.StringValue(e.Name),
					"parent_path": model.StringValue(arg.Path),
				},
			})
			continue
		}
		children.FileCount++
		children.SizeBytes += e.SizeBytes
		fileRows = append(fileRows, model.Row{
			Table: model.MustIdentifier("file"),
			Values: map[model.Identifier]model.ColumnValue{
				"datasource":  model.StringValue(arg.Datasource),
				"path":        model.StringValue(childPath),
				"name":        model.StringValue(e.Name),
				"parent_path": model.StringValue(arg.Path),
				"size_bytes":  model.Int64Value(e.SizeBytes),
				"modified_at": model.TimestampValue(e.ModifiedAt),
			},
		})
	}

	collID := model.MustIdentifier(arg.Collection)
	if err := models.UpsertBatch(ctx, deps.RowStore, collID, models.ModelByName("Directory"), dirRows); err != nil {
		return ListResult{}, fmt.Errorf("scan: write directories: %w", err)
	}
	if err := models.UpsertBatch(ctx, deps.RowStore, collID, models.ModelByName("File"), fileRows); err != nil {
		return ListResult{}, fmt.Errorf("scan: write files: %w", err)
	}
	if err := updateDirectoryChildrenTally(ctx, deps.RowStore, collID, arg.Datasource, arg.Path, children); err != nil {
		return ListResult{}, fmt.Errorf("scan: update children tally: %w", err)
	}

	deps.Logger.WithFields(common.IngestFields(arg.Collection, arg.Datasource, "scan", len(entries), time.Since(start))).Info("listed directory")

	return ListResult{Children: children, Subdirs: subdirs}, nil
}

// scanDirectoryWorkflow recurses into subdirectories, then aggregates its
// own children plus every subdirectory's total into its own scan_total, per
// spec.md §4.7's workflow step. Small fan-outs run directly; large ones are
// grouped — both paths are the same RunParallel call, since taskrt already
// implements the √N grouping threshold internally.
func scanDirectoryWorkflow(wctx *taskrt.WorkflowContext, arg Args) (Result, error) {
	var listed ListResult
	if err := wctx.ExecuteActivity("ingest.scan.list_directory", arg, &listed); err != nil {
		return Result{}, fmt.Errorf("scan workflow %s: %w", arg.Path, err)
	}

	total := listed.Children

	if len(listed.Subdirs) > 0 {
		childArgs := make([]interface{}, len(listed.Subdirs))
		for i, p := range listed.Subdirs {
			childArgs[i] = Args{Collection: arg.Collection, Datasource: arg.Datasource, Path: p}
		}

		results, err := wctx.RunParallel("ingest.scan.directory", childArgs)
		if err != nil {
			return Result{}, fmt.Errorf("scan workflow %s: fan out: %w", arg.Path, err)
		}

		for _, r := range results {
			if r.Err != "" {
				total.Errors++
				continue
			}
			var childResult Result
			if err := decodeResult(r.Result, &childResult); err != nil {
				total.Errors++
				continue
			}
			total.add(childResult.Total)
		}
	}

	var ignored struct{}
	if err := wctx.ExecuteActivity("ingest.scan.update_total", totalArg{
		Collection: arg.Collection, Datasource: arg.Datasource, Path: arg.Path, Total: total,
	}, &ignored); err != nil {
		return Result{}, fmt.Errorf("scan workflow %s: persist total: %w", arg.Path, err)
	}

	return Result{Path: arg.Path, Children: listed.Children, Total: total}, nil
}
