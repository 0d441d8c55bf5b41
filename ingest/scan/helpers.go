package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}

func decodeResult(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("scan: empty child result")
	}
	return json.Unmarshal(raw, out)
}

// updateDirectoryChildrenTally writes t into the named directory's
// scan_children_* columns. path == "" is the datasource root, which has no
// Directory row of its own (it is the collection/datasource's implicit
// top), so the root's children tally is a no-op write target; the workflow
// still returns it to its own caller via Result.
func updateDirectoryChildrenTally(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID, path string, t Totals) error {
	if path == "" {
		return nil
	}
	coll := rowStore.CollectionSession(collID)
	return coll.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET
			scan_children_file_count = $1,
			scan_children_dir_count = $2,
			scan_children_file_size_bytes = $3,
			scan_children_errors = $4
		  WHERE datasource = $5 AND path = $6`, coll.Table(model.MustIdentifier("directory"))),
		t.FileCount, t.DirCount, t.SizeBytes, t.Errors, datasourceID, path,
	)
}

// updateDirectoryTotalTally writes t into the named directory's
// scan_total_* columns, the recursive subtree aggregate computed by the
// workflow after all child workflows complete. path == "" is a no-op for
// the same reason as updateDirectoryChildrenTally.
func updateDirectoryTotalTally(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, datasourceID, path string, t Totals) error {
	if path == "" {
		return nil
	}
	coll := rowStore.CollectionSession(collID)
	return coll.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET
			scan_total_file_count = $1,
			scan_total_dir_count = $2,
			scan_total_file_size_bytes = $3,
			scan_total_errors = $4
		  WHERE datasource = $5 AND path = $6`, coll.Table(model.MustIdentifier("directory"))),
		t.FileCount, t.DirCount, t.SizeBytes, t.Errors, datasourceID, path,
	)
}
