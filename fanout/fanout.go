package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/liquidinvestigations/hoover3-sub000/common"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

// ErrInconsistentDocumentShape is returned by Insert when a batch's rows
// disagree on a field's JSON type after flattening (e.g. one row's
// "patient:forename" is a string, another's is a number). The source treats
// this as an unrecoverable modeling error rather than silently coercing one
// type into another; Go's idiom for that is a returned error, not a panic
// (open question #1 — kept strict, surfaced as an error).
var ErrInconsistentDocumentShape = errors.New("fanout: inconsistent search document shape across batch")

// Writer is C4's entry point: insert/delete batches of rows belonging to one
// model, mirroring them into the search index and the graph node map.
type Writer struct {
	Row    *session.RowStore
	Search *session.SearchSession
	Model  schema.Model

	logger *common.ContextLogger
}

// NewWriter constructs a Writer bound to model m's row store and search
// session for collection coll.
func NewWriter(row *session.RowStore, coll model.Identifier, m schema.Model) *Writer {
	return &Writer{
		Row:    row,
		Search: session.CollectionSearchSession(coll),
		Model:  m,
		logger: common.ServiceLogger("fanout", "1"),
	}
}

// Insert mirrors batch into the search index (add_documents keyed by row
// fingerprint) then the graph node map (graph_node_pk_map), per spec.md
// §4.3. Every per-row operation is idempotent on fingerprint, so a retried
// Insert after a partial failure converges without special-casing. Search is
// best-effort eventual: Insert does not wait for the Meilisearch task to
// finish (open question #2 — deletes do, inserts don't).
func (w *Writer) Insert(ctx context.Context, batch []model.Row) error {
	start := time.Now()
	pk := pkFieldNames(w.Model)

	docs := make([]map[string]interface{}, 0, len(batch))
	fingerprints := make([]string, 0, len(batch))
	pkValues := make([]model.ColumnValue, 0, len(batch))

	seenShape := make(map[string]string)
	for _, row := range batch {
		fp, err := row.Fingerprint(pk)
		if err != nil {
			return fmt.Errorf("fanout: insert: %w", err)
		}
		rowJSON, err := row.AsJSON()
		if err != nil {
			return fmt.Errorf("fanout: insert: %w", err)
		}
		doc := Flatten(map[string]interface{}{
			"id":             fp,
			"table":          w.Model.TableName.String(),
			w.Model.TableName.String(): rowJSON,
		})
		if err := checkShapeConsistency(seenShape, doc); err != nil {
			return err
		}
		docs = append(docs, doc)
		fingerprints = append(fingerprints, fp)

		tuple := make([]model.ColumnValue, len(pk))
		for i, name := range pk {
			v, ok := row.Get(name)
			if !ok {
				return fmt.Errorf("fanout: insert: row missing primary key field %s", name)
			}
			tuple[i] = v
		}
		pkValues = append(pkValues, model.ListValue(tuple...))
	}

	if len(docs) > 0 {
		if _, err := w.Search.Index.AddDocuments(docs, "id"); err != nil {
			return fmt.Errorf("fanout: insert: search add_documents: %w", err)
		}
	}

	if err := w.insertGraphNodes(ctx, fingerprints, pkValues); err != nil {
		return fmt.Errorf("fanout: insert: %w", err)
	}

	w.logger.WithFields(common.StorageFields("fanout", w.Model.TableName.String(), len(batch), time.Since(start))).Info("insert batch complete")
	return nil
}

// Delete removes batch's rows from the search index and the graph node map
// by fingerprint, then lets the caller (graph package) remove downstream
// edge-table entries. Unlike Insert, Delete waits for the search task to
// finish before returning, so that a caller which deletes and then re-queries
// search observes the deletion (open question #2).
func (w *Writer) Delete(ctx context.Context, batch []model.Row) error {
	start := time.Now()
	pk := pkFieldNames(w.Model)

	fingerprints := make([]string, 0, len(batch))
	for _, row := range batch {
		fp, err := row.Fingerprint(pk)
		if err != nil {
			return fmt.Errorf("fanout: delete: %w", err)
		}
		fingerprints = append(fingerprints, fp)
	}
	if len(fingerprints) == 0 {
		return nil
	}

	task, err := w.Search.Index.DeleteDocuments(fingerprints)
	if err != nil {
		return fmt.Errorf("fanout: delete: search delete_documents: %w", err)
	}
	if task != nil {
		client := session.GlobalSearchClient()
		if _, err := client.WaitForTask(task.TaskUID, 0); err != nil {
			return fmt.Errorf("fanout: delete: wait for search task: %w", err)
		}
	}

	if err := w.deleteGraphNodes(ctx, fingerprints); err != nil {
		return fmt.Errorf("fanout: delete: %w", err)
	}

	w.logger.WithFields(common.StorageFields("fanout", w.Model.TableName.String(), len(batch), time.Since(start))).Info("delete batch complete")
	return nil
}

func (w *Writer) insertGraphNodes(ctx context.Context, fingerprints []string, pkValues []model.ColumnValue) error {
	batch := &pgx.Batch{}
	for i, fp := range fingerprints {
		b, err := pkValues[i].Native()
		if err != nil {
			return fmt.Errorf("graph node pk map: %w", err)
		}
		valueJSON, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("graph node pk map: %w", err)
		}
		batch.Queue(
			`INSERT INTO graph_node_pk_map (pk, value) VALUES ($1, $2)
			 ON CONFLICT (pk) DO NOTHING`,
			fp, valueJSON,
		)
	}
	br := w.Row.Pool().SendBatch(ctx, batch)
	defer br.Close()
	for range fingerprints {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("graph node pk map: %w", err)
		}
	}
	return nil
}

func (w *Writer) deleteGraphNodes(ctx context.Context, fingerprints []string) error {
	batch := &pgx.Batch{}
	for _, fp := range fingerprints {
		batch.Queue(`DELETE FROM graph_node_pk_map WHERE pk = $1`, fp)
	}
	br := w.Row.Pool().SendBatch(ctx, batch)
	defer br.Close()
	for range fingerprints {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("graph node pk map: %w", err)
		}
	}
	return nil
}

func pkFieldNames(m schema.Model) []model.Identifier {
	fields := m.PrimaryKeyFields()
	out := make([]model.Identifier, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// checkShapeConsistency records each flattened field's Go type the first time
// it is seen in a batch and errors if a later document disagrees, enforcing
// open question #1's strict interpretation.
func checkShapeConsistency(seen map[string]string, doc map[string]interface{}) error {
	for k, v := range doc {
		t := fmt.Sprintf("%T", v)
		if prev, ok := seen[k]; ok {
			if prev != t {
				return fmt.Errorf("%w: field %q is %s in one row and %s in another", ErrInconsistentDocumentShape, k, prev, t)
			}
			continue
		}
		seen[k] = t
	}
	return nil
}
