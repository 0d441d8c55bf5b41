package process

import (
	"context"

	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/models"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

// Flush thresholds, per spec.md §4.9 step 4 exactly: "BlobMime: ... flushed
// every 500 rows.", "ExtractedMetadata: ... flushed every 300 rows.",
// "ExtractedContent: ... flushed every 100 rows or 50 MiB."
const (
	mimeFlushRows     = 500
	metadataFlushRows = 300
	contentFlushRows  = 100
	contentFlushBytes = 50 * 1024 * 1024
)

// batchWriter accumulates rows per table and flushes each independently
// once its own threshold is crossed, per spec.md §4.9's per-table batching.
// A flush writes through models.UpsertBatch, which fans out to the row
// store and C4's search mirror together, matching "on flush, both the row
// store and C4's search mirror are written".
type batchWriter struct {
	rowStore *session.RowStore
	collID   model.Identifier

	mimeRows     []model.Row
	metadataRows []model.Row
	contentRows  []model.Row
	contentBytes int
}

func newBatchWriter(_ context.Context, rowStore *session.RowStore, collID model.Identifier) *batchWriter {
	return &batchWriter{rowStore: rowStore, collID: collID}
}

// write appends c's rows to their respective table batches, flushing any
// batch that crosses its threshold.
func (w *batchWriter) write(ctx context.Context, c computed) error {
	w.mimeRows = append(w.mimeRows, model.Row{
		Table: model.MustIdentifier("blob_mime"),
		Values: map[model.Identifier]model.ColumnValue{
			"sha3_256":          model.StringValue(c.SHA3_256),
			"mime_type":         model.StringValue(c.mime.MimeType),
			"sniffed_mime_type": model.StringValue(c.mime.SniffedMimeType),
			"classifier_score":  model.DoubleValue(c.mime.ClassifierScore),
			"classifier_ruled":  model.BoolValue(c.mime.ClassifierRuled),
		},
	})
	if len(w.mimeRows) >= mimeFlushRows {
		if err := w.flushMime(ctx); err != nil {
			return err
		}
	}

	for _, m := range c.metadata {
		w.metadataRows = append(w.metadataRows, model.Row{
			Table: model.MustIdentifier("extracted_metadata"),
			Values: map[model.Identifier]model.ColumnValue{
				"sha3_256":   model.StringValue(c.SHA3_256),
				"provider":   model.StringValue(m.Provider),
				"key":        model.StringValue(m.Key),
				"list_index": model.Int32Value(m.ListIndex),
				"value":      model.StringValue(m.Value),
			},
		})
	}
	if len(w.metadataRows) >= metadataFlushRows {
		if err := w.flushMetadata(ctx); err != nil {
			return err
		}
	}

	for i, chunk := range c.chunks {
		if chunk == "" {
			continue
		}
		w.contentRows = append(w.contentRows, model.Row{
			Table: model.MustIdentifier("extracted_content"),
			Values: map[model.Identifier]model.ColumnValue{
				"sha3_256":    model.StringValue(c.SHA3_256),
				"chunk_index": model.Int32Value(int32(i)),
				"text":        model.StringValue(chunk),
			},
		})
		w.contentBytes += len(chunk)
	}
	if len(w.contentRows) >= contentFlushRows || w.contentBytes >= contentFlushBytes {
		if err := w.flushContent(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (w *batchWriter) flushMime(ctx context.Context) error {
	if len(w.mimeRows) == 0 {
		return nil
	}
	if err := models.UpsertBatch(ctx, w.rowStore, w.collID, models.ModelByName("BlobMime"), w.mimeRows); err != nil {
		return err
	}
	w.mimeRows = nil
	return nil
}

func (w *batchWriter) flushMetadata(ctx context.Context) error {
	if len(w.metadataRows) == 0 {
		return nil
	}
	if err := models.UpsertBatch(ctx, w.rowStore, w.collID, models.ModelByName("ExtractedMetadata"), w.metadataRows); err != nil {
		return err
	}
	w.metadataRows = nil
	return nil
}

func (w *batchWriter) flushContent(ctx context.Context) error {
	if len(w.contentRows) == 0 {
		return nil
	}
	if err := models.UpsertBatch(ctx, w.rowStore, w.collID, models.ModelByName("ExtractedContent"), w.contentRows); err != nil {
		return err
	}
	w.contentRows = nil
	w.contentBytes = 0
	return nil
}

// flushAll flushes every remaining batch, called once a page's compute
// stage is exhausted.
func (w *batchWriter) flushAll(ctx context.Context) error {
	if err := w.flushMime(ctx); err != nil {
		return err
	}
	if err := w.flushMetadata(ctx); err != nil {
		return err
	}
	return w.flushContent(ctx)
}
