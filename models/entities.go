// Package models declares, once, every row entity and graph edge type the
// ingestion pipelines (C8/C9/C10) read and write, registering them against
// schema.Default from init() per the "reflection-style schema -> tagged
// inventory" design note (see schema/registry.go).
package models

import (
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

func col(name string, t model.ColumnType, doc string) schema.Field {
	return schema.Field{Name: schema.Identifier(name), Type: t, Doc: doc}
}

func pk(f schema.Field) schema.Field {
	f.PartitionKey = true
	return f
}

func ck(f schema.Field) schema.Field {
	f.ClusteringKey = true
	return f
}

func searched(f schema.Field, store, index, facet bool) schema.Field {
	f.SearchStore = store
	f.SearchIndex = index
	f.SearchFacet = facet
	return f
}

func init() {
	schema.Default.RegisterModel(schema.Model{
		Name:      "Directory",
		TableName: model.MustIdentifier("directory"),
		Doc:       "One filesystem directory discovered by a scan activity.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("path", model.Scalar(model.KindString), "Directory path relative to the datasource root.")),
			searched(col("name", model.Scalar(model.KindString), "Base name of the directory."), true, true, false),
			col("parent_path", model.Scalar(model.KindString), "Path of the enclosing directory, empty at the datasource root."),
			col("scan_children_file_count", model.Scalar(model.KindInt64), "Immediate child file count from the last scan activity."),
			col("scan_children_dir_count", model.Scalar(model.KindInt64), "Immediate child directory count from the last scan activity."),
			col("scan_children_file_size_bytes", model.Scalar(model.KindInt64), "Total bytes across immediate child files."),
			col("scan_children_errors", model.Scalar(model.KindInt64), "Count of per-child scan errors tallied into this directory."),
			col("scan_total_file_count", model.Scalar(model.KindInt64), "Recursive file count across this subtree."),
			col("scan_total_dir_count", model.Scalar(model.KindInt64), "Recursive directory count across this subtree."),
			col("scan_total_file_size_bytes", model.Scalar(model.KindInt64), "Recursive total bytes across this subtree."),
			col("scan_total_errors", model.Scalar(model.KindInt64), "Recursive error count across this subtree."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "File",
		TableName: model.MustIdentifier("file"),
		Doc:       "One filesystem file discovered by a scan activity, prior to hashing.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("path", model.Scalar(model.KindString), "File path relative to the datasource root.")),
			searched(col("name", model.Scalar(model.KindString), "Base name of the file."), true, true, false),
			col("parent_path", model.Scalar(model.KindString), "Path of the enclosing directory."),
			searched(col("size_bytes", model.Scalar(model.KindInt64), "File size in bytes as reported by the datasource listing."), true, false, false),
			searched(col("modified_at", model.Scalar(model.KindTimestamp), "Last-modified timestamp as reported by the datasource listing."), true, true, false),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "BlobHashes",
		TableName: model.MustIdentifier("blob_hashes"),
		Doc:       "Four-digest fingerprint of one content-addressed blob.",
		Fields: []schema.Field{
			pk(col("sha3_256", model.Scalar(model.KindString), "SHA3-256 digest, hex-encoded; the blob's primary key.")),
			col("sha256", model.Scalar(model.KindString), "SHA-256 digest, hex-encoded."),
			col("sha1", model.Scalar(model.KindString), "SHA-1 digest, hex-encoded."),
			col("md5", model.Scalar(model.KindString), "MD5 digest, hex-encoded."),
			searched(col("size_bytes", model.Scalar(model.KindInt64), "Blob size in bytes."), true, false, false),
			col("datasource", model.Scalar(model.KindString), "Datasource id of the file this hash was last computed from (provenance)."),
			col("path", model.Scalar(model.KindString), "File path of the file this hash was last computed from (provenance)."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "HashPlanPage",
		TableName: model.MustIdentifier("hash_plan_page"),
		Doc:       "One work-unit-bounded chunk of a hash plan for a datasource.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("chunk_id", model.Scalar(model.KindInt64), "Chunk sequence number within the datasource's hash plan.")),
			col("file_count", model.Scalar(model.KindInt64), "Number of files assigned to this chunk."),
			col("size_bytes", model.Scalar(model.KindInt64), "Total bytes assigned to this chunk."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "HashPlan",
		TableName: model.MustIdentifier("hash_plan"),
		Doc:       "One file assigned to a hash plan chunk, awaiting digest computation.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("chunk_id", model.Scalar(model.KindInt64), "Chunk this file was assigned to.")),
			ck(col("path", model.Scalar(model.KindString), "File path relative to the datasource root.")),
			col("size_bytes", model.Scalar(model.KindInt64), "File size in bytes, from the scan-time File row."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "BlobProcessingPlan",
		TableName: model.MustIdentifier("blob_processing_plan"),
		Doc:       "One processing-queue page grouping distinct blobs for C10, labeled small or big by aggregate bytes.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("page_id", model.Scalar(model.KindInt64), "Page sequence number within the datasource's processing plan.")),
			col("file_count", model.Scalar(model.KindInt64), "Number of distinct blobs assigned to this page."),
			col("size_bytes", model.Scalar(model.KindInt64), "Total bytes across the blobs assigned to this page."),
			col("queue_class", model.Scalar(model.KindString), "\"small\" or \"big\", selecting which worker pool processes this page."),
			col("is_started", model.Scalar(model.KindBoolean), "Set once a processing activity has claimed this page."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "BlobProcessingPlanPageBlobs",
		TableName: model.MustIdentifier("blob_processing_plan_page_blobs"),
		Doc:       "One blob assigned to a BlobProcessingPlan page.",
		Fields: []schema.Field{
			pk(col("datasource", model.Scalar(model.KindString), "Owning datasource id.")),
			ck(col("page_id", model.Scalar(model.KindInt64), "Page this blob was assigned to.")),
			ck(col("sha3_256", model.Scalar(model.KindString), "The assigned blob's primary key.")),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "BlobMime",
		TableName: model.MustIdentifier("blob_mime"),
		Doc:       "MIME classification of one blob: sniffed magic bytes plus a scored learned classification.",
		Fields: []schema.Field{
			pk(col("sha3_256", model.Scalar(model.KindString), "The classified blob's primary key.")),
			searched(col("mime_type", model.Scalar(model.KindString), "Final MIME type after reconciling sniffed and classified results."), true, true, true),
			col("sniffed_mime_type", model.Scalar(model.KindString), "Magic-byte sniffing result (net/http.DetectContentType)."),
			col("classifier_score", model.Scalar(model.KindDouble), "Learned classifier's confidence score for mime_type."),
			col("classifier_ruled", model.Scalar(model.KindBoolean), "True if mime_type was ruled by sniffing, false if only inferred by the classifier."),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "ExtractedMetadata",
		TableName: model.MustIdentifier("extracted_metadata"),
		Doc:       "One key/value metadata entry produced by a content-extraction provider for one blob.",
		Fields: []schema.Field{
			pk(col("sha3_256", model.Scalar(model.KindString), "The source blob's primary key.")),
			ck(col("provider", model.Scalar(model.KindString), "Name of the extraction provider that produced this entry (e.g. \"exif\").")),
			ck(col("key", model.Scalar(model.KindString), "Metadata key within the provider's namespace.")),
			ck(col("list_index", model.Scalar(model.KindInt32), "Index within a repeated key's value list; 0 for scalar keys.")),
			searched(col("value", model.Scalar(model.KindString), "Metadata value, stringified."), true, true, false),
		},
	})

	schema.Default.RegisterModel(schema.Model{
		Name:      "ExtractedContent",
		TableName: model.MustIdentifier("extracted_content"),
		Doc:       "One paragraph-bounded chunk of a blob's extracted text, ordered by chunk_index.",
		Fields: []schema.Field{
			pk(col("sha3_256", model.Scalar(model.KindString), "The source blob's primary key.")),
			ck(col("chunk_index", model.Scalar(model.KindInt32), "Zero-based position of this chunk within the blob's extracted text.")),
			searched(col("text", model.Scalar(model.KindString), "Chunk text, at most 768 KiB."), true, false, false),
		},
	})

	schema.Default.RegisterEdge(schema.EdgeType{
		Name:       "file_hashes",
		Source:     "File",
		Target:     "BlobHashes",
		Discipline: schema.Stored,
		Doc:        "Links a scanned File to its computed BlobHashes once hashing completes.",
	})
}
