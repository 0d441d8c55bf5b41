package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/liquidinvestigations/hoover3-sub000/fanout"
	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
	"github.com/liquidinvestigations/hoover3-sub000/session"
)

// UpsertBatch writes rows to collID's row-store table for m, then mirrors
// them into the search index and graph node map via fanout.Writer. Every
// ingestion pipeline stage (C8 scan, C9 hash/plan, C10 processing) writes
// through this same path, matching C4's write-then-mirror order.
func UpsertBatch(ctx context.Context, rowStore *session.RowStore, collID model.Identifier, m schema.Model, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	coll := rowStore.CollectionSession(collID)
	if err := upsertRowStore(ctx, coll, m, rows); err != nil {
		return fmt.Errorf("models: upsert %s: %w", m.TableName, err)
	}
	writer := fanout.NewWriter(rowStore, collID, m)
	if err := writer.Insert(ctx, rows); err != nil {
		return fmt.Errorf("models: upsert %s: %w", m.TableName, err)
	}
	return nil
}

func upsertRowStore(ctx context.Context, coll *session.CollectionSession, m schema.Model, rows []model.Row) error {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Name.String()
	}
	pk := pkNames(m)
	conflictClause := conflictUpdateClause(cols, pk)

	batch := &pgx.Batch{}
	for _, row := range rows {
		args := make([]interface{}, len(cols))
		placeholders := make([]string, len(cols))
		for i, f := range m.Fields {
			v, ok := row.Get(f.Name)
			if !ok {
				return fmt.Errorf("row for %s missing field %s", m.TableName, f.Name)
			}
			native, err := v.Native()
			if err != nil {
				return fmt.Errorf("row for %s field %s: %w", m.TableName, f.Name, err)
			}
			args[i] = native
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		sql := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
			coll.Table(m.TableName),
			strings.Join(cols, ", "),
			strings.Join(placeholders, ", "),
			strings.Join(pk, ", "),
			conflictClause,
		)
		batch.Queue(sql, args...)
	}

	br := coll.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// conflictUpdateClause returns "DO UPDATE SET ..." over the non-key columns,
// or "DO NOTHING" when every column is part of the primary key (e.g. a pure
// association table like BlobProcessingPlanPageBlobs).
func conflictUpdateClause(cols, pk []string) string {
	pkSet := make(map[string]bool, len(pk))
	for _, k := range pk {
		pkSet[k] = true
	}
	var sets []string
	for _, c := range cols {
		if pkSet[c] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	if len(sets) == 0 {
		return "DO NOTHING"
	}
	return "DO UPDATE SET " + strings.Join(sets, ", ")
}

func pkNames(m schema.Model) []string {
	fields := m.PrimaryKeyFields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name.String()
	}
	return out
}

// ModelByName looks up a registered Model by its PascalCase Name, panicking
// if it is not found — used by pipeline stages that reference their own row
// entities by name when they write them.
func ModelByName(name string) schema.Model {
	for _, m := range schema.Default.ScyllaSchema() {
		if m.Name == name {
			return m
		}
	}
	panic(fmt.Sprintf("models: no registered model named %s", name))
}
