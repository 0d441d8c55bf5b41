package session

import (
	"context"
	"fmt"
	"time"

	"github.com/liquidinvestigations/hoover3-sub000/model"
	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

const (
	lifecycleRetries = 3
	lifecycleBackoff = 200 * time.Millisecond
)

// SpaceExists reports whether collection id's Postgres schema has already
// been created.
func (r *RowStore) SpaceExists(ctx context.Context, id model.Identifier) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		id.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("session: check space %s: %w", id, err)
	}
	return exists, nil
}

// CreateSpace creates collection id's row-store schema and, within it, every
// table named in schema.Default's registered models plus the shared graph
// tables, retrying up to lifecycleRetries times with a short fixed backoff on
// transient connection failure (mirrors db.PGMigrations' role, generalized
// from a single hardcoded RabbitLog table to the full dynamic schema
// registry).
func (r *RowStore) CreateSpace(ctx context.Context, id model.Identifier) error {
	frags, err := schema.Default.CharybdisDDLFragments()
	if err != nil {
		return fmt.Errorf("session: create space %s: ddl: %w", id, err)
	}
	frags = append(frags, schema.SharedTableDDL()...)

	var lastErr error
	for attempt := 0; attempt < lifecycleRetries; attempt++ {
		lastErr = r.createSpaceOnce(ctx, id, frags)
		if lastErr == nil {
			return nil
		}
		select {
		case <-time.After(lifecycleBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("session: create space %s: %w", id, lastErr)
}

func (r *RowStore) createSpaceOnce(ctx context.Context, id model.Identifier, frags []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", id)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s", id)); err != nil {
		return err
	}
	for _, frag := range frags {
		if _, err := tx.Exec(ctx, frag); err != nil {
			return fmt.Errorf("ddl %q: %w", frag, err)
		}
	}
	return tx.Commit(ctx)
}

// DropSpace drops collection id's schema and everything in it. Irreversible;
// callers are expected to have already confirmed deletion at a higher layer.
func (r *RowStore) DropSpace(ctx context.Context, id model.Identifier) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", id))
	if err != nil {
		return fmt.Errorf("session: drop space %s: %w", id, err)
	}
	return nil
}

// ListSpaces returns every collection schema currently present, excluding
// Postgres' own system schemas.
func (r *RowStore) ListSpaces(ctx context.Context) ([]model.Identifier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name NOT IN ('public', 'information_schema')
		   AND schema_name NOT LIKE 'pg_%'`,
	)
	if err != nil {
		return nil, fmt.Errorf("session: list spaces: %w", err)
	}
	defer rows.Close()

	var out []model.Identifier
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("session: list spaces: %w", err)
		}
		id, err := model.NewIdentifier(name)
		if err != nil {
			continue // not one of ours (e.g. an extension-created schema)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MigrateCollectionSpace re-applies every registered DDL fragment to an
// already-created collection schema, idempotently (every fragment is an `IF
// NOT EXISTS` form), bringing it up to date with schema.Default after new
// models are registered.
func (r *RowStore) MigrateCollectionSpace(ctx context.Context, id model.Identifier) error {
	exists, err := r.SpaceExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return r.CreateSpace(ctx, id)
	}

	frags, err := schema.Default.CharybdisDDLFragments()
	if err != nil {
		return fmt.Errorf("session: migrate space %s: ddl: %w", id, err)
	}
	frags = append(frags, schema.SharedTableDDL()...)

	var lastErr error
	for attempt := 0; attempt < lifecycleRetries; attempt++ {
		lastErr = r.createSpaceOnce(ctx, id, frags)
		if lastErr == nil {
			return nil
		}
		select {
		case <-time.After(lifecycleBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("session: migrate space %s: %w", id, lastErr)
}
