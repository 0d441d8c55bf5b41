// Package session implements C3, the per-collection lazily-cached storage
// sessions to the row store (Postgres via pgx), the search index
// (Meilisearch), and the graph store (layered on the row store — see
// package graph). Handles are process-global and
// lazily initialized on first use, per spec.md §4.2.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/liquidinvestigations/hoover3-sub000/model"
)

// RowStore is the process-global handle to the wide-column row store,
// adapted from db.PostgresDB: a pgxpool.Pool plus collection-qualified
// accessors. Every collection is a Postgres schema named after the
// collection's Identifier, so that "a keyspace in the row store (name =
// collection id)" holds without a literal CQL keyspace concept.
type RowStore struct {
	pool *pgxpool.Pool
}

var (
	rowStoreOnce sync.Once
	rowStore     *RowStore
	rowStoreErr  error
)

// GlobalRowStore returns the process-wide row-store handle, connecting on
// first use and caching the pool thereafter.
func GlobalRowStore(ctx context.Context, connString string) (*RowStore, error) {
	rowStoreOnce.Do(func() {
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			rowStoreErr = fmt.Errorf("session: connect row store: %w", err)
			return
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			rowStoreErr = fmt.Errorf("session: ping row store: %w", err)
			return
		}
		rowStore = &RowStore{pool: pool}
	})
	return rowStore, rowStoreErr
}

// Pool returns the underlying pgxpool.Pool for advanced operations
// (transactions, batch, COPY).
func (r *RowStore) Pool() *pgxpool.Pool { return r.pool }

// CollectionSession is the row-store session bound to one collection's
// schema. Table references issued through it are schema-qualified so that
// callers never have to interpolate the collection id into SQL themselves.
type CollectionSession struct {
	store  *RowStore
	Schema model.Identifier
}

// CollectionSession binds r's pool to collection id's schema. Cheap and
// side-effect free: callers may construct one per request without
// additional caching, since the underlying pool is already shared.
func (r *RowStore) CollectionSession(id model.Identifier) *CollectionSession {
	return &CollectionSession{store: r, Schema: id}
}

// Table returns the schema-qualified table reference for use in SQL text.
func (c *CollectionSession) Table(name model.Identifier) string {
	return fmt.Sprintf("%s.%s", c.Schema, name)
}

func (c *CollectionSession) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := c.store.pool.Exec(ctx, sql, args...)
	return err
}

func (c *CollectionSession) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return c.store.pool.Query(ctx, sql, args...)
}

func (c *CollectionSession) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return c.store.pool.QueryRow(ctx, sql, args...)
}

// SendBatch forwards to pgx's batch API on the underlying pool, for batched
// inserts (graph pages, fan-out mirrors, processing-pipeline writer
// flushes).
func (c *CollectionSession) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return c.store.pool.SendBatch(ctx, b)
}
