package graph

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// readCounters returns the current graph_edge_pages_counter value for each of
// sources (missing rows default to 0), in chunks of SelectBatch.
func readCounters(ctx context.Context, pool *pgxpool.Pool, edgeType string, directionOut bool, sources []string) (map[string]int64, error) {
	out := make(map[string]int64, len(sources))
	for _, s := range sources {
		out[s] = 0
	}
	for _, part := range chunkStrings(sources, SelectBatch) {
		rows, err := pool.Query(ctx,
			`SELECT pk_source, count FROM graph_edge_pages_counter
			 WHERE edge_type = $1 AND direction_out = $2 AND pk_source = ANY($3)`,
			edgeType, directionOut, part,
		)
		if err != nil {
			return nil, fmt.Errorf("graph: read counters: %w", err)
		}
		for rows.Next() {
			var src string
			var count int64
			if err := rows.Scan(&src, &count); err != nil {
				rows.Close()
				return nil, fmt.Errorf("graph: read counters: %w", err)
			}
			out[src] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("graph: read counters: %w", err)
		}
	}
	return out, nil
}

// incrementCounters atomically adds deltas[source] to each source's counter
// row, using Postgres's native UPDATE ... SET count = count + $1 in place of
// the spec's generic store-native counter column; not transactional with the
// page writes, per spec.md §4.4 ("counters are not transactional with the
// page writes").
func incrementCounters(ctx context.Context, pool *pgxpool.Pool, edgeType string, directionOut bool, deltas map[string]int64) error {
	for source, delta := range deltas {
		if delta == 0 {
			continue
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO graph_edge_pages_counter (pk_source, edge_type, direction_out, count)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (pk_source, edge_type, direction_out)
			 DO UPDATE SET count = graph_edge_pages_counter.count + EXCLUDED.count`,
			source, edgeType, directionOut, delta,
		)
		if err != nil {
			return fmt.Errorf("graph: increment counter for %s: %w", source, err)
		}
	}
	return nil
}
