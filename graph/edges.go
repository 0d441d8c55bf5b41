package graph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AddEdges inserts a batch of edges of a single type, both directions, per
// the six-step insert protocol in spec.md §4.4: partition into out/in
// sub-batches, drop already-present edges (graph_edge_page_assignment),
// read+assign source counters, batch-insert pages and assignments, then
// increment counters. Up to ParallelBatches sub-batches run concurrently,
// bounded by a semaphore in the same style as worker.Pool's fixed worker
// count. The returned added count is the number of input edges that were
// not already present (spec.md §8 scenario 2: a fully-duplicate call
// returns added = 0), counted once per logical edge — the out-direction
// sub-batches, not their mirrored in-direction counterparts.
func AddEdges(ctx context.Context, pool *pgxpool.Pool, edgeType string, edges []Edge) (int, error) {
	outBatches := chunk(edges, SelectBatch)
	inEdges := make([]Edge, len(edges))
	for i, e := range edges {
		inEdges[i] = Edge{Source: e.Target, Target: e.Source}
	}
	inBatches := chunk(inEdges, SelectBatch)

	type job struct {
		batch        []Edge
		directionOut bool
	}
	var jobs []job
	for _, b := range outBatches {
		jobs = append(jobs, job{batch: b, directionOut: true})
	}
	for _, b := range inBatches {
		jobs = append(jobs, job{batch: b, directionOut: false})
	}

	sem := make(chan struct{}, ParallelBatches)
	var wg sync.WaitGroup
	errs := make(chan error, len(jobs))
	var addedOut int64

	for _, j := range jobs {
		j := j
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fresh, err := addEdgeSubBatch(ctx, pool, edgeType, j.directionOut, j.batch)
			if err != nil {
				errs <- err
				return
			}
			if j.directionOut {
				atomic.AddInt64(&addedOut, int64(fresh))
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return 0, err
		}
	}
	return int(addedOut), nil
}

// addEdgeSubBatch runs the skip-existing / assign-pages / batch-insert /
// counter-increment protocol for one direction's sub-batch of at most
// SelectBatch edges, returning how many of them were newly inserted.
func addEdgeSubBatch(ctx context.Context, pool *pgxpool.Pool, edgeType string, directionOut bool, edges []Edge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	pks := make([]string, len(edges))
	for i, e := range edges {
		pks[i] = edgePK(e.Source, e.Target)
	}
	existing, err := existingAssignments(ctx, pool, edgeType, directionOut, pks)
	if err != nil {
		return 0, fmt.Errorf("graph: add edges: %w", err)
	}

	var fresh []Edge
	for _, e := range edges {
		if !existing[edgePK(e.Source, e.Target)] {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	sources := make([]string, 0, len(fresh))
	seen := make(map[string]bool)
	for _, e := range fresh {
		if !seen[e.Source] {
			seen[e.Source] = true
			sources = append(sources, e.Source)
		}
	}
	counters, err := readCounters(ctx, pool, edgeType, directionOut, sources)
	if err != nil {
		return 0, fmt.Errorf("graph: add edges: %w", err)
	}

	runningIdx := make(map[string]int64, len(sources))
	deltas := make(map[string]int64, len(sources))

	batch := &pgx.Batch{}
	for _, e := range fresh {
		idx := runningIdx[e.Source]
		page := pageID(counters[e.Source], idx)
		runningIdx[e.Source] = idx + 1
		deltas[e.Source]++

		batch.Queue(
			`INSERT INTO graph_edge_page (pk_source, edge_type, direction_out, page_id, pk_target)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.Source, edgeType, directionOut, page, e.Target,
		)
		batch.Queue(
			`INSERT INTO graph_edge_page_assignment (edge_pks, edge_type, direction_out, page_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT DO NOTHING`,
			edgePK(e.Source, e.Target), edgeType, directionOut, page,
		)
	}
	br := pool.SendBatch(ctx, batch)
	for range fresh {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("graph: add edges: page insert: %w", err)
		}
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("graph: add edges: assignment insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("graph: add edges: %w", err)
	}

	if err := incrementCounters(ctx, pool, edgeType, directionOut, deltas); err != nil {
		return 0, fmt.Errorf("graph: add edges: %w", err)
	}
	return len(fresh), nil
}

func existingAssignments(ctx context.Context, pool *pgxpool.Pool, edgeType string, directionOut bool, pks []string) (map[string]bool, error) {
	out := make(map[string]bool, len(pks))
	for _, part := range chunkStrings(pks, SelectBatch) {
		rows, err := pool.Query(ctx,
			`SELECT edge_pks FROM graph_edge_page_assignment
			 WHERE edge_type = $1 AND direction_out = $2 AND edge_pks = ANY($3)`,
			edgeType, directionOut, part,
		)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var pk string
			if err := rows.Scan(&pk); err != nil {
				rows.Close()
				return nil, err
			}
			out[pk] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Neighbors enumerates pk_target for every page of (pkSource, edgeType,
// directionOut), ordered by page_id, per spec.md §4.4's query contract.
func Neighbors(ctx context.Context, pool *pgxpool.Pool, pkSource, edgeType string, directionOut bool) ([]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT pk_target FROM graph_edge_page
		 WHERE pk_source = $1 AND edge_type = $2 AND direction_out = $3
		 ORDER BY page_id, pk_target`,
		pkSource, edgeType, directionOut,
	)
	if err != nil {
		return nil, fmt.Errorf("graph: neighbors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("graph: neighbors: %w", err)
		}
		out = append(out, target)
	}
	return out, rows.Err()
}
