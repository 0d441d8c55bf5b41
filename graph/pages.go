// Package graph implements C5, the graph-on-rows engine: adjacency lists for
// stored edge types, paged and counted atop the row store instead of a
// dedicated graph database. Grounded directly on
// original_source/hoover3_base/hoover3_database/src/models/collection/_scylla_graph.rs's
// CQL_TARGET_PARTITION_SIZE / CQL_SELECT_BATCH_SIZE constants and its
// skip-existing / assign-pages / batch-insert / counter-batch protocol.
package graph

import "fmt"

const (
	// TargetPageSize is the conservative page-size target used when
	// assigning new edges to graph_edge_page partitions. The hard partition
	// limit is 100_000; this sits well below it because counters are
	// approximate under concurrent writers.
	TargetPageSize = 10_000
	// SelectBatch bounds how many edge_pks are looked up or how many source
	// counters are read in a single round trip.
	SelectBatch = 100
	// ParallelBatches bounds the number of sub-batches processed
	// concurrently by AddEdges.
	ParallelBatches = 8
)

// Edge is one directed pair (a, b) of a single edge type; AddEdges writes
// both (a→b, out) and (b→a, in).
type Edge struct {
	Source string
	Target string
}

// edgePK is the existence-index key for one directed edge: source and target
// joined so that (a,b) and (b,a) never collide across directions (direction
// is itself part of the assignment table's key, but the pk encoding stays
// unambiguous on its own too).
func edgePK(source, target string) string {
	return fmt.Sprintf("%s\x1f%s", source, target)
}

// pageID returns the partition a new edge at zero-based index idx (relative
// to a source's running edge count) falls into.
func pageID(startCounter, idx int64) int64 {
	return (startCounter + idx) / TargetPageSize
}

func chunk(items []Edge, size int) [][]Edge {
	var out [][]Edge
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	var out [][]string
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
