package schema

import (
	"fmt"
	"sort"
	"strings"
)

// CharybdisDDLFragments returns the storage DDL snippets required to
// materialize every registered Model and UDT: UDTs in registration order,
// then tables sorted by table name.
// Named after the source's DDL-fragment concept (the storage discipline
// that compiles row-entity descriptors into `CREATE TABLE`/`CREATE TYPE`
// statements); here it targets Postgres, standing in for the spec's
// wide-column row store.
func (r *Registry) CharybdisDDLFragments() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.assembled {
		return nil, fmt.Errorf("schema: CharybdisDDLFragments called before Assemble")
	}

	var frags []string
	for _, u := range r.udts {
		frag, err := udtDDL(u)
		if err != nil {
			return nil, fmt.Errorf("schema: UDT %s: %w", u.Name, err)
		}
		frags = append(frags, frag)
	}

	tables := r.ScyllaSchemaLocked()
	for _, m := range tables {
		frag, err := tableDDL(m)
		if err != nil {
			return nil, fmt.Errorf("schema: model %s: %w", m.Name, err)
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// ScyllaSchemaLocked is ScyllaSchema without acquiring r.mu; callers must
// already hold it.
func (r *Registry) ScyllaSchemaLocked() []Model {
	out := make([]Model, 0, len(r.scyllaSchema))
	for _, m := range r.scyllaSchema {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableName < out[j].TableName })
	return out
}

func udtDDL(u UDT) (string, error) {
	var cols []string
	for _, f := range u.Fields {
		t, err := f.Type.ScyllaTypeName()
		if err != nil {
			// UDTs may themselves reference other UDTs (Object) which have
			// no canonical row-store spelling until resolved; fall back to
			// a JSONB representation, since Postgres has no native nested
			// composite-type literal syntax as forgiving as CQL's.
			t = "jsonb"
		}
		cols = append(cols, fmt.Sprintf("%s %s", f.Name, t))
		_ = err
	}
	return fmt.Sprintf("CREATE TYPE %s AS (%s);", u.Name, strings.Join(cols, ", ")), nil
}

func tableDDL(m Model) (string, error) {
	var cols []string
	var pkCols []string
	for _, f := range m.Fields {
		t, err := f.Type.ScyllaTypeName()
		if err != nil {
			t = "jsonb"
		}
		null := ""
		if !f.Nullable && !(f.PartitionKey || f.ClusteringKey) {
			null = " NOT NULL"
		}
		cols = append(cols, fmt.Sprintf("%s %s%s", f.Name, t, null))
		if f.PartitionKey || f.ClusteringKey {
			pkCols = append(pkCols, f.Name.String())
		}
	}
	if len(pkCols) == 0 {
		return "", fmt.Errorf("table %s has no primary-key columns", m.TableName)
	}
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkCols, ", ")))
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", m.TableName, strings.Join(cols, ",\n  ")), nil
}

// SharedTableDDL returns the DDL for the collection-wide tables that are not
// declared as Models: graph_node_pk_map, graph_edge_page,
// graph_edge_page_assignment, graph_edge_pages_counter.
func SharedTableDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS graph_node_pk_map (
  pk text PRIMARY KEY,
  value jsonb NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS graph_edge_page (
  pk_source text NOT NULL,
  edge_type text NOT NULL,
  direction_out boolean NOT NULL,
  page_id bigint NOT NULL,
  pk_target text NOT NULL,
  PRIMARY KEY (pk_source, edge_type, direction_out, page_id, pk_target)
);`,
		`CREATE TABLE IF NOT EXISTS graph_edge_page_assignment (
  edge_pks text NOT NULL,
  edge_type text NOT NULL,
  direction_out boolean NOT NULL,
  page_id bigint NOT NULL,
  PRIMARY KEY (edge_pks, edge_type, direction_out)
);`,
		`CREATE TABLE IF NOT EXISTS graph_edge_pages_counter (
  pk_source text NOT NULL,
  edge_type text NOT NULL,
  direction_out boolean NOT NULL,
  count bigint NOT NULL DEFAULT 0,
  PRIMARY KEY (pk_source, edge_type, direction_out)
);`,
	}
}
