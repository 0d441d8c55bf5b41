// Package schema implements the process-wide schema registry (C2): the
// single description of row entities, user-defined composite types, and
// graph edge types that drives row-store DDL, search settings, and graph
// topology.
package schema

import "github.com/liquidinvestigations/hoover3-sub000/model"

// Field describes one column of a Model or UDT.
type Field struct {
	Name Identifier
	Type model.ColumnType

	Nullable       bool
	PartitionKey   bool
	ClusteringKey  bool
	SearchStore    bool
	SearchIndex    bool
	SearchFacet    bool
	Doc            string
	SourceTypeName string // original-source spelling, used to resolve Unspecified against a UDT
}

// Identifier is a re-export of model.Identifier for package-local brevity.
type Identifier = model.Identifier

// Model declares a row entity: model name (PascalCase, for documentation and
// code generation only), table name (snake_case Identifier), and an ordered
// list of fields.
type Model struct {
	Name      string
	TableName Identifier
	Doc       string
	Fields    []Field
}

// UDT is a user-defined composite type: like a Model but without keys or
// search flags, exposed as an Object column type.
type UDT struct {
	Name   string
	Doc    string
	Fields []Field
}

// EdgeDiscipline is how a graph edge type is materialized.
type EdgeDiscipline int

const (
	// Stored edges are materialized in dedicated graph_edge_page tables;
	// both directions are written.
	Stored EdgeDiscipline = iota
	// Implicit edges are derivable from existing parent/child primary-key
	// containment and are never materialized.
	Implicit
)

// EdgeType declares a directed graph edge type between two models.
type EdgeType struct {
	Name       string
	Source     string // source Model.Name
	Target     string // target Model.Name
	Discipline EdgeDiscipline
	Doc        string
}

// PrimaryKeyFields returns fields in PK order, partition keys first.
func (m Model) PrimaryKeyFields() []Field {
	var out []Field
	for _, f := range m.Fields {
		if f.PartitionKey {
			out = append(out, f)
		}
	}
	for _, f := range m.Fields {
		if f.ClusteringKey {
			out = append(out, f)
		}
	}
	return out
}
