package fanout

import (
	"fmt"

	"github.com/liquidinvestigations/hoover3-sub000/schema"
)

// SearchSettings holds the Meilisearch index settings derived from a Model's
// schema: filterable_attributes from search_facet fields, sortable_attributes
// from search_index fields, each prefixed "<table>:<field>" to match the
// flattened document shape. Non-scalar fields are skipped (logged by the
// caller), since only the first nine ColumnKind variants may carry search
// flags (enforced at schema assembly, schema.Registry.Assemble).
type SearchSettings struct {
	FilterableAttributes []string
	SortableAttributes   []string
	Skipped              []string // fields flagged search_* but non-scalar; should never happen post-Assemble
}

// ComputeSearchSettings derives m's SearchSettings.
func ComputeSearchSettings(m schema.Model) SearchSettings {
	var s SearchSettings
	for _, f := range m.Fields {
		if !f.SearchFacet && !f.SearchIndex {
			continue
		}
		if !f.Type.Kind.IsScalar() {
			s.Skipped = append(s.Skipped, fmt.Sprintf("%s:%s", m.TableName, f.Name))
			continue
		}
		attr := fmt.Sprintf("%s:%s", m.TableName, f.Name)
		if f.SearchFacet {
			s.FilterableAttributes = append(s.FilterableAttributes, attr)
		}
		if f.SearchIndex {
			s.SortableAttributes = append(s.SortableAttributes, attr)
		}
	}
	return s
}
