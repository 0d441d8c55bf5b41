package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/liquidinvestigations/hoover3-sub000/model"
)

// Registry is the process-wide, assembled-once inventory of Models, UDTs, and
// EdgeTypes. It is built by calling Register* from package init() functions
// (the rewrite's plain-data-record substitute for the source's link-time
// inventory collection, per the "reflection-style schema -> tagged inventory"
// design note) and frozen by calling Assemble once at process start.
type Registry struct {
	mu sync.Mutex

	models []Model
	udts   []UDT
	edges  []EdgeType

	assembled bool

	scyllaSchema map[Identifier]Model
	udtsByName   map[string]UDT
	edgesByName  map[string]EdgeType
	edgesBySrc   map[string][]EdgeType
	edgesByDst   map[string][]EdgeType
}

// Default is the process-wide registry instance. Model- and UDT-defining
// files call Default.RegisterModel / Default.RegisterUDT / Default.RegisterEdge
// from their init() functions.
var Default = &Registry{}

// RegisterModel adds m to the registry. Must be called before Assemble.
func (r *Registry) RegisterModel(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assembled {
		panic("schema: RegisterModel called after Assemble")
	}
	r.models = append(r.models, m)
}

// RegisterUDT adds u to the registry. Must be called before Assemble.
func (r *Registry) RegisterUDT(u UDT) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assembled {
		panic("schema: RegisterUDT called after Assemble")
	}
	r.udts = append(r.udts, u)
}

// RegisterEdge adds e to the registry. Must be called before Assemble.
func (r *Registry) RegisterEdge(e EdgeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assembled {
		panic("schema: RegisterEdge called after Assemble")
	}
	r.edges = append(r.edges, e)
}

// Assemble merges all registered contributions into sorted maps, resolves
// Unspecified field types against registered UDTs, and validates every
// invariant from the data model (duplicate names, identifier validity,
// key-ordering, docstring presence, search-flag scalar-only). Schema errors
// are fatal at startup: Assemble returns a non-nil error and callers are
// expected to treat it as fatal (log.Fatal / os.Exit), never to retry.
func (r *Registry) Assemble() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assembled {
		return nil
	}

	names := map[string]string{} // name -> kind, for duplicate detection across Models/UDTs
	r.scyllaSchema = map[Identifier]Model{}
	r.udtsByName = map[string]UDT{}
	r.edgesByName = map[string]EdgeType{}
	r.edgesBySrc = map[string][]EdgeType{}
	r.edgesByDst = map[string][]EdgeType{}

	for _, m := range r.models {
		if _, err := ValidateIdentifier(m.TableName.String()); err != nil {
			return fmt.Errorf("schema: model %s: %w", m.Name, err)
		}
		if prior, ok := names[m.TableName.String()]; ok {
			return fmt.Errorf("schema: duplicate name %q (already registered as %s)", m.TableName, prior)
		}
		names[m.TableName.String()] = "model"

		if m.Doc == "" {
			return fmt.Errorf("schema: model %s missing required docstring", m.Name)
		}
		if err := validateFieldOrder(m.Fields); err != nil {
			return fmt.Errorf("schema: model %s: %w", m.Name, err)
		}
		if len(m.PrimaryKeyFields()) == 0 {
			return fmt.Errorf("schema: model %s has no partition-key field", m.Name)
		}
		for i, f := range m.Fields {
			if f.Doc == "" {
				return fmt.Errorf("schema: model %s field %s missing required docstring", m.Name, f.Name)
			}
			if f.SearchFacet && !f.SearchIndex {
				return fmt.Errorf("schema: model %s field %s: search_facet requires search_index", m.Name, f.Name)
			}
			if f.SearchIndex && !f.SearchStore {
				return fmt.Errorf("schema: model %s field %s: search_index requires search_store", m.Name, f.Name)
			}
			if (f.SearchStore || f.SearchIndex || f.SearchFacet) && !f.Type.Kind.IsScalar() {
				return fmt.Errorf("schema: model %s field %s: search_* flags require a scalar type", m.Name, f.Name)
			}
			m.Fields[i] = f
		}
		r.scyllaSchema[m.TableName] = m
	}

	for _, u := range r.udts {
		if prior, ok := names[u.Name]; ok {
			return fmt.Errorf("schema: duplicate name %q (already registered as %s)", u.Name, prior)
		}
		names[u.Name] = "udt"
		if u.Doc == "" {
			return fmt.Errorf("schema: UDT %s missing required docstring", u.Name)
		}
		for _, f := range u.Fields {
			if f.Doc == "" {
				return fmt.Errorf("schema: UDT %s field %s missing required docstring", u.Name, f.Name)
			}
		}
		r.udtsByName[u.Name] = u
	}

	// Resolve Unspecified fields against registered UDTs by original-source
	// spelling; leave unresolved Unspecified as-is (runtime opaque), per the
	// schema registry's algorithm in spec.md.
	for tableName, m := range r.scyllaSchema {
		for i, f := range m.Fields {
			if f.Type.Kind != model.KindUnspecified {
				continue
			}
			if udt, ok := r.udtsByName[f.SourceTypeName]; ok {
				m.Fields[i].Type = udtObjectType(udt)
			}
		}
		r.scyllaSchema[tableName] = m
	}

	for _, e := range r.edges {
		if _, ok := r.edgesByName[e.Name]; ok {
			return fmt.Errorf("schema: duplicate edge type name %q", e.Name)
		}
		r.edgesByName[e.Name] = e
		r.edgesBySrc[e.Source] = append(r.edgesBySrc[e.Source], e)
		r.edgesByDst[e.Target] = append(r.edgesByDst[e.Target], e)
	}

	r.assembled = true
	return nil
}

func udtObjectType(u UDT) model.ColumnType {
	fields := make([]model.ObjectField, len(u.Fields))
	for i, f := range u.Fields {
		fields[i] = model.ObjectField{Name: f.Name, Type: f.Type}
	}
	return model.Object(fields...)
}

func validateFieldOrder(fields []Field) error {
	// partition-key fields before clustering-key fields before normal fields.
	stage := 0 // 0=partition, 1=clustering, 2=normal
	for _, f := range fields {
		switch {
		case f.PartitionKey:
			if stage > 0 {
				return fmt.Errorf("field %s: partition-key field out of order", f.Name)
			}
		case f.ClusteringKey:
			if stage > 1 {
				return fmt.Errorf("field %s: clustering-key field out of order", f.Name)
			}
			stage = 1
		default:
			stage = 2
		}
	}
	return nil
}

// ValidateIdentifier is a thin re-export so schema's own validation errors
// read consistently with model.NewIdentifier's.
func ValidateIdentifier(s string) (Identifier, error) {
	return model.NewIdentifier(s)
}

// ScyllaSchema returns the mapping from table identifier to table definition,
// sorted by table name.
func (r *Registry) ScyllaSchema() []Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Model, 0, len(r.scyllaSchema))
	for _, m := range r.scyllaSchema {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableName < out[j].TableName })
	return out
}

// ModelByTable returns the Model registered for tableName.
func (r *Registry) ModelByTable(tableName Identifier) (Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.scyllaSchema[tableName]
	return m, ok
}

// GraphEdges returns edges indexed by edge name, by source model, and by
// target model.
func (r *Registry) GraphEdges() (byName map[string]EdgeType, bySource map[string][]EdgeType, byTarget map[string][]EdgeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edgesByName, r.edgesBySrc, r.edgesByTarget()
}

func (r *Registry) edgesByTarget() map[string][]EdgeType { return r.edgesByDst }
