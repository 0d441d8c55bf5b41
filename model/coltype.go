package model

import "fmt"

// ColumnKind discriminates the variants of ColumnType / ColumnValue.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat
	KindDouble
	KindBoolean
	KindTimestamp
	KindList
	KindObject
	KindOther
	KindUnspecified
)

// scalarKinds are the first nine variants: the only ones that may carry the
// search_* flags on a Field.
var scalarKinds = map[ColumnKind]bool{
	KindString: true, KindInt8: true, KindInt16: true, KindInt32: true,
	KindInt64: true, KindFloat: true, KindDouble: true, KindBoolean: true,
	KindTimestamp: true,
}

// IsScalar reports whether k is one of the nine scalar variants.
func (k ColumnKind) IsScalar() bool {
	return scalarKinds[k]
}

func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindBoolean:
		return "Boolean"
	case KindTimestamp:
		return "Timestamp"
	case KindList:
		return "List"
	case KindObject:
		return "Object"
	case KindOther:
		return "Other"
	case KindUnspecified:
		return "Unspecified"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// ColumnType is a tagged variant describing the shape of a column.
//
//	String | Int8 | Int16 | Int32 | Int64 | Float | Double | Boolean | Timestamp
//	| List(ColumnType) | Object(ordered map Identifier->ColumnType) | Other(String)
//	| Unspecified
//
// Only one of Elem, Fields, Other is meaningful, selected by Kind.
type ColumnType struct {
	Kind   ColumnKind
	Elem   *ColumnType        // set when Kind == KindList
	Fields []ObjectField      // set when Kind == KindObject (ordered)
	Other  string             // set when Kind == KindOther (original-source spelling)
}

// ObjectField is one member of an Object column type.
type ObjectField struct {
	Name Identifier
	Type ColumnType
}

func Scalar(k ColumnKind) ColumnType { return ColumnType{Kind: k} }

func List(elem ColumnType) ColumnType {
	return ColumnType{Kind: KindList, Elem: &elem}
}

func Object(fields ...ObjectField) ColumnType {
	return ColumnType{Kind: KindObject, Fields: fields}
}

func Other(sourceSpelling string) ColumnType {
	return ColumnType{Kind: KindOther, Other: sourceSpelling}
}

func Unspecified() ColumnType {
	return ColumnType{Kind: KindUnspecified}
}

// ScyllaTypeName returns the canonical row-store type name for t. The mapping
// is total for the first ten variants (scalars + List); Object, Other and
// Unspecified have no canonical row-store spelling and return an error.
func (t ColumnType) ScyllaTypeName() (string, error) {
	switch t.Kind {
	case KindString:
		return "text", nil
	case KindInt8:
		return "tinyint", nil
	case KindInt16:
		return "smallint", nil
	case KindInt32:
		return "int", nil
	case KindInt64:
		return "bigint", nil
	case KindFloat:
		return "float", nil
	case KindDouble:
		return "double", nil
	case KindBoolean:
		return "boolean", nil
	case KindTimestamp:
		return "timestamp", nil
	case KindList:
		inner, err := t.Elem.ScyllaTypeName()
		if err != nil {
			return "", err
		}
		return "list<" + inner + ">", nil
	default:
		return "", fmt.Errorf("column type %s has no canonical row-store spelling", t.Kind)
	}
}

// GraphTypeName returns the canonical graph-store type name for t, used when
// a column participates in graph_node_pk_map's serialized primary-key value.
func (t ColumnType) GraphTypeName() (string, error) {
	// The graph store piggybacks on the row store's JSON encoding of the
	// primary key, so its type surface mirrors ScyllaTypeName for the core
	// set; Object additionally round-trips through JSON regardless of UDT
	// registration since graph storage never issues DDL.
	if t.Kind == KindObject {
		return "json", nil
	}
	return t.ScyllaTypeName()
}
