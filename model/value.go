package model

import (
	"fmt"
	"time"
)

// ColumnValue is a tagged variant paralleling ColumnType, plus List(value...)
// and Object(Identifier->Optional<value>). Exactly one field is meaningful,
// selected by Kind.
type ColumnValue struct {
	Kind ColumnKind

	Str   string
	I8    int8
	I16   int16
	I32   int32
	I64   int64
	F32   float32
	F64   float64
	Bool  bool
	Time  time.Time
	List  []ColumnValue
	Obj   map[Identifier]*ColumnValue // nil entry means explicit null for that field
	Other string
}

func StringValue(s string) ColumnValue      { return ColumnValue{Kind: KindString, Str: s} }
func Int8Value(v int8) ColumnValue          { return ColumnValue{Kind: KindInt8, I8: v} }
func Int16Value(v int16) ColumnValue        { return ColumnValue{Kind: KindInt16, I16: v} }
func Int32Value(v int32) ColumnValue        { return ColumnValue{Kind: KindInt32, I32: v} }
func Int64Value(v int64) ColumnValue        { return ColumnValue{Kind: KindInt64, I64: v} }
func FloatValue(v float32) ColumnValue      { return ColumnValue{Kind: KindFloat, F32: v} }
func DoubleValue(v float64) ColumnValue     { return ColumnValue{Kind: KindDouble, F64: v} }
func BoolValue(v bool) ColumnValue          { return ColumnValue{Kind: KindBoolean, Bool: v} }
func TimestampValue(v time.Time) ColumnValue {
	return ColumnValue{Kind: KindTimestamp, Time: v}
}
func ListValue(items ...ColumnValue) ColumnValue {
	return ColumnValue{Kind: KindList, List: items}
}
func ObjectValue(fields map[Identifier]*ColumnValue) ColumnValue {
	return ColumnValue{Kind: KindObject, Obj: fields}
}

// Native returns v's value unwrapped into a plain Go type, suitable for JSON
// marshaling or for passing to a pgx query argument.
func (v ColumnValue) Native() (interface{}, error) {
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindInt8:
		return v.I8, nil
	case KindInt16:
		return v.I16, nil
	case KindInt32:
		return v.I32, nil
	case KindInt64:
		return v.I64, nil
	case KindFloat:
		return v.F32, nil
	case KindDouble:
		return v.F64, nil
	case KindBoolean:
		return v.Bool, nil
	case KindTimestamp:
		return v.Time, nil
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, item := range v.List {
			n, err := item.Native()
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case KindObject:
		out := make(map[string]interface{}, len(v.Obj))
		for name, fv := range v.Obj {
			if fv == nil {
				out[name.String()] = nil
				continue
			}
			n, err := fv.Native()
			if err != nil {
				return nil, err
			}
			out[name.String()] = n
		}
		return out, nil
	case KindOther:
		return v.Other, nil
	default:
		return nil, fmt.Errorf("column value kind %s has no native representation", v.Kind)
	}
}
