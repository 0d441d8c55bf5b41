package model

import "fmt"

// Row is one instance of a Model: a table name plus its field values. Callers
// outside this package construct Rows directly; schema.Model supplies the
// field ordering used to derive a Row's primary-key fingerprint.
type Row struct {
	Table  Identifier
	Values map[Identifier]ColumnValue
}

// Get returns the value stored under name, and whether it was present.
func (r Row) Get(name Identifier) (ColumnValue, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Fingerprint computes r's row primary-key fingerprint given the primary-key
// field names in declared order (partition keys then clustering keys — see
// schema.Model.PrimaryKeyFields).
func (r Row) Fingerprint(pkFields []Identifier) (string, error) {
	pk := make([]ColumnValue, len(pkFields))
	for i, name := range pkFields {
		v, ok := r.Values[name]
		if !ok {
			return "", fmt.Errorf("row %s: missing primary-key field %s", r.Table, name)
		}
		pk[i] = v
	}
	return RowFingerprint(r.Table, pk), nil
}

// AsJSON returns r's field values unwrapped to plain Go types, suitable for
// JSON marshaling (the "<row as json>" half of the C4 search document shape).
func (r Row) AsJSON() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(r.Values))
	for name, v := range r.Values {
		n, err := v.Native()
		if err != nil {
			return nil, fmt.Errorf("row %s: field %s: %w", r.Table, name, err)
		}
		out[name.String()] = n
	}
	return out, nil
}
