// Package fanout implements C4, the multi-store write fan-out: mirroring row
// inserts/deletes into the search index and the graph's primary-key map,
// search-first-then-graph, idempotent per row fingerprint.
package fanout

// Flatten turns a nested JSON-shaped document into a flat map with
// colon-joined keys, per spec.md §4.3: nested objects become colon-joined
// keys; arrays of objects are transposed into parallel per-leaf arrays, with
// missing fields dropped rather than null-padded. Arrays of scalars and
// scalar leaves pass through unchanged under their joined key.
func Flatten(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range doc {
		flattenInto(out, k, v)
	}
	return out
}

func flattenInto(out map[string]interface{}, prefix string, v interface{}) {
	switch val := v.(type) {
	case nil:
		return // dropped, not null-padded
	case map[string]interface{}:
		for k, vv := range val {
			flattenInto(out, joinKey(prefix, k), vv)
		}
	case []interface{}:
		if isObjectArray(val) {
			transposeInto(out, prefix, val)
			return
		}
		out[prefix] = val
	default:
		out[prefix] = val
	}
}

func isObjectArray(arr []interface{}) bool {
	if len(arr) == 0 {
		return false
	}
	for _, item := range arr {
		if _, ok := item.(map[string]interface{}); !ok {
			return false
		}
	}
	return true
}

// transposeInto flattens each object in arr independently, then regroups by
// leaf key so that `{a: [{b:1,c:2},{b:3}]}` becomes `{a:b:[1,3], a:c:[2]}`:
// an element that lacks a leaf key simply contributes no entry to that
// leaf's array, rather than a null placeholder.
func transposeInto(out map[string]interface{}, prefix string, arr []interface{}) {
	columns := make(map[string][]interface{})
	var order []string
	for _, item := range arr {
		obj := item.(map[string]interface{})
		flat := make(map[string]interface{})
		for k, v := range obj {
			flattenInto(flat, k, v)
		}
		for k, v := range flat {
			if _, seen := columns[k]; !seen {
				order = append(order, k)
			}
			columns[k] = append(columns[k], v)
		}
	}
	for _, leaf := range order {
		out[joinKey(prefix, leaf)] = columns[leaf]
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
