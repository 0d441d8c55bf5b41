package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// StableHash computes a deterministic, canonical, platform-independent hash
// over v's sum-typed value encoding. Two values with the same logical content
// hash identically regardless of map iteration order or struct field order;
// this is the join key between the row store, the search index, and the
// graph store (via the row primary-key fingerprint), and also backs
// deterministic workflow IDs (model.StableHashJSON) in the task runtime.
func StableHash(v ColumnValue) string {
	h := sha256.New()
	canonicalEncode(h, v)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalEncode writes a self-delimiting, order-independent encoding of v
// into w. Every variant is prefixed with a tag byte so that values of
// different kinds never collide, and Object fields are sorted by key before
// encoding so that construction order never affects the hash.
func canonicalEncode(w interface{ Write([]byte) (int, error) }, v ColumnValue) {
	writeByte := func(b byte) { w.Write([]byte{b}) }
	writeString := func(s string) {
		writeByte(byte(len(s) >> 8))
		writeByte(byte(len(s)))
		w.Write([]byte(s))
	}

	switch v.Kind {
	case KindString:
		writeByte(1)
		writeString(v.Str)
	case KindInt8:
		writeByte(2)
		writeString(fmt.Sprintf("%d", v.I8))
	case KindInt16:
		writeByte(3)
		writeString(fmt.Sprintf("%d", v.I16))
	case KindInt32:
		writeByte(4)
		writeString(fmt.Sprintf("%d", v.I32))
	case KindInt64:
		writeByte(5)
		writeString(fmt.Sprintf("%d", v.I64))
	case KindFloat:
		writeByte(6)
		writeString(fmt.Sprintf("%.9g", v.F32))
	case KindDouble:
		writeByte(7)
		writeString(fmt.Sprintf("%.17g", v.F64))
	case KindBoolean:
		writeByte(8)
		if v.Bool {
			writeByte(1)
		} else {
			writeByte(0)
		}
	case KindTimestamp:
		writeByte(9)
		writeString(v.Time.UTC().Format("2006-01-02T15:04:05.000000000Z"))
	case KindList:
		writeByte(10)
		writeString(fmt.Sprintf("%d", len(v.List)))
		for _, item := range v.List {
			canonicalEncode(w, item)
		}
	case KindObject:
		writeByte(11)
		keys := make([]string, 0, len(v.Obj))
		for k := range v.Obj {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		writeString(fmt.Sprintf("%d", len(keys)))
		for _, k := range keys {
			writeString(k)
			fv := v.Obj[Identifier(k)]
			if fv == nil {
				writeByte(0)
			} else {
				writeByte(1)
				canonicalEncode(w, *fv)
			}
		}
	case KindOther:
		writeByte(12)
		writeString(v.Other)
	default:
		writeByte(0)
	}
}

// StableHashJSON computes a deterministic hash over arg by marshaling it to
// canonical JSON (map keys sorted — Go's encoding/json already sorts map
// keys and struct fields in declaration order, which is sufficient here)
// and hashing the bytes. Used for workflow-ID derivation: workflow_id =
// "<workflow_name>_<StableHashJSON(arg)>".
func StableHashJSON(arg interface{}) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("stable hash: marshal arg: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// RowFingerprint computes the row primary-key fingerprint for a model whose
// table name is tableName and whose primary-key tuple (in declared field
// order) is pk: "<table_name>_<stable_hash(primary_key_tuple)>".
func RowFingerprint(tableName Identifier, pk []ColumnValue) string {
	tuple := ListValue(pk...)
	return tableName.String() + "_" + StableHash(tuple)
}
