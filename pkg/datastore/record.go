package datastore

import "github.com/ncagentd/ncagentd/pkg/value"

// record is the wire/row shape both backends persist an Item's value as:
// value.Value flattened to primitive fields so it round-trips through both
// a SQLite row and a JSON-encoded etcd value without either backend needing
// to know about value.Kind's internals beyond storing it as an int.
type record struct {
	Kind uint8  `json:"k"`
	Str  string `json:"s,omitempty"`
	Bool bool   `json:"b,omitempty"`
	Int  int64  `json:"i,omitempty"`
	Uint uint64 `json:"u,omitempty"`
}

func toRecord(v value.Value) record {
	return record{Kind: uint8(v.Kind), Str: v.Str, Bool: v.Bool, Int: v.Int, Uint: v.Uint}
}

func (r record) toValue(xpath string) value.Value {
	return value.Value{
		Kind:  value.Kind(r.Kind),
		XPath: xpath,
		Str:   r.Str,
		Bool:  r.Bool,
		Int:   r.Int,
		Uint:  r.Uint,
	}
}
