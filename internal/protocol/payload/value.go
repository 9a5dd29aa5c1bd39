package payload

import (
	"bytes"
	"fmt"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindString
	KindBool
	KindBytes
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is one payload item. The zero Value is invalid and cannot be encoded.
type Value struct {
	kind Kind
	i    int64
	s    string
	b    bool
	raw  []byte
	m    Map
	l    []Value
}

// Map is a string-keyed payload body.
type Map map[string]Value

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint is Int for the unsigned ids and sizes devices report.
func Uint(v uint32) Value { return Int(int64(v)) }

func Str(v string) Value { return Value{kind: KindString, s: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Bytes copies v.
func Bytes(v []byte) Value {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Value{kind: KindBytes, raw: buf}
}

func MapOf(m Map) Value {
	if m == nil {
		m = Map{}
	}
	return Value{kind: KindMap, m: m}
}

func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, l: items}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	buf := make([]byte, len(v.raw))
	copy(buf, v.raw)
	return buf, true
}

func (v Value) AsMap() (Map, bool) { return v.m, v.kind == KindMap }

func (v Value) AsList() ([]Value, bool) { return v.l, v.kind == KindList }

// Equal reports value-level equality; map key order never matters.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindMap:
		return v.m.Equal(o.m)
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Native converts v into plain Go values (int64, string, bool, []byte,
// map[string]any, []any).
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindBytes:
		buf := make([]byte, len(v.raw))
		copy(buf, v.raw)
		return buf
	case KindMap:
		return v.m.Native()
	case KindList:
		out := make([]any, 0, len(v.l))
		for _, item := range v.l {
			out = append(out, item.Native())
		}
		return out
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("h'%x'", v.raw)
	case KindInvalid:
		return "<invalid>"
	default:
		return fmt.Sprint(v.Native())
	}
}

func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m Map) Int(key string) (int64, bool) { return m[key].AsInt() }

func (m Map) String(key string) (string, bool) { return m[key].AsString() }

func (m Map) Bool(key string) (bool, bool) { return m[key].AsBool() }

func (m Map) Bytes(key string) ([]byte, bool) { return m[key].AsBytes() }

func (m Map) Map(key string) (Map, bool) { return m[key].AsMap() }

func (m Map) List(key string) ([]Value, bool) { return m[key].AsList() }

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m Map) Equal(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (m Map) Native() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}
