// Package value implements the engine's dynamic structured value: a tagged
// union of null/bool/int/float/string/bytes/sequence/mapping, plus a ninth
// variant — Omit — used as a sentinel that causes a parameter field to be
// dropped before a module validates its parameters.
//
// The union-of-primitives shape and the "sentinel is its own variant, not a
// marker on an existing one" design follow spec §9's Design Notes directly.
package value

import (
	"fmt"
	"sort"
)

// Kind tags the variant currently held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindSeq
	KindMap
	KindOmit
)

// Value is an immutable dynamic value. The zero Value is Null.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	seq   []Value
	// mp holds insertion order alongside the values: templates observe
	// mapping order (spec §3), so a plain Go map is not enough.
	mp *orderedMap
}

// orderedMap is a minimal insertion-ordered string-keyed map.
type orderedMap struct {
	keys   []string
	values map[string]Value
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]Value)}
}

func (m *orderedMap) set(k string, v Value) {
	if _, exists := m.values[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *orderedMap) get(k string) (Value, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Constructors.

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Int(i int64) Value           { return Value{kind: KindInt, i: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, f: f} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value        { return Value{kind: KindBytes, bytes: append([]byte(nil), b...)} }
func Seq(vs ...Value) Value       { return Value{kind: KindSeq, seq: append([]Value(nil), vs...)} }

// Omit is the distinguished sentinel. It compares unequal to Null (different
// Kind) and is never inserted into a variable context as itself — code that
// would bind it must detect it first (see IsOmit).
func Omit() Value { return Value{kind: KindOmit} }

// NewMap returns an empty ordered mapping Value.
func NewMap() Value { return Value{kind: KindMap, mp: newOrderedMap()} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) IsOmit() bool  { return v.kind == KindOmit }
func (v Value) IsBool() bool  { return v.kind == KindBool }
func (v Value) IsInt() bool   { return v.kind == KindInt }
func (v Value) IsFloat() bool { return v.kind == KindFloat }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsSeq() bool   { return v.kind == KindSeq }
func (v Value) IsMap() bool   { return v.kind == KindMap }

// Accessors. Each returns the zero value of its result type if the Kind
// does not match; callers that are not sure of the Kind check first (IsX).

func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) BytesVal() []byte {
	return append([]byte(nil), v.bytes...)
}
func (v Value) SeqVal() []Value { return v.seq }

// MapKeys returns the mapping's keys in insertion order. Empty for non-maps.
func (v Value) MapKeys() []string {
	if v.kind != KindMap || v.mp == nil {
		return nil
	}
	return append([]string(nil), v.mp.keys...)
}

// MapGet looks up key in a mapping Value.
func (v Value) MapGet(key string) (Value, bool) {
	if v.kind != KindMap || v.mp == nil {
		return Value{}, false
	}
	return v.mp.get(key)
}

// MapSet returns a new mapping Value with key bound to val. The receiver is
// not mutated (Values are immutable once constructed, per spec §3).
func (v Value) MapSet(key string, val Value) Value {
	out := Value{kind: KindMap, mp: newOrderedMap()}
	if v.kind == KindMap && v.mp != nil {
		for _, k := range v.mp.keys {
			ev, _ := v.mp.get(k)
			out.mp.set(k, ev)
		}
	}
	out.mp.set(key, val)
	return out
}

// Map constructs a mapping Value from key/value pairs, preserving the order
// the pairs are given in.
func Map(pairs ...KV) Value {
	out := Value{kind: KindMap, mp: newOrderedMap()}
	for _, p := range pairs {
		out.mp.set(p.Key, p.Val)
	}
	return out
}

// KV is a single key/value pair used by Map.
type KV struct {
	Key string
	Val Value
}

// Truthy implements the coercion rule of spec §4.3: true/non-empty
// string/non-zero number/non-empty sequence/non-empty mapping → true;
// everything else (null, omit, false, "", 0, 0.0, empty seq, empty map) →
// false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull, KindOmit:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindBytes:
		return len(v.bytes) > 0
	case KindSeq:
		return len(v.seq) > 0
	case KindMap:
		return v.mp != nil && len(v.mp.keys) > 0
	default:
		return false
	}
}

// Equal reports structural equality. Omit never equals Null even though
// both are "empty" in a sense — this is the point of Omit being a distinct
// variant (spec §9).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindOmit:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindBytes:
		return string(v.bytes) == string(other.bytes)
	case KindSeq:
		if len(v.seq) != len(other.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(other.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		keys := v.MapKeys()
		okeys := other.MapKeys()
		if len(keys) != len(okeys) {
			return false
		}
		for _, k := range keys {
			a, _ := v.MapGet(k)
			b, ok := other.MapGet(k)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a human-readable form; used by force_string=true template
// rendering and by log lines.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindOmit:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return string(v.bytes)
	case KindSeq:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%v", parts)
	case KindMap:
		keys := v.MapKeys()
		sort.Strings(keys) // stable rendering; does not affect stored order
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			ev, _ := v.MapGet(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, ev.String()))
		}
		return fmt.Sprintf("%v", parts)
	default:
		return ""
	}
}

// Len reports the length of a string/bytes/seq/map Value (used by the
// `length`/`| length` style expressions referenced in spec scenario S4).
// Returns 0 for scalar kinds.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.s)
	case KindBytes:
		return len(v.bytes)
	case KindSeq:
		return len(v.seq)
	case KindMap:
		return len(v.MapKeys())
	default:
		return 0
	}
}
