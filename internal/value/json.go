package value

import "encoding/json"

// MarshalJSON and UnmarshalJSON round-trip a Value through JSON for the
// become IPC channel (internal/procrun): the worker process has no shared
// memory with the parent, so a rendered parameter mapping has to cross a
// process boundary somehow, and JSON is what the rest of the pack reaches
// for whenever a Go value needs to leave the process (the teacher's own
// config/dryrun output marshals plain Go structs the same way).
//
// JSON objects have no defined key order, so a mapping's insertion order
// is not preserved across this round-trip; by the time a task's params
// reach become, every template has already been rendered and the mapping
// has nothing left that depends on iteration order, so this is a
// transport-layer loss only, not a semantic one.
func MarshalJSON(v Value) ([]byte, error) {
	return json.Marshal(toJSONAny(v))
}

func UnmarshalJSON(b []byte) (Value, error) {
	var a any
	if err := json.Unmarshal(b, &a); err != nil {
		return Null(), err
	}
	return fromJSONAny(a), nil
}

func toJSONAny(v Value) any {
	switch v.Kind() {
	case KindNull, KindOmit:
		return nil
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.Int()
	case KindFloat:
		return v.Float()
	case KindString:
		return v.Str()
	case KindBytes:
		return string(v.BytesVal())
	case KindSeq:
		elems := v.SeqVal()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = toJSONAny(e)
		}
		return out
	case KindMap:
		out := make(map[string]any)
		for _, k := range v.MapKeys() {
			ev, _ := v.MapGet(k)
			out[k] = toJSONAny(ev)
		}
		return out
	default:
		return nil
	}
}

func fromJSONAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return String(t)
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = fromJSONAny(e)
		}
		return Seq(out...)
	case map[string]any:
		out := NewMap()
		for k, v := range t {
			out = out.MapSet(k, fromJSONAny(v))
		}
		return out
	default:
		return Null()
	}
}
