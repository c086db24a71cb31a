package rashtemplate

import "rash/internal/value"

// toGo converts a value.Value into the plain Go representation pongo2's
// reflection-based evaluator expects: nil/bool/int64/float64/string/
// []byte/[]any/map[string]any. Omit becomes the omitSentinel marker so the
// `default` filter (and evalExpression) can recognize it downstream.
func toGo(v value.Value) any {
	switch v.Kind() {
	case value.KindNull:
		return nil
	case value.KindOmit:
		return omitValue
	case value.KindBool:
		return v.Bool()
	case value.KindInt:
		return v.Int()
	case value.KindFloat:
		return v.Float()
	case value.KindString:
		return v.Str()
	case value.KindBytes:
		return v.BytesVal()
	case value.KindSeq:
		elems := v.SeqVal()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = toGo(e)
		}
		return out
	case value.KindMap:
		out := make(map[string]any)
		for _, k := range v.MapKeys() {
			ev, _ := v.MapGet(k)
			out[k] = toGo(ev)
		}
		return out
	default:
		return nil
	}
}

// fromGo is the inverse of toGo, used to lift pongo2 evaluation results and
// lookup arguments back into value.Value.
func fromGo(g any) value.Value {
	switch x := g.(type) {
	case nil:
		return value.Null()
	case omitSentinel:
		return value.Omit()
	case bool:
		return value.Bool(x)
	case string:
		return value.String(x)
	case []byte:
		return value.Bytes(x)
	case int:
		return value.Int(int64(x))
	case int64:
		return value.Int(x)
	case float32:
		return value.Float(float64(x))
	case float64:
		return value.Float(x)
	case []any:
		out := make([]value.Value, len(x))
		for i, e := range x {
			out[i] = fromGo(e)
		}
		return value.Seq(out...)
	case map[string]any:
		out := value.NewMap()
		for k, v := range x {
			out = out.MapSet(k, fromGo(v))
		}
		return out
	default:
		return value.Null()
	}
}
