package script

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"rash/internal/value"
)

// decodeValue converts an arbitrary yaml.Node into a value.Value, following
// the same "decode the whole tree generically, specialise only where the
// format needs it" approach as the teacher's dslyaml.go (which reserves
// yaml.Node fields for exactly the keys that are polymorphic — command,
// uses, with — and decodes everything else through normal struct tags).
// Here, task parameter mappings and `vars`/`loop` bodies are arbitrary YAML
// by nature, so the whole subtree is decoded this way rather than only a
// few named fields.
func decodeValue(n *yaml.Node) (value.Value, error) {
	if n == nil || n.Kind == 0 {
		return value.Null(), nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return decodeValue(n.Content[0])
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		elems := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := decodeValue(c)
			if err != nil {
				return value.Null(), err
			}
			elems[i] = v
		}
		return value.Seq(elems...), nil
	case yaml.MappingNode:
		out := value.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			v, err := decodeValue(valNode)
			if err != nil {
				return value.Null(), err
			}
			out = out.MapSet(keyNode.Value, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeValue(n.Alias)
	default:
		return value.Null(), fmt.Errorf("unsupported YAML node kind %d", n.Kind)
	}
}

func decodeScalar(n *yaml.Node) (value.Value, error) {
	switch n.Tag {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return value.Null(), err
		}
		return value.Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return value.Null(), err
		}
		return value.Int(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return value.Null(), err
		}
		return value.Float(f), nil
	default:
		return value.String(n.Value), nil
	}
}

// stringOrSeq decodes a node that may be a bare scalar or a sequence of
// scalars into a []string, the "string-or-sequence field" polymorphism the
// teacher's dslyaml.go handles for `command`/`uses` via yaml.Node. Nothing
// in the loader calls it: task fields are decoded through decodeValue.
func stringOrSeq(n *yaml.Node) ([]string, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, len(n.Content))
		for i, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("expected scalar sequence element, got kind %d", c.Kind)
			}
			out[i] = c.Value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected scalar or sequence, got kind %d", n.Kind)
	}
}
