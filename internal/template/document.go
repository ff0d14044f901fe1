package template

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Mapping is an order-preserving YAML mapping. Step declaration order in a
// flow template is execution order, so the document tree must keep key
// order end to end.
type Mapping = orderedmap.OrderedMap[string, any]

// NewMapping returns an empty ordered mapping.
func NewMapping() *Mapping {
	return orderedmap.New[string, any]()
}

// ParseDocument parses YAML text into a document tree of *Mapping, []any
// and scalars. The top level must be a mapping.
func ParseDocument(text string) (*Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMapping(), nil
	}
	value, err := nodeToValue(root.Content[0])
	if err != nil {
		return nil, err
	}
	m, ok := value.(*Mapping)
	if !ok {
		return nil, fmt.Errorf("top level of document must be a mapping, got %T", value)
	}
	return m, nil
}

func nodeToValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i < len(n.Content)-1; i += 2 {
			keyNode := n.Content[i]
			var key string
			if err := keyNode.Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: mapping key must be a string: %w", keyNode.Line, err)
			}
			value, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			value, err := nodeToValue(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, value)
		}
		return seq, nil
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	default:
		var value any
		if err := n.Decode(&value); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value, nil
	}
}

// DeepCopy copies a document tree. Mappings and sequences are duplicated
// recursively; scalars are shared.
func DeepCopy(value any) any {
	switch v := value.(type) {
	case *Mapping:
		out := NewMapping()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, DeepCopy(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = DeepCopy(item)
		}
		return out
	default:
		return value
	}
}

// ToPlain converts a document tree into plain map[string]any / []any
// structures, e.g. for JSON serialization or mapstructure decoding.
func ToPlain(value any) any {
	switch v := value.(type) {
	case *Mapping:
		out := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = ToPlain(pair.Value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ToPlain(item)
		}
		return out
	default:
		return value
	}
}
