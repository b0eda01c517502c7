package document

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a YAML document expected to be a mapping is something else.
var ErrNotMapping = errors.New("document is not a mapping")

const (
	tagStr   = "!!str"
	tagMerge = "!!merge"
)

// FromNode converts a decoded YAML node into a [Value].
//
// Document nodes are unwrapped, aliases are followed and merge keys ("<<") are
// expanded so the result is a plain tree.
func FromNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return String(""), nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Map(NewMapping()), nil
		}
		return FromNode(node.Content[0])
	case yaml.AliasNode:
		return FromNode(node.Alias)
	case yaml.ScalarNode:
		return Tagged(node.Value, node.ShortTag()), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := FromNode(child)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindSequence, items: items}, nil
	case yaml.MappingNode:
		m, err := mappingFromNode(node)
		if err != nil {
			return Value{}, err
		}
		return Map(m), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

// mappingFromNode converts a YAML mapping node, the caller guarantees node.Kind is
// a [yaml.MappingNode].
func mappingFromNode(node *yaml.Node) (*Mapping, error) {
	m := NewMapping()

	// Keys set explicitly win over anything pulled in by a merge key, regardless of
	// which comes first in the source
	var merged []*Mapping

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if key.Kind == yaml.ScalarNode && key.ShortTag() == tagMerge {
			sources, err := mergeSources(value)
			if err != nil {
				return nil, err
			}
			merged = append(merged, sources...)
			continue
		}

		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}

		converted, err := FromNode(value)
		if err != nil {
			return nil, err
		}
		m.Set(key.Value, converted)
	}

	for _, source := range merged {
		for key, value := range source.All() {
			if _, exists := m.Get(key); !exists {
				m.Set(key, value)
			}
		}
	}

	return m, nil
}

// mergeSources returns the mappings named by the value of a "<<" merge key, which is
// either a single mapping (usually an alias) or a sequence of them.
func mergeSources(node *yaml.Node) ([]*Mapping, error) {
	value, err := FromNode(node)
	if err != nil {
		return nil, err
	}

	switch value.Kind() {
	case KindMapping:
		return []*Mapping{value.Mapping()}, nil
	case KindSequence:
		sources := make([]*Mapping, 0, len(value.Items()))
		for _, item := range value.Items() {
			if item.Kind() != KindMapping {
				return nil, fmt.Errorf("line %d: merge key sequence must only contain mappings", node.Line)
			}
			sources = append(sources, item.Mapping())
		}
		return sources, nil
	default:
		return nil, fmt.Errorf("line %d: merge key value must be a mapping or sequence of mappings", node.Line)
	}
}

// Node converts v to a YAML node suitable for encoding.
//
// Untagged scalars are encoded as strings so a value like "12" set from the command
// line is written quoted rather than turning into a number.
func (v Value) Node() *yaml.Node {
	switch v.kind {
	case KindSequence:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.items {
			node.Content = append(node.Content, item.Node())
		}
		return node
	case KindMapping:
		return v.mapping.Node()
	default:
		tag := v.tag
		if tag == "" {
			tag = tagStr
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.text}
	}
}

// Node converts m to a YAML mapping node.
func (m *Mapping) Node() *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for key, value := range m.All() {
		node.Content = append(
			node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: key},
			value.Node(),
		)
	}
	return node
}

// MarshalYAML implements [yaml.Marshaler] for a [Value].
func (v Value) MarshalYAML() (any, error) {
	return v.Node(), nil
}

// UnmarshalYAML implements [yaml.Unmarshaler] for a [Value].
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	value, err := FromNode(node)
	if err != nil {
		return err
	}
	*v = value
	return nil
}

// MarshalYAML implements [yaml.Marshaler] for a [Mapping].
func (m *Mapping) MarshalYAML() (any, error) {
	return m.Node(), nil
}

// UnmarshalYAML implements [yaml.Unmarshaler] for a [Mapping].
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	value, err := FromNode(node)
	if err != nil {
		return err
	}
	if value.Kind() == KindScalar && value.Tag() == "!!null" {
		// An empty document between "---" markers
		*m = Mapping{}
		return nil
	}
	if value.Kind() != KindMapping {
		return fmt.Errorf("line %d: %w, got %s", node.Line, ErrNotMapping, value.Kind())
	}
	*m = *value.Mapping()
	return nil
}

// Decode decodes a single YAML document that must be a mapping. An empty
// document decodes to an empty mapping.
func Decode(src []byte) (*Mapping, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(src, &node); err != nil {
		return nil, err
	}

	if node.Kind == 0 {
		// Empty input
		return NewMapping(), nil
	}

	m := NewMapping()
	if err := m.UnmarshalYAML(&node); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeValue decodes a single YAML document of any kind. An empty document decodes
// to an empty string.
func DecodeValue(src []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(src, &node); err != nil {
		return Value{}, err
	}

	if node.Kind == 0 {
		return String(""), nil
	}

	return FromNode(&node)
}

// Encode renders v as a YAML document with two space indentation.
func Encode(v Value) ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v.Node()); err != nil {
		return nil, fmt.Errorf("could not encode YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("could not flush YAML encoder: %w", err)
	}

	return buf.Bytes(), nil
}
