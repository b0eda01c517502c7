package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON implements [json.Marshaler] for a [Value].
//
// Scalars decoded from YAML as numbers, booleans or null keep that type, every
// other scalar (including everything set by a mutation) is a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindSequence:
		buf := &bytes.Buffer{}
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			raw, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMapping:
		return v.mapping.MarshalJSON()
	default:
		return scalarJSON(v)
	}
}

// MarshalJSON implements [json.Marshaler] for a [Mapping], keys are written in order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')

	first := true
	for key, value := range m.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		rawKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(rawKey)
		buf.WriteByte(':')

		rawValue, err := value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		buf.Write(rawValue)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// scalarJSON encodes a scalar, typed by its YAML tag.
func scalarJSON(v Value) ([]byte, error) {
	switch v.tag {
	case "!!int", "!!float", "!!bool", "!!null":
		// Let the YAML library do the resolution, it knows about 0x10, 1_000, .5 etc.
		var typed any
		if err := yaml.Unmarshal([]byte(v.text), &typed); err != nil {
			return nil, fmt.Errorf("could not resolve %s scalar %q: %w", v.tag, v.text, err)
		}
		return json.Marshal(typed)
	default:
		return json.Marshal(v.text)
	}
}
