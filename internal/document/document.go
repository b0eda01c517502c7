// Package document implements the in-memory model of a request's editable fields.
//
// A request is a [Mapping]: an ordered set of string keys, each holding a [Value]. A [Value]
// is a small tagged variant, it is exactly one of a scalar, a sequence of values or a nested
// mapping, and its [Kind] says which.
//
// The model knows nothing about where documents come from, the YAML and JSON codecs
// in this package convert to and from it at the edges.
package document

import (
	"iter"
	"slices"
)

// Kind is the kind of a [Value].
type Kind int

const (
	KindScalar   Kind = iota // Scalar
	KindSequence             // Sequence
	KindMapping              // Mapping
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindSequence:
		return "Sequence"
	case KindMapping:
		return "Mapping"
	default:
		return "Kind(invalid)"
	}
}

// Value is a single node in a document.
//
// The zero Value is the empty string scalar.
type Value struct {
	mapping *Mapping // Populated if kind == KindMapping
	text    string   // Scalar text
	tag     string   // Resolved YAML tag of a scalar read from a file e.g. "!!int", empty otherwise
	items   []Value  // Elements if kind == KindSequence
	kind    Kind     // Which of the above is meaningful
}

// String returns an untagged scalar [Value] holding text.
func String(text string) Value {
	return Value{kind: KindScalar, text: text}
}

// Tagged returns a scalar [Value] holding text along with the YAML tag it was resolved with.
func Tagged(text, tag string) Value {
	return Value{kind: KindScalar, text: text, tag: tag}
}

// List returns a sequence [Value] of items.
func List(items ...Value) Value {
	return Value{kind: KindSequence, items: slices.Clone(items)}
}

// Map returns a mapping [Value] wrapping m.
//
// The mapping is not copied, changes through m are visible through the returned value.
func Map(m *Mapping) Value {
	if m == nil {
		m = NewMapping()
	}
	return Value{kind: KindMapping, mapping: m}
}

// Kind reports the kind of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the text of a scalar, or "" for any other kind.
func (v Value) Text() string {
	return v.text
}

// Tag returns the YAML tag of a scalar that was decoded from YAML, or "".
func (v Value) Tag() string {
	return v.tag
}

// Items returns the elements of a sequence, or nil for any other kind.
func (v Value) Items() []Value {
	return v.items
}

// Mapping returns the mapping held by v, or nil if v is not a mapping.
func (v Value) Mapping() *Mapping {
	return v.mapping
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		items := make([]Value, 0, len(v.items))
		for _, item := range v.items {
			items = append(items, item.Clone())
		}
		return Value{kind: KindSequence, items: items}
	case KindMapping:
		return Value{kind: KindMapping, mapping: v.mapping.Clone()}
	default:
		return v
	}
}

// Equal reports whether a and b hold the same data.
//
// Scalar tags are not compared, the string "12" and the integer 12 are equal.
// Mapping key order is significant.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindSequence:
		return slices.EqualFunc(a.items, b.items, Equal)
	case KindMapping:
		return a.mapping.Equal(b.mapping)
	default:
		return a.text == b.text
	}
}

// Entry is a single key and its value in a [Mapping].
type Entry struct {
	Key   string
	Value Value
}

// Mapping is an ordered mapping of string keys to values.
//
// Keys are unique and keep the position in which they were first set. Request documents are
// small so lookups are a linear scan.
//
// A nil *Mapping behaves as an empty one for reads.
type Mapping struct {
	entries []Entry
}

// NewMapping returns an empty [Mapping], optionally populated with entries in order.
func NewMapping(entries ...Entry) *Mapping {
	m := &Mapping{entries: make([]Entry, 0, len(entries))}
	for _, entry := range entries {
		m.Set(entry.Key, entry.Value)
	}
	return m
}

// Len returns the number of keys in m.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the keys of m in order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

// All returns an iterator over the key value pairs in m, in order.
func (m *Mapping) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, entry := range m.entries {
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}

// Get returns the value stored under key and whether it was present.
func (m *Mapping) Get(key string) (Value, bool) {
	index := m.index(key)
	if index == -1 {
		return Value{}, false
	}
	return m.entries[index].Value, true
}

// Set stores value under key. An existing key is overwritten in place, a new key
// is added at the end.
func (m *Mapping) Set(key string, value Value) {
	if index := m.index(key); index != -1 {
		m.entries[index].Value = value
		return
	}
	m.entries = append(m.entries, Entry{Key: key, Value: value})
}

// Delete removes key from m, reporting whether it was present.
func (m *Mapping) Delete(key string) bool {
	index := m.index(key)
	if index == -1 {
		return false
	}
	m.entries = slices.Delete(m.entries, index, index+1)
	return true
}

// Clone returns a deep copy of m. Cloning a nil mapping returns an empty one.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return NewMapping()
	}
	clone := &Mapping{entries: make([]Entry, 0, len(m.entries))}
	for _, entry := range m.entries {
		clone.entries = append(clone.entries, Entry{Key: entry.Key, Value: entry.Value.Clone()})
	}
	return clone
}

// Equal reports whether m and other hold the same keys, in the same order, with
// equal values.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i := range m.Len() {
		a, b := m.entries[i], other.entries[i]
		if a.Key != b.Key || !Equal(a.Value, b.Value) {
			return false
		}
	}
	return true
}

// index returns the position of key in m's entries, or -1.
func (m *Mapping) index(key string) int {
	if m == nil {
		return -1
	}
	return slices.IndexFunc(m.entries, func(entry Entry) bool { return entry.Key == key })
}
