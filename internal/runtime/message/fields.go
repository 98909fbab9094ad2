package message

import (
	"bytes"
	"iter"
	"reflect"
	"slices"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/drblury/notiflow/internal/runtime/jsoncodec"
)

// Field is a single key/value pair of a record.
type Field struct {
	Key   string
	Value any
}

// Fields is an ordered, read-only mapping of record keys to values. The zero value is empty.
type Fields struct {
	entries []Field
	index   map[string]int
}

// NewFields builds Fields from entries in order. A repeated key keeps its first position and
// takes the last value.
func NewFields(entries ...Field) Fields {
	f := Fields{
		entries: make([]Field, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if i, ok := f.index[e.Key]; ok {
			f.entries[i].Value = e.Value
			continue
		}
		f.index[e.Key] = len(f.entries)
		f.entries = append(f.entries, e)
	}
	return f
}

// FromMap builds Fields from a Go map. Keys are sorted so the order is deterministic.
func FromMap(m map[string]any) Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Field, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Field{Key: k, Value: m[k]})
	}
	return NewFields(entries...)
}

// Len returns the number of fields.
func (f Fields) Len() int { return len(f.entries) }

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.entries[i].Value, true
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f.index[key]
	return ok
}

// Keys returns the keys in declaration order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f.entries))
	for i, e := range f.entries {
		keys[i] = e.Key
	}
	return keys
}

// All iterates over the fields in declaration order.
func (f Fields) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range f.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Entries returns a copy of the ordered pairs.
func (f Fields) Entries() []Field {
	return slices.Clone(f.entries)
}

// Map returns the fields as an unordered Go map.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f.entries))
	for _, e := range f.entries {
		m[e.Key] = e.Value
	}
	return m
}

// Equal reports whether both hold the same keys with deeply equal values, regardless of order.
func (f Fields) Equal(other Fields) bool {
	if len(f.entries) != len(other.entries) {
		return false
	}
	for _, e := range f.entries {
		v, ok := other.Get(e.Key)
		if !ok || !reflect.DeepEqual(e.Value, v) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the fields as a JSON object in declaration order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range f.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := jsoncodec.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := jsoncodec.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the fields as a YAML mapping in declaration order.
func (f Fields) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range f.entries {
		var value yaml.Node
		if err := value.Encode(e.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&value,
		)
	}
	return node, nil
}
