package types

import (
	"fmt"
	"iter"
)

// OrderedMap is a name-keyed collection that remembers insertion order.
// It is not safe for concurrent use.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Add appends a value under name. Names must be unique.
func (m *OrderedMap[V]) Add(name string, v V) error {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, exists := m.values[name]; exists {
		return fmt.Errorf("duplicate name %q", name)
	}
	m.keys = append(m.keys, name)
	m.values[name] = v
	return nil
}

// Get looks up a value by name.
func (m *OrderedMap[V]) Get(name string) (V, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Names returns the names in insertion order.
func (m *OrderedMap[V]) Names() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the values in insertion order.
func (m *OrderedMap[V]) Values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// All iterates over name/value pairs in insertion order.
func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}
