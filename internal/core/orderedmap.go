package core

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// OrderedMap decodes a YAML mapping while remembering the order its keys
// appeared in the source document. Config and recipe documents rely on this
// to recover declaration order (apply visits machines in the order they are
// declared); lock documents sort on the way back out
// instead, since a lock is meant to diff deterministically rather than
// mirror how it was written.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap returns an empty, ready-to-use map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set inserts or updates a key, appending it to the order on first insertion.
func (m *OrderedMap[V]) Set(key string, v V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion (decode) order.
func (m *OrderedMap[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// SortedKeys returns keys in ascending lexical order.
func (m *OrderedMap[V]) SortedKeys() []string {
	out := m.Keys()
	sort.Strings(out)
	return out
}

// Delete removes a key, if present, from both the value map and the order.
func (m *OrderedMap[V]) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// UnmarshalYAML preserves source key order by walking the mapping node's
// Content pairs directly instead of decoding into a Go map.
func (m *OrderedMap[V]) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a YAML mapping, got %v", value.Tag)
	}
	m.keys = nil
	m.values = make(map[string]V)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("mapping key: %w", err)
		}
		var v V
		if err := value.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("mapping value for %q: %w", key, err)
		}
		m.Set(key, v)
	}
	return nil
}

// MarshalYAML always emits keys in sorted order, per the lock file's
// total-order serialization requirement.
func (m *OrderedMap[V]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.SortedKeys() {
		kn := &yaml.Node{}
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		vn := &yaml.Node{}
		if err := vn.Encode(m.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, kn, vn)
	}
	return node, nil
}
