// Package ordered provides keyed lookup structures that remember the order
// records were added in. Tables build them from decoded rows so iteration
// follows the source file rather than Go map order.
package ordered

import (
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Index maps K to V in insertion order.
// Re-adding a key replaces its value but keeps its original position.
type Index[K comparable, V any] struct {
	m *orderedmap.OrderedMap[K, V]
}

// NewIndex returns an empty index with room for capacity entries.
func NewIndex[K comparable, V any](capacity int) *Index[K, V] {
	return &Index[K, V]{m: orderedmap.New[K, V](orderedmap.WithCapacity[K, V](capacity))}
}

// Put sets key to value and reports whether key was already present.
func (x *Index[K, V]) Put(key K, value V) (replaced bool) {
	_, replaced = x.m.Set(key, value)
	return replaced
}

// Get returns the value for key.
func (x *Index[K, V]) Get(key K) (V, bool) {
	return x.m.Get(key)
}

// Len returns the number of keys.
func (x *Index[K, V]) Len() int {
	if x == nil {
		return 0
	}
	return x.m.Len()
}

// All iterates key/value pairs oldest first.
func (x *Index[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if x == nil {
			return
		}
		for p := x.m.Oldest(); p != nil; p = p.Next() {
			if !yield(p.Key, p.Value) {
				return
			}
		}
	}
}

// Keys returns the keys oldest first.
func (x *Index[K, V]) Keys() []K {
	keys := make([]K, 0, x.Len())
	for k := range x.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the values in key order.
func (x *Index[K, V]) Values() []V {
	values := make([]V, 0, x.Len())
	for _, v := range x.All() {
		values = append(values, v)
	}
	return values
}

// First returns the oldest entry.
func (x *Index[K, V]) First() (key K, value V, ok bool) {
	if x == nil {
		return key, value, false
	}
	p := x.m.Oldest()
	if p == nil {
		return key, value, false
	}
	return p.Key, p.Value, true
}

// Group maps K to every V added under it. Keys keep first-seen order and
// each key's values keep the order they were added in.
type Group[K comparable, V any] struct {
	idx *Index[K, []V]
}

// NewGroup returns an empty group.
func NewGroup[K comparable, V any]() *Group[K, V] {
	return &Group[K, V]{idx: NewIndex[K, []V](0)}
}

// Add appends value under key.
func (g *Group[K, V]) Add(key K, value V) {
	values, _ := g.idx.Get(key)
	g.idx.Put(key, append(values, value))
}

// Get returns the values added under key, or nil.
func (g *Group[K, V]) Get(key K) []V {
	if g == nil {
		return nil
	}
	values, _ := g.idx.Get(key)
	return values
}

// Len returns the number of distinct keys.
func (g *Group[K, V]) Len() int {
	if g == nil {
		return 0
	}
	return g.idx.Len()
}

// Keys returns the distinct keys in first-seen order.
func (g *Group[K, V]) Keys() []K {
	if g == nil {
		return nil
	}
	return g.idx.Keys()
}

// All iterates keys in first-seen order with their values.
func (g *Group[K, V]) All() iter.Seq2[K, []V] {
	if g == nil {
		return func(func(K, []V) bool) {}
	}
	return g.idx.All()
}
