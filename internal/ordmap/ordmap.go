// Package ordmap provides an insertion-ordered map. Mining and
// partitioning build every per-run aggregation on top of this type instead
// of a bare Go map, so iteration order stays deterministic across runs.
package ordmap

// Map is a map that remembers the order in which keys were first inserted.
type Map[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

// New returns an empty ordered map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{vals: make(map[K]V)}
}

// Get returns the value for k and whether it was present.
func (m *Map[K, V]) Get(k K) (V, bool) {
	v, ok := m.vals[k]
	return v, ok
}

// GetOr returns the value for k, or dflt if absent.
func (m *Map[K, V]) GetOr(k K, dflt V) V {
	if v, ok := m.vals[k]; ok {
		return v
	}
	return dflt
}

// Set inserts or overwrites the value for k, recording k at the end of the
// key order on first insertion.
func (m *Map[K, V]) Set(k K, v V) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.vals[k]
	return ok
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (m *Map[K, V]) Keys() []K { return m.keys }

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.keys) }

// Each calls fn for every entry in insertion order.
func (m *Map[K, V]) Each(fn func(k K, v V)) {
	for _, k := range m.keys {
		fn(k, m.vals[k])
	}
}
