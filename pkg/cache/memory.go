package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is a bounded least-recently-used map safe for concurrent use. Its
// lock is only held for the lookup or insert itself.
type Memory[K comparable, V any] struct {
	entries *lru.Cache[K, V]
}

func NewMemory[K comparable, V any](size int) (*Memory[K, V], error) {
	if size <= 0 {
		size = 256
	}
	entries, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Memory[K, V]{entries: entries}, nil
}

func (m *Memory[K, V]) Get(key K) (V, bool) {
	return m.entries.Get(key)
}

// Add inserts or replaces key, reporting whether an older entry was evicted.
func (m *Memory[K, V]) Add(key K, value V) bool {
	return m.entries.Add(key, value)
}

func (m *Memory[K, V]) Contains(key K) bool {
	return m.entries.Contains(key)
}

func (m *Memory[K, V]) Len() int {
	return m.entries.Len()
}

// Values returns the entries from least to most recently used.
func (m *Memory[K, V]) Values() []V {
	return m.entries.Values()
}
