package threadsafemap

import (
	"maps"
	"sync"
)

// ThreadSafeMap is a generic map safe for concurrent readers and writers.
// The zero value is ready to use.
type ThreadSafeMap[K comparable, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

// NewThreadSafeMap returns a new thread-safe map with initialized storage.
func NewThreadSafeMap[K comparable, V any]() *ThreadSafeMap[K, V] {
	return &ThreadSafeMap[K, V]{
		data: make(map[K]V),
	}
}

// Clear removes all key-value pairs from the map.
func (m *ThreadSafeMap[K, V]) Clear() {
	m.mu.Lock()
	m.data = make(map[K]V)
	m.mu.Unlock()
}

// Copy returns a snapshot of the current content.
func (m *ThreadSafeMap[K, V]) Copy() map[K]V {
	m.mu.RLock()

	copied := make(map[K]V, len(m.data))
	maps.Copy(copied, m.data)
	m.mu.RUnlock()

	return copied
}

// Delete removes the key if it exists.
func (m *ThreadSafeMap[K, V]) Delete(key K) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

// Get retrieves the value for a key and whether it was found.
func (m *ThreadSafeMap[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	val, exists := m.data[key]
	m.mu.RUnlock()

	return val, exists
}

// GetOrSet returns the existing value for the key, or stores and returns
// the given one. The boolean reports whether the key already existed.
func (m *ThreadSafeMap[K, V]) GetOrSet(key K, value V) (V, bool) {
	m.mu.Lock()
	m.safetyCheck()

	existing, exists := m.data[key]
	if exists {
		m.mu.Unlock()

		return existing, true
	}

	m.data[key] = value
	m.mu.Unlock()

	return value, false
}

// GetOrSetFunc is GetOrSet with a lazy factory, so the value is only built
// when the key is genuinely absent. The factory runs under the write lock
// and must not call back into the map.
func (m *ThreadSafeMap[K, V]) GetOrSetFunc(key K, factory func() V) (V, bool) {
	m.mu.Lock()
	m.safetyCheck()

	existing, exists := m.data[key]
	if exists {
		m.mu.Unlock()

		return existing, true
	}

	value := factory()
	m.data[key] = value
	m.mu.Unlock()

	return value, false
}

// Has checks whether a given key exists.
func (m *ThreadSafeMap[K, V]) Has(key K) bool {
	m.mu.RLock()
	_, exists := m.data[key]
	m.mu.RUnlock()

	return exists
}

// Iterate calls fn for each pair while holding the read lock. fn must not
// mutate the map.
func (m *ThreadSafeMap[K, V]) Iterate(fn func(K, V)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.data {
		fn(k, v)
	}
}

// Keys returns all keys currently in the map.
func (m *ThreadSafeMap[K, V]) Keys() []K {
	m.mu.RLock()

	keys := make([]K, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	m.mu.RUnlock()

	return keys
}

// Length returns the number of stored pairs.
func (m *ThreadSafeMap[K, V]) Length() int {
	m.mu.RLock()
	length := len(m.data)
	m.mu.RUnlock()

	return length
}

// Pop removes and returns the value for the key, reporting whether it was
// found.
func (m *ThreadSafeMap[K, V]) Pop(key K) (V, bool) {
	m.mu.Lock()

	val, ok := m.data[key]
	if ok {
		delete(m.data, key)
	}

	m.mu.Unlock()

	return val, ok
}

// Set stores or replaces the value for a key.
func (m *ThreadSafeMap[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.safetyCheck()
	m.data[key] = value
	m.mu.Unlock()
}

// Update rewrites a key through a transformation that sees the old value
// and whether it existed.
func (m *ThreadSafeMap[K, V]) Update(key K, fn func(old V, exists bool) V) {
	m.mu.Lock()
	m.safetyCheck()
	old, exists := m.data[key]
	m.data[key] = fn(old, exists)
	m.mu.Unlock()
}

// Values returns all stored values.
func (m *ThreadSafeMap[K, V]) Values() []V {
	m.mu.RLock()

	values := make([]V, 0, len(m.data))
	for _, v := range m.data {
		values = append(values, v)
	}

	m.mu.RUnlock()

	return values
}

// safetyCheck lazily initializes storage so the zero value works. Callers
// must hold the write lock; read paths tolerate a nil map natively.
func (m *ThreadSafeMap[K, V]) safetyCheck() {
	if m.data == nil {
		m.data = make(map[K]V)
	}
}
