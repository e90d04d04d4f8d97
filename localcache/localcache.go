// Package localcache is the innermost tier: a per-handle map of field
// values with no TTL and no eviction. Values live here in their in-memory
// form only; converters run strictly at the shared-cache and store
// boundaries. A handle's local cache is its read-your-writes memory, so an
// entry is always the last value the store confirmed for that handle.
package localcache

import (
	"maps"
	"slices"
	"sync"
)

// Cache is safe for concurrent use. The zero value is ready.
type Cache struct {
	mu     sync.RWMutex
	values map[string]any
	order  []string
}

// Entry is one field-value pair for ordered bulk writes.
type Entry struct {
	Field string
	Value any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		values: make(map[string]any),
	}
}

// Has reports whether the field is cached.
func (c *Cache) Has(field string) bool {
	c.mu.RLock()
	_, ok := c.values[field]
	c.mu.RUnlock()

	return ok
}

// Get returns the cached value and whether it was present.
func (c *Cache) Get(field string) (any, bool) {
	c.mu.RLock()
	value, ok := c.values[field]
	c.mu.RUnlock()

	return value, ok
}

// Set stores a value, keeping first-write order for Fields.
func (c *Cache) Set(field string, value any) {
	c.mu.Lock()
	c.set(field, value)
	c.mu.Unlock()
}

// SetMany stores several values under one lock acquisition. Map iteration
// order is randomized, so fields new to the cache are appended in sorted
// name order to keep Fields deterministic.
func (c *Cache) SetMany(values map[string]any) {
	c.mu.Lock()

	for _, field := range slices.Sorted(maps.Keys(values)) {
		c.set(field, values[field])
	}

	c.mu.Unlock()
}

// SetOrdered stores entries in the given order.
func (c *Cache) SetOrdered(entries []Entry) {
	c.mu.Lock()

	for _, entry := range entries {
		c.set(entry.Field, entry.Value)
	}

	c.mu.Unlock()
}

// Delete removes one field.
func (c *Cache) Delete(field string) {
	c.mu.Lock()

	if _, ok := c.values[field]; ok {
		delete(c.values, field)

		idx := slices.Index(c.order, field)
		c.order = slices.Delete(c.order, idx, idx+1)
	}

	c.mu.Unlock()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.values = make(map[string]any)
	c.order = nil
	c.mu.Unlock()
}

// Len returns the number of cached fields.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.values)
	c.mu.RUnlock()

	return n
}

// Fields returns the cached field names in first-write order.
func (c *Cache) Fields() []string {
	c.mu.RLock()
	fields := slices.Clone(c.order)
	c.mu.RUnlock()

	return fields
}

// Snapshot returns a copy of the current content.
func (c *Cache) Snapshot() map[string]any {
	c.mu.RLock()

	snapshot := make(map[string]any, len(c.values))
	maps.Copy(snapshot, c.values)
	c.mu.RUnlock()

	return snapshot
}

// set requires the write lock.
func (c *Cache) set(field string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}

	if _, ok := c.values[field]; !ok {
		c.order = append(c.order, field)
	}

	c.values[field] = value
}
