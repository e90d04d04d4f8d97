// ========================= In-memory implementation ========================= //

// Memory is a threadsafe, TTL-aware map-backed cache suitable for
// single-process deployments or unit tests. A background goroutine sweeps
// expired entries at a fixed interval; reads treat expiry as authoritative,
// so an entry past its deadline is reported as missing even before the
// sweeper reclaims it.

package sharedcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sync"
	"time"
	"weak"

	"github.com/emberhall/fieldvault/fverrors"
)

// DefaultCleanupTick is the sweep interval used when the caller passes zero.
const DefaultCleanupTick = time.Minute

const memoryBackend = "MEMORY"

// Memory is a threadsafe, TTL-aware map-backed cache.
//
// Example (create + basic operations):
//
//	memory := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), time.Minute)
//	_ = memory.Set(ctx, "model:users:42:nickname", "ember", time.Hour)
//	value, ok, _ := memory.Get(ctx, "model:users:42:nickname")
//	fmt.Println(value, ok) // "ember" true
type Memory struct {
	inner     MemoryContainer // key -> *memoryCacheItem
	mutex     sync.RWMutex    // guards all access to inner
	done      chan struct{}   // signals the sweeper to exit on Close()
	closeOnce sync.Once
}

// NewMemory builds a new [Memory] cache instance and immediately starts the
// background sweeper.
//
//	data        - caller-provided map; pass NewMemoryContainer() for an empty cache
//	tickToClean - sweep interval; zero selects DefaultCleanupTick
//
// Example:
//
//	memory := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), 30*time.Second)
func NewMemory(data MemoryContainer, tickToClean time.Duration) *Memory {
	if tickToClean <= 0 {
		tickToClean = DefaultCleanupTick
	}

	cache := Memory{
		inner: data,
		done:  make(chan struct{}),
	}

	go cleanup(weak.Make(&cache), tickToClean, cache.done)

	return &cache
}

// cleanup runs in its own goroutine, periodically scanning the entire map for
// expired items. The weak pointer lets the cache be collected even if Close
// is never called.
func cleanup(
	pointer weak.Pointer[Memory],
	tickToClean time.Duration,
	done <-chan struct{},
) {
	ticker := time.NewTicker(tickToClean)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			memory := pointer.Value()

			if memory == nil {
				return
			}

			memory.mutex.Lock()

			for key, item := range memory.inner.Map {
				if item.isExpired() {
					delete(memory.inner.Map, key)
				}
			}

			memory.mutex.Unlock()
		case <-done:
			return
		}
	}
}

// Raw returns the underlying MemoryContainer.
//
// Example:
//
//	raw := memory.Raw()
func (m *Memory) Raw() MemoryContainer {
	return m.inner
}

// Get implements [Client.Get] for the in-memory back-end. Expired entries
// count as missing regardless of whether the sweeper has reclaimed them.
func (m *Memory) Get(
	_ context.Context,
	key string,
) (string, bool, fverrors.Error) {
	m.mutex.RLock()

	defer m.mutex.RUnlock()

	item, ok := m.inner.Map[key]
	if !ok || item.isExpired() {
		return "", false, nil
	}

	return item.Value, true, nil
}

// MGet implements [Client.MGet] for the in-memory back-end.
func (m *Memory) MGet(
	_ context.Context,
	keys ...string,
) (map[string]string, fverrors.Error) {
	m.mutex.RLock()

	defer m.mutex.RUnlock()

	result := make(map[string]string, len(keys))

	for _, key := range keys {
		item, ok := m.inner.Map[key]
		if !ok || item.isExpired() {
			continue
		}

		result[key] = item.Value
	}

	return result, nil
}

// Set implements [Client.Set] for the in-memory back-end.
func (m *Memory) Set(
	_ context.Context,
	key string,
	value string,
	ttl time.Duration,
) fverrors.Error {
	m.mutex.Lock()

	defer m.mutex.Unlock()

	m.inner.Map[key] = newMemoryCacheItem(value, ttl)

	return nil
}

// MSet implements [Client.MSet] for the in-memory back-end. All pairs are
// written under a single lock acquisition.
func (m *Memory) MSet(
	_ context.Context,
	ttl time.Duration,
	pairs map[string]string,
) fverrors.Error {
	m.mutex.Lock()

	defer m.mutex.Unlock()

	for key, value := range pairs {
		m.inner.Map[key] = newMemoryCacheItem(value, ttl)
	}

	return nil
}

// Exists implements [Client.Exists] for the in-memory back-end.
func (m *Memory) Exists(
	_ context.Context,
	keys ...string,
) (int64, fverrors.Error) {
	m.mutex.RLock()

	defer m.mutex.RUnlock()

	var count int64

	for _, key := range keys {
		if item, ok := m.inner.Map[key]; ok && !item.isExpired() {
			count++
		}
	}

	return count, nil
}

// Del implements [Client.Del] for the in-memory back-end.
func (m *Memory) Del(
	_ context.Context,
	keys ...string,
) (int64, fverrors.Error) {
	m.mutex.Lock()

	defer m.mutex.Unlock()

	var removed int64

	for _, key := range keys {
		if _, ok := m.inner.Map[key]; ok {
			delete(m.inner.Map, key)

			removed++
		}
	}

	return removed, nil
}

// Keys implements [Client.Keys] for the in-memory back-end. Patterns use
// path.Match syntax; cache keys never contain '/', so '*' spans the whole
// key the way a Redis glob does.
func (m *Memory) Keys(
	_ context.Context,
	pattern string,
) ([]string, fverrors.Error) {
	m.mutex.RLock()

	defer m.mutex.RUnlock()

	var keys []string

	for key, item := range m.inner.Map {
		if item.isExpired() {
			continue
		}

		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, fverrors.FromError(
				http.StatusInternalServerError,
				errors.Join(err, ErrBadKeyPattern),
				fmt.Sprintf("[%s] failed to match pattern `%s`", memoryBackend, pattern),
			)
		}

		if matched {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Ready always reports true for the in-memory back-end.
func (m *Memory) Ready() bool {
	return true
}

// Ping always succeeds for the in-memory back-end.
//
// Example:
//
//	_ = memory.Ping(ctx)
func (m *Memory) Ping(_ context.Context) fverrors.Error {
	return nil
}

// Close stops the sweeper and clears the map. It is safe to call more than
// once.
func (m *Memory) Close() fverrors.Error {
	m.closeOnce.Do(func() {
		close(m.done)
	})

	m.mutex.Lock()

	defer m.mutex.Unlock()

	clear(m.inner.Map)

	return nil
}

// memoryCacheItem is the atomic unit stored inside the in-memory cache. It
// keeps the actual value together with TTL metadata.
//
//   - Value     - wire string the caller saved.
//   - ExpiresAt - absolute point in time when the item becomes stale
//     (ignored if Endless is true).
//   - Endless   - true means "no TTL at all", so the item never expires.
type memoryCacheItem struct {
	Value     string
	ExpiresAt time.Time
	Endless   bool
}

// newMemoryCacheItem builds an item from a relative TTL. A non-positive ttl
// produces an endless item, mirroring the Redis SET semantics for zero
// expiration.
func newMemoryCacheItem(value string, ttl time.Duration) *memoryCacheItem {
	if ttl <= 0 {
		return &memoryCacheItem{
			Value:   value,
			Endless: true,
		}
	}

	return &memoryCacheItem{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// isExpired reports whether the item's TTL has elapsed. Endless items are
// never reported as expired.
func (m *memoryCacheItem) isExpired() bool {
	return !m.Endless && time.Now().After(m.ExpiresAt)
}

// MemoryContainer is the backing store for the in-memory [Cache]
// implementation: a flat map from cache key to item.
//
// Example:
//
//	container := sharedcache.NewMemoryContainer()
//	memory := sharedcache.NewMemory(container, time.Minute)
type MemoryContainer struct {
	Map map[string]*memoryCacheItem
}

// NewMemoryContainer allocates an empty MemoryContainer.
func NewMemoryContainer() MemoryContainer {
	return MemoryContainer{
		Map: make(map[string]*memoryCacheItem),
	}
}
