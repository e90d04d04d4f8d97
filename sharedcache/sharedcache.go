// Package sharedcache provides the cross-process cache tier for field values:
// a flat string key-value store with per-write TTLs, served either by Redis or
// by an in-memory map with the same surface. Both back-ends expose the same
// high-level API so that callers can switch implementations without changing
// their business logic.
//
// # Advisory semantics
//
// The shared tier is a hint layer in front of the authoritative store, so a
// missing key is never an error here: [Client.Get] reports absence through its
// boolean result and [Client.MGet] simply omits keys it could not find.
// Callers fall through to the store on a miss and backfill afterwards.
//
// # Generic design
//
// The [Cache] interface is parameterised by a single type parameter T
// constrained to either *redis.Client or MemoryContainer. This allows the
// concrete implementation to expose its raw driver value via [Cache.Raw]
// without resorting to unsafe type assertions. Code that only performs cache
// operations should hold the non-generic [Client] instead.
//
// # Readiness
//
// The Redis back-end keeps probing its server in the background and publishes
// the outcome through [Client.Ready]. While the flag is down, callers are
// expected to skip the tier entirely rather than pay a timeout per operation.
// The in-memory back-end is always ready.
//
// # Thread-safety
//
//   - [Redis] is as thread-safe as the underlying go-redis/v9 client.
//   - [Memory] uses a sync.RWMutex to protect all reads and writes. The
//     background TTL sweeper acquires the mutex only for short, bounded
//     periods.
//
// # Quick start (in-memory)
//
// ```go
// memory := sharedcache.NewCache(sharedcache.NewMemoryContainer(), log)
// ctx := context.Background()
// _ = memory.Set(ctx, "model:users:42:nickname", "ember", time.Minute)
// value, ok, _ := memory.Get(ctx, "model:users:42:nickname")
// fmt.Println(value, ok) // "ember" true
// ```
//
// # Quick start (Redis)
//
// ```go
// client := sharedcache.NewRedisClient("localhost", uint16(6379), "", 0, log)
// shared := sharedcache.NewCache(client, log)
// ctx := context.Background()
// _ = shared.Set(ctx, "model:users:42:nickname", "ember", time.Minute)
// value, ok, _ := shared.Get(ctx, "model:users:42:nickname")
// fmt.Println(value, ok) // "ember" true
// ```
package sharedcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
)

// Client is the back-end-agnostic operation set of the shared tier. Every
// value is a wire string produced by a converter; every write carries its own
// TTL, with zero meaning "store indefinitely".
//
// Each method returns a fverrors.Error instead of the built-in error so that
// the caller can propagate HTTP status codes and tracebacks up the call
// stack.
type Client interface {
	// Get fetches the value stored under key. A missing or expired key is
	// reported as ok == false with a nil error; only transport and protocol
	// failures produce an error.
	//
	// Example:
	//
	//	value, ok, _ := c.Get(ctx, "model:users:42:nickname")
	Get(
		ctx context.Context,
		key string,
	) (string, bool, fverrors.Error)

	// MGet fetches the values for the specified keys in one round trip and
	// returns only the hits. Keys that are missing or expired are absent
	// from the result map, never an error.
	//
	// Example:
	//
	//	values, _ := c.MGet(ctx, "model:users:42:nickname", "model:users:42:mail")
	//	for key, value := range values {
	//		fmt.Printf("%s = %s\n", key, value)
	//	}
	MGet(
		ctx context.Context,
		keys ...string,
	) (map[string]string, fverrors.Error)

	// Set stores key -> value and applies a TTL. If the key already exists
	// its value is overwritten and the TTL is refreshed. A zero ttl means
	// "store indefinitely".
	//
	// Example:
	//
	//	_ = c.Set(ctx, "model:users:42:nickname", "ember", time.Minute)
	Set(
		ctx context.Context,
		key string,
		value string,
		ttl time.Duration,
	) fverrors.Error

	// MSet stores every pair from the map in one round trip, applying the
	// same TTL to each key.
	//
	// Example:
	//
	//	_ = c.MSet(ctx, time.Minute, map[string]string{
	//		"model:users:42:nickname": "ember",
	//		"model:users:42:mail":     "ember@example.com",
	//	})
	MSet(
		ctx context.Context,
		ttl time.Duration,
		pairs map[string]string,
	) fverrors.Error

	// Exists counts how many of the given keys are currently present. A key
	// passed twice is counted twice, mirroring the Redis EXISTS command.
	//
	// Example:
	//
	//	count, _ := c.Exists(ctx, "model:users:42:nickname")
	Exists(
		ctx context.Context,
		keys ...string,
	) (int64, fverrors.Error)

	// Del unconditionally removes the given keys and returns how many were
	// actually present. Deleting a non-existent key is not an error.
	//
	// Example:
	//
	//	removed, _ := c.Del(ctx, "model:users:42:nickname")
	Del(
		ctx context.Context,
		keys ...string,
	) (int64, fverrors.Error)

	// Keys returns every live key matching the glob pattern. The Redis
	// back-end walks the keyspace with SCAN, so the result is advisory
	// under concurrent writes; use it for invalidation fan-out, not for
	// consistency decisions.
	//
	// Example:
	//
	//	keys, _ := c.Keys(ctx, "model:users:42:*")
	Keys(
		ctx context.Context,
		pattern string,
	) ([]string, fverrors.Error)

	// Ready reports whether the back-end is currently reachable. The check
	// never blocks; it reads a flag maintained by a background prober.
	//
	// Example:
	//
	//	if c.Ready() {
	//		_ = c.Set(ctx, key, value, ttl)
	//	}
	Ready() bool

	// Ping verifies that the cache service is reachable and healthy.
	//
	// Example:
	//
	//	_ = c.Ping(ctx)
	Ping(ctx context.Context) fverrors.Error

	// Close stops background goroutines and releases resources.
	//
	// Example:
	//
	//	_ = c.Close()
	Close() fverrors.Error
}

// Container is the union (via type-set) of all back-end client types the
// generic cache can wrap. Add new back-ends by extending this constraint and
// updating NewCache accordingly.
type Container interface {
	*redis.Client | MemoryContainer
}

// Cache is a [Client] that additionally exposes its concrete driver.
type Cache[T Container] interface {
	Client

	// Raw exposes the concrete client. Use this for advanced operations
	// that are outside the scope of the high-level API, e.g. Lua scripts
	// on Redis or a full clone of the in-memory map for debugging.
	//
	// Example:
	//
	//	client := c.Raw() // *redis.Client when the Redis back-end is active
	Raw() T
}

// NewCache performs a runtime type-switch on the supplied container to create
// the appropriate concrete implementation. When an unsupported type is
// provided a fallback in-memory cache with the default sweep interval is
// returned so that callers never get a nil value.
//
// Example:
//
// MEMORY
//
//	memory := sharedcache.NewCache(sharedcache.NewMemoryContainer(), log)
//
// REDIS
//
//	client := sharedcache.NewRedisClient("localhost", uint16(6379), "", 0, log)
//	shared := sharedcache.NewCache(client, log)
func NewCache[T Container](container T, log fvlog.Logger) Cache[T] {
	switch typed := any(container).(type) {
	case *redis.Client:
		value, _ := any(NewRedis(typed, DefaultProbeInterval, log)).(Cache[T])

		return value
	case MemoryContainer:
		value, _ := any(NewMemory(typed, DefaultCleanupTick)).(Cache[T])

		return value
	default:
		value, _ := any(NewMemory(NewMemoryContainer(), DefaultCleanupTick)).(Cache[T])

		return value
	}
}
