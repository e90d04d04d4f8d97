package sharedcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/redis/go-redis/v9"

	"github.com/emberhall/fieldvault/backoff"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
)

const (
	// DefaultProbeInterval is how often the background prober pings a
	// healthy server. While the server is down the prober backs off
	// exponentially up to maxProbeInterval.
	DefaultProbeInterval = 5 * time.Second

	maxProbeInterval = time.Minute
	probeTimeout     = 2 * time.Second

	// scanBatch is the COUNT hint passed to SCAN when walking the keyspace.
	scanBatch = 256

	redisBackend = "REDIS"
)

// Redis wraps a *redis.Client and implements the [Cache] interface.
//
// It intentionally exposes only the subset of commands the field tiers need,
// so that business-layer code can switch between Redis and Memory without
// build tags or extra plumbing.
//
// # Typical usage
//
// ```go
// client := sharedcache.NewRedisClient("localhost", uint16(6379), "", 0, log)
// shared := sharedcache.NewCache(client, log)
// ctx := context.Background()
// _ = shared.Set(ctx, "model:users:42:nickname", "ember", time.Minute)
// value, ok, _ := shared.Get(ctx, "model:users:42:nickname")
// fmt.Println(value, ok) // "ember" true
// ```
type Redis struct {
	client    *redis.Client
	log       fvlog.Logger
	ready     atomic.Bool   // maintained by the background prober
	done      chan struct{} // signals the prober to exit on Close()
	closeOnce sync.Once
}

// NewRedis turns an already-configured *redis.Client into a [Redis] cache and
// starts the background reachability prober.
//
// Use it when the application creates the low-level client itself (e.g. your
// DI container, connection pool manager, or tests).
//
//	client     - connected go-redis client
//	probeEvery - healthy-state probe interval; zero selects DefaultProbeInterval
//
// Example:
//
//	client := sharedcache.NewRedisClient("localhost", uint16(6379), "", 0, log)
//	shared := sharedcache.NewRedis(client, 0, log)
func NewRedis(client *redis.Client, probeEvery time.Duration, log fvlog.Logger) *Redis {
	if log == nil {
		log = fvlog.New(nil)
	}

	if probeEvery <= 0 {
		probeEvery = DefaultProbeInterval
	}

	cache := Redis{
		client: client,
		log:    log,
		done:   make(chan struct{}),
	}

	cache.ready.Store(true)

	go probe(weak.Make(&cache), probeEvery, cache.done)

	return &cache
}

// probe runs in its own goroutine and keeps the ready flag honest: it pings
// the server on a fixed interval while healthy and on an exponential back-off
// while down, logging once per state transition. The weak pointer lets the
// cache be collected even if Close is never called.
func probe(
	pointer weak.Pointer[Redis],
	probeEvery time.Duration,
	done <-chan struct{},
) {
	retry := backoff.NewExponential(probeEvery, 2, maxProbeInterval)

	timer := time.NewTimer(probeEvery)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			cache := pointer.Value()

			if cache == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			err := cache.client.Ping(ctx).Err()

			cancel()

			if err != nil {
				if cache.ready.CompareAndSwap(true, false) {
					cache.log.Warnf(
						"Shared cache unreachable, field reads fall through to the store: %v",
						err,
					)
				}

				timer.Reset(retry.Next())

				continue
			}

			if cache.ready.CompareAndSwap(false, true) {
				cache.log.Info("Shared cache reachable again")
			}

			retry.Reset()
			timer.Reset(probeEvery)
		case <-done:
			return
		}
	}
}

// NewRedisClient dials a real Redis instance and performs an initial PING.
//
// It logs both the connection attempt and the final status via the supplied
// fvlog.Logger. On failure the logger's Fatalf terminates the process,
// mirroring the standard library's log.Fatalf semantics.
//
// Example:
//
//	client := sharedcache.NewRedisClient("127.0.0.1", 6379, "", 0, log)
func NewRedisClient(
	host string,
	port uint16,
	password string,
	db int,
	log fvlog.Logger,
) *redis.Client {
	redisAddr := fmt.Sprintf("%s:%s", host, strconv.Itoa(int(port)))

	if log == nil {
		log = fvlog.New(nil)
	}

	log.Infof("Redis connecting to addr %s", redisAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
		Network:  "tcp4",
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}

	log.Infof("Redis connected to addr %s", redisAddr)

	return client
}

// Raw exposes the underlying *redis.Client so that advanced commands
// (e.g. Lua scripts, pipelines) can still be reached when absolutely
// necessary. Prefer the high-level helpers when possible.
//
// Example:
//
//	if err := r.Raw().FlushDB(ctx).Err(); err != nil { ... }
func (r *Redis) Raw() *redis.Client {
	return r.client
}

// Get implements [Client.Get] for the Redis back-end. A redis.Nil reply is
// translated into a plain miss.
func (r *Redis) Get(
	ctx context.Context,
	key string,
) (string, bool, fverrors.Error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToGet),
			fmt.Sprintf("[%s] failed `GET` by `%s`", redisBackend, key),
		)
	}

	return value, true, nil
}

// MGet implements [Client.MGet] for the Redis back-end.
func (r *Redis) MGet(
	ctx context.Context,
	keys ...string,
) (map[string]string, fverrors.Error) {
	result := make(map[string]string, len(keys))

	if len(keys) == 0 {
		return result, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToMGet),
			fmt.Sprintf("[%s] failed `MGET` for %d keys", redisBackend, len(keys)),
		)
	}

	for i, raw := range values {
		value, ok := raw.(string)
		if !ok {
			// nil reply slot, the key is absent
			continue
		}

		result[keys[i]] = value
	}

	return result, nil
}

// Set implements [Client.Set] for the Redis back-end.
func (r *Redis) Set(
	ctx context.Context,
	key string,
	value string,
	ttl time.Duration,
) fverrors.Error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToSet),
			fmt.Sprintf("[%s] failed `SET` by `%s`", redisBackend, key),
		)
	}

	return nil
}

// MSet implements [Client.MSet] for the Redis back-end. MSET itself cannot
// carry TTLs, so the pairs are written as individual SET commands inside one
// pipeline.
func (r *Redis) MSet(
	ctx context.Context,
	ttl time.Duration,
	pairs map[string]string,
) fverrors.Error {
	if len(pairs) == 0 {
		return nil
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range pairs {
			pipe.Set(ctx, key, value, ttl)
		}

		return nil
	})
	if err != nil {
		return fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToMSet),
			fmt.Sprintf("[%s] failed pipelined `SET` for %d keys", redisBackend, len(pairs)),
		)
	}

	return nil
}

// Exists implements [Client.Exists] for the Redis back-end.
func (r *Redis) Exists(
	ctx context.Context,
	keys ...string,
) (int64, fverrors.Error) {
	if len(keys) == 0 {
		return 0, nil
	}

	count, err := r.client.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToCount),
			fmt.Sprintf("[%s] failed `EXISTS` for %d keys", redisBackend, len(keys)),
		)
	}

	return count, nil
}

// Del implements [Client.Del] for the Redis back-end.
func (r *Redis) Del(
	ctx context.Context,
	keys ...string,
) (int64, fverrors.Error) {
	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToDelete),
			fmt.Sprintf("[%s] failed `DEL` for %d keys", redisBackend, len(keys)),
		)
	}

	return removed, nil
}

// Keys implements [Client.Keys] for the Redis back-end. The keyspace is
// walked with SCAN so the server is never blocked the way KEYS would.
func (r *Redis) Keys(
	ctx context.Context,
	pattern string,
) ([]string, fverrors.Error) {
	var keys []string

	iterator := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	for iterator.Next(ctx) {
		keys = append(keys, iterator.Val())
	}

	if err := iterator.Err(); err != nil {
		return nil, fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToScan),
			fmt.Sprintf("[%s] failed `SCAN` by `%s`", redisBackend, pattern),
		)
	}

	return keys, nil
}

// Ready implements [Client.Ready] for the Redis back-end.
func (r *Redis) Ready() bool {
	return r.ready.Load()
}

// Ping implements [Client.Ping] for the Redis back-end.
func (r *Redis) Ping(ctx context.Context) fverrors.Error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fverrors.FromError(
			http.StatusInternalServerError,
			errors.Join(err, ErrFailedToPing),
			fmt.Sprintf("[%s] failed `PING`", redisBackend),
		)
	}

	return nil
}

// Close stops the prober and closes the underlying client. It is safe to
// call more than once; only the first call does any work.
func (r *Redis) Close() fverrors.Error {
	var failure fverrors.Error

	r.closeOnce.Do(func() {
		close(r.done)

		if err := r.client.Close(); err != nil {
			failure = fverrors.FromError(
				http.StatusInternalServerError,
				errors.Join(err, ErrFailedToClose),
				fmt.Sprintf("[%s] failed to close client", redisBackend),
			)
		}
	})

	return failure
}
