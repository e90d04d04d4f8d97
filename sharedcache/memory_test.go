package sharedcache_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberhall/fieldvault/sharedcache"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()

	cache := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), time.Minute)

	t.Cleanup(func() {
		_ = cache.Close()
	})

	ctx := context.Background()

	t.Run("[Set] - set and get round trip works", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, testKey, testValue, time.Minute))

		value, ok, err := cache.Get(ctx, testKey)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, testValue, value)
	})

	t.Run("[Get] - missing key is a miss, not an error", func(t *testing.T) {
		_, ok, err := cache.Get(ctx, "model:users:ffffffffffffffffffffffff:nickname")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("[Get] - expired entry is a miss before the sweeper runs", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "fleeting", testValue, 10*time.Millisecond))

		time.Sleep(25 * time.Millisecond)

		_, ok, err := cache.Get(ctx, "fleeting")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("[MGet] - returns hits only", func(t *testing.T) {
		require.NoError(t, cache.MSet(ctx, time.Minute, map[string]string{
			"mget:first": "1",
			"mget:third": "3",
		}))

		values, err := cache.MGet(ctx, "mget:first", "mget:second", "mget:third")

		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"mget:first": "1",
			"mget:third": "3",
		}, values)
	})

	t.Run("[Exists] - counts live keys only", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "exists:live", "1", time.Minute))
		require.NoError(t, cache.Set(ctx, "exists:dead", "1", 10*time.Millisecond))

		time.Sleep(25 * time.Millisecond)

		count, err := cache.Exists(ctx, "exists:live", "exists:dead", "exists:ghost")

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("[Del] - removes keys and reports count", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "del:one", "1", time.Minute))

		removed, err := cache.Del(ctx, "del:one", "del:ghost")

		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, ok, err := cache.Get(ctx, "del:one")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("[Keys] - glob matches a single handle", func(t *testing.T) {
		require.NoError(t, cache.MSet(ctx, time.Minute, map[string]string{
			"model:games:1:name":  "a",
			"model:games:1:stage": "2",
			"model:games:2:name":  "b",
		}))

		keys, err := cache.Keys(ctx, "model:games:1:*")

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			"model:games:1:name",
			"model:games:1:stage",
		}, keys)
	})

	t.Run("[Keys] - malformed pattern fails", func(t *testing.T) {
		keys, err := cache.Keys(ctx, "model:[users")

		require.Error(t, err)
		assert.Nil(t, keys)
		assert.Equal(t, http.StatusInternalServerError, err.Code())
		assert.ErrorIs(t, err, sharedcache.ErrBadKeyPattern)
	})

	t.Run("[Set] - zero ttl stores indefinitely", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "endless", testValue, 0))

		value, ok, err := cache.Get(ctx, "endless")

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, testValue, value)
	})

	t.Run("[Ready] - memory backend is always ready", func(t *testing.T) {
		assert.True(t, cache.Ready())
	})
}

func TestMemoryCache_CloseClearsAndStops(t *testing.T) {
	t.Parallel()

	cache := sharedcache.NewMemory(sharedcache.NewMemoryContainer(), time.Minute)

	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testKey, testValue, 0))

	assert.Nil(t, cache.Close())

	_, ok, err := cache.Get(ctx, testKey)

	require.NoError(t, err)
	assert.False(t, ok)

	assert.Nil(t, cache.Close())
}
