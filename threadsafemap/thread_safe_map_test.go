package threadsafemap_test

import (
	"sync"
	"testing"

	"github.com/emberhall/fieldvault/threadsafemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrSet_ReturnsExisting(t *testing.T) {
	m := threadsafemap.NewThreadSafeMap[string, int]()

	first, existed := m.GetOrSet("a", 1)
	require.False(t, existed)
	require.Equal(t, 1, first)

	second, existed := m.GetOrSet("a", 2)
	assert.True(t, existed)
	assert.Equal(t, 1, second)
}

func TestGetOrSetFunc_FactoryRunsOnce(t *testing.T) {
	m := threadsafemap.NewThreadSafeMap[string, *int]()

	calls := 0
	factory := func() *int {
		calls++
		v := calls

		return &v
	}

	first, _ := m.GetOrSetFunc("k", factory)
	second, existed := m.GetOrSetFunc("k", factory)

	require.True(t, existed)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestZeroValue_Usable(t *testing.T) {
	var m threadsafemap.ThreadSafeMap[string, string]

	_, found := m.Get("missing")
	require.False(t, found)

	m.Set("k", "v")

	got, found := m.Get("k")
	require.True(t, found)
	assert.Equal(t, "v", got)
}

func TestPop_RemovesKey(t *testing.T) {
	m := threadsafemap.NewThreadSafeMap[int, string]()
	m.Set(7, "seven")

	val, ok := m.Pop(7)
	require.True(t, ok)
	assert.Equal(t, "seven", val)
	assert.False(t, m.Has(7))
}

func TestConcurrentGetOrSet_SingleWinner(t *testing.T) {
	m := threadsafemap.NewThreadSafeMap[string, int]()

	var wg sync.WaitGroup

	winners := make([]int, 64)

	for i := range 64 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			val, _ := m.GetOrSet("shared", n)
			winners[n] = val
		}(i)
	}

	wg.Wait()

	for _, got := range winners {
		assert.Equal(t, winners[0], got, "every caller must observe the same stored value")
	}

	assert.Equal(t, 1, m.Length())
}
