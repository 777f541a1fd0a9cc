package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_NewPool(t *testing.T) {
	pool := NewPool[int, string]()

	require.NotNil(t, pool)
	assert.NotNil(t, pool.items)
	assert.Equal(t, 0, pool.Len())
}

func TestPool_SetAndGet(t *testing.T) {
	pool := NewPool[int, string]()

	pool.Set(3, "camera")

	v, ok := pool.Get(3)
	require.True(t, ok, "expected to find key 3")
	assert.Equal(t, "camera", v)
	assert.True(t, pool.Has(3))
}

func TestPool_Get_NotFound(t *testing.T) {
	pool := NewPool[int, string]()

	_, ok := pool.Get(7)
	assert.False(t, ok, "expected not to find key 7")
	assert.False(t, pool.Has(7))
}

func TestPool_Take(t *testing.T) {
	pool := NewPool[int, string]()
	pool.Set(1, "a")

	v, ok := pool.Take(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = pool.Take(1)
	assert.False(t, ok, "second take should find nothing")
	assert.Equal(t, 0, pool.Len())
}

func TestPool_Delete(t *testing.T) {
	pool := NewPool[int, string]()

	pool.Set(1, "a")
	pool.Set(2, "b")

	pool.Delete(1)

	_, ok := pool.Get(1)
	assert.False(t, ok, "expected key 1 to be gone after delete")
	_, ok = pool.Get(2)
	assert.True(t, ok, "expected key 2 to still exist")

	// Should not panic when deleting a missing key
	pool.Delete(42)
}

func TestPool_KeysSortedSnapshot(t *testing.T) {
	pool := NewPool[int, string]()
	for _, k := range []int{9, 2, 5, 0} {
		pool.Set(k, "x")
	}

	keys := pool.Keys()
	assert.Equal(t, []int{0, 2, 5, 9}, keys)

	// mutating while ranging over the snapshot is safe
	for _, k := range keys {
		pool.Delete(k)
	}
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, []int{0, 2, 5, 9}, keys, "snapshot must not change")
}

func TestPool_Reset(t *testing.T) {
	pool := NewPool[int, string]()

	pool.Set(1, "a")
	pool.Set(2, "b")
	pool.Reset()

	assert.Equal(t, 0, pool.Len())
	assert.Empty(t, pool.Keys())

	pool.Set(3, "c")
	assert.True(t, pool.Has(3), "expected pool to be usable after reset")
}

func TestPool_ConcurrentReadWrite(t *testing.T) {
	pool := NewPool[int, int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(3)

		go func(id int) {
			defer wg.Done()
			pool.Set(id%10, id)
		}(i)

		go func() {
			defer wg.Done()
			pool.Len()
			pool.Keys()
		}()

		go func(id int) {
			defer wg.Done()
			pool.Delete(id % 10)
		}(i)
	}

	wg.Wait()
}
