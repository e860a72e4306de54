package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BasicOperations(t *testing.T) {
	c := New[string, int](Config{Name: "test", MaxSize: 100, TTL: time.Minute})

	c.Set("key1", 100)
	value, found := c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, 100, value)

	_, found = c.Get("nonexistent")
	assert.False(t, found)

	assert.True(t, c.Delete("key1"))
	_, found = c.Get("key1")
	assert.False(t, found)

	// 重复删除
	assert.False(t, c.Delete("key1"))
}

func TestCache_Update(t *testing.T) {
	c := New[int64, string](Config{Name: "test", MaxSize: 100})

	c.Set(1, "first")
	c.Set(1, "second")
	value, found := c.Get(1)
	require.True(t, found)
	assert.Equal(t, "second", value)
	assert.Equal(t, 1, c.Size())
}

func TestCache_LRUEviction(t *testing.T) {
	c := New[int, int](Config{Name: "lru", MaxSize: 2})

	c.Set(1, 1)
	c.Set(2, 2)
	_, _ = c.Get(1)
	c.Set(3, 3)

	_, found := c.Get(2)
	assert.False(t, found, "最久未使用的条目应被驱逐")
	_, found = c.Get(1)
	assert.True(t, found)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_TTL(t *testing.T) {
	c := New[string, string](Config{Name: "ttl", MaxSize: 10, TTL: 20 * time.Millisecond})
	c.Set("k", "v")

	assert.Eventually(t, func() bool {
		_, found := c.Get("k")
		return !found
	}, time.Second, 10*time.Millisecond)
}

func TestCache_StatsAndClear(t *testing.T) {
	c := New[string, int](Config{MaxSize: 10})
	assert.Equal(t, "unnamed", c.Name())
	assert.Zero(t, c.HitRate())

	c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("b")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 0.5, c.HitRate(), 1e-9)

	c.Clear()
	assert.Zero(t, c.Size())
}
