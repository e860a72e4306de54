// Package cache 提供带容量与过期时间的泛型 LRU 缓存
//
// 底层使用 hashicorp/golang-lru 的 expirable 实现；本包在其上补充命名与命中统计，
// 供认证层缓存用户记录。
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Config 缓存配置
type Config struct {
	// Name 缓存名称（用于日志和统计）
	Name string

	// MaxSize 最大条目数，0 表示无限制
	MaxSize int

	// TTL 自写入起的过期时间，0 表示永不过期
	TTL time.Duration
}

// Stats 缓存统计
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// Cache 并发安全的泛型缓存
type Cache[K comparable, V any] struct {
	name      string
	lru       *expirable.LRU[K, V]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	return &Cache[K, V]{
		name: config.Name,
		lru:  expirable.NewLRU[K, V](config.MaxSize, nil, config.TTL),
	}
}

// Name 缓存名称
func (c *Cache[K, V]) Name() string { return c.name }

// Get 读取并刷新最近使用位置
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set 写入；超过容量时驱逐最久未使用的条目
func (c *Cache[K, V]) Set(key K, value V) {
	if c.lru.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Clear 清空
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// Size 当前条目数
func (c *Cache[K, V]) Size() int {
	return c.lru.Len()
}

// Stats 统计快照
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
	}
}

// HitRate 命中率，没有访问时为 0
func (c *Cache[K, V]) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
