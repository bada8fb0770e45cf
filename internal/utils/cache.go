package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// StateCache 按键保存短期状态（如 owner 的待续对话）
type StateCache[T any] struct {
	c *cache.Cache
}

// NewStateCache 创建状态缓存，条目在 ttl 后过期
func NewStateCache[T any](ttl time.Duration) *StateCache[T] {
	return &StateCache[T]{c: cache.New(ttl, 2*ttl)}
}

// Get 获取缓存值
func (s *StateCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := s.c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set 使用默认过期时间写入
func (s *StateCache[T]) Set(key string, value T) {
	s.c.SetDefault(key, value)
}

// Take 取出并删除缓存值
func (s *StateCache[T]) Take(key string) (T, bool) {
	v, ok := s.Get(key)
	if ok {
		s.c.Delete(key)
	}
	return v, ok
}

func (s *StateCache[T]) Delete(key string) {
	s.c.Delete(key)
}

// CacheItem 缓存项
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// SearchCache 带 TTL 的 LRU 搜索结果缓存
type SearchCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewSearchCache 创建搜索缓存
// size: 最大条目数
// ttl: 过期时间
func NewSearchCache[T any](size int, ttl time.Duration) *SearchCache[T] {
	// lru.Cache 本身是并发安全的
	c, _ := lru.New[string, CacheItem[T]](size)
	return &SearchCache[T]{
		storage: c,
		ttl:     ttl,
	}
}

// Set 设置缓存
func (c *SearchCache[T]) Set(key string, value T) {
	item := CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	}
	c.storage.Add(key, item)
}

// Get 获取缓存（已过期的条目会被删除）
func (c *SearchCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

func (c *SearchCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Clear 清空缓存
func (c *SearchCache[T]) Clear() {
	c.storage.Purge()
}

func (c *SearchCache[T]) Len() int {
	return c.storage.Len()
}
