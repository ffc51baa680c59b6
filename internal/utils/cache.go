package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	gocache "github.com/patrickmn/go-cache"
)

// Cache is the injected cache contract. Every consumer must treat a miss
// or an unavailable backend as a correctness-neutral event.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}

// MemoryCache go-cache 기반 Cache 구현
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache 기본 만료 5분, 청소 간격 10분
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: gocache.New(5*time.Minute, 10*time.Minute)}
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

func (c *MemoryCache) Delete(key string) {
	c.store.Delete(key)
}

// Flush 전체 삭제 (테스트용)
func (c *MemoryCache) Flush() {
	c.store.Flush()
}

// cacheItem wraps a value with its expiry.
type cacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TypedCache 제한 크기 + TTL을 가진 타입 캐시 (LRU)
type TypedCache[T any] struct {
	storage *lru.Cache[string, cacheItem[T]]
	ttl     time.Duration
}

// NewTypedCache size 는 최대 항목 수, ttl 은 데이터 유효기간
func NewTypedCache[T any](size int, ttl time.Duration) *TypedCache[T] {
	c, _ := lru.New[string, cacheItem[T]](size)
	return &TypedCache[T]{storage: c, ttl: ttl}
}

func (c *TypedCache[T]) Set(key string, value T) {
	c.storage.Add(key, cacheItem[T]{Value: value, ExpiredAt: time.Now().Add(c.ttl)})
}

func (c *TypedCache[T]) Get(key string) (T, bool) {
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

func (c *TypedCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

func (c *TypedCache[T]) Len() int {
	return c.storage.Len()
}
