package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Cache interface {
	Set(key string, value interface{}, duration time.Duration)
	Get(key string) (interface{}, bool)
	Delete(key string)
}

type goCache struct {
	internal *cache.Cache
}

// NewCache returns a process-local Cache backed by go-cache.
func NewCache(defaultExpiration, cleanupInterval time.Duration) Cache {
	return &goCache{
		internal: cache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *goCache) Set(key string, value interface{}, duration time.Duration) {
	c.internal.Set(key, value, duration)
}

func (c *goCache) Get(key string) (interface{}, bool) {
	return c.internal.Get(key)
}

func (c *goCache) Delete(key string) {
	c.internal.Delete(key)
}

// GetFromCache returns the typed value stored under key.
func GetFromCache[T any](c Cache, key string) (T, bool) {
	var zero T
	val, found := c.Get(key)
	if !found {
		return zero, false
	}
	typedVal, ok := val.(T)
	if !ok {
		return zero, false
	}
	return typedVal, true
}

// Typed scopes a shared Cache to one value type under a key prefix.
// A non-positive ttl disables writes, so reads always miss.
type Typed[T any] struct {
	cache  Cache
	prefix string
	ttl    time.Duration
}

func NewTyped[T any](c Cache, prefix string, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, prefix: prefix, ttl: ttl}
}

func (t *Typed[T]) Get(key string) (T, bool) {
	return GetFromCache[T](t.cache, t.prefix+key)
}

func (t *Typed[T]) Set(key string, value T) {
	if t.ttl <= 0 {
		return
	}
	t.cache.Set(t.prefix+key, value, t.ttl)
}

func (t *Typed[T]) Delete(key string) {
	t.cache.Delete(t.prefix + key)
}
