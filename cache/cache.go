package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt int64 // UnixNano, 0 means no expiration
}

func (it *item[V]) expired(now int64) bool {
	return it.expiresAt != 0 && now > it.expiresAt
}

// Cache is a thread-safe, generic key/value store with optional TTL.
// With a zero TTL entries live until deleted, which is how the escalation
// secret cache uses it: one entry per host for the lifetime of a run.
type Cache[K comparable, V any] struct {
	mu         sync.RWMutex
	store      map[K]*item[V]
	defaultTTL time.Duration

	janitorOnce sync.Once
	janitorStop chan struct{}
	janitorTick *time.Ticker
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithDefaultTTL sets the default time-to-live applied by Set.
func WithDefaultTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.defaultTTL = ttl
	}
}

// WithJanitorInterval enables periodic cleanup of expired entries.
func WithJanitorInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) {
		if interval > 0 {
			c.janitorTick = time.NewTicker(interval)
			c.janitorStop = make(chan struct{})
		}
	}
}

// NewCache creates a Cache with the given options.
func NewCache[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{store: make(map[K]*item[V])}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[K, V]) startJanitor() {
	c.janitorOnce.Do(func() {
		if c.janitorTick == nil {
			return
		}
		go func() {
			for {
				select {
				case <-c.janitorTick.C:
					c.DeleteExpired()
				case <-c.janitorStop:
					c.janitorTick.Stop()
					return
				}
			}
		}()
	})
}

// Set stores a value under the default TTL.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.defaultTTL)
}

// SetWithTTL stores a value. A zero ttl means the entry never expires; a
// negative ttl deletes any existing entry.
func (c *Cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if ttl < 0 {
		c.Delete(k)
		return
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
		c.startJanitor()
	}

	c.mu.Lock()
	c.store[k] = &item[V]{value: v, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Get returns the value for k if present and not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	var zero V

	c.mu.RLock()
	it, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if it.expired(time.Now().UnixNano()) {
		c.Delete(k)
		return zero, false
	}
	return it.value, true
}

// GetOrSet returns the existing value for k, or stores v under the default
// TTL. The second result reports whether the value was already present.
func (c *Cache[K, V]) GetOrSet(k K, v V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.store[k]; ok && !it.expired(time.Now().UnixNano()) {
		return it.value, true
	}

	var expiresAt int64
	if c.defaultTTL > 0 {
		expiresAt = time.Now().Add(c.defaultTTL).UnixNano()
	}
	c.store[k] = &item[V]{value: v, expiresAt: expiresAt}
	return v, false
}

// Delete removes k.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.store, k)
	c.mu.Unlock()
}

// DeleteExpired removes all expired entries.
func (c *Cache[K, V]) DeleteExpired() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	for k, it := range c.store {
		if it.expired(now) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

// Range calls f for each unexpired entry until f returns false.
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	now := time.Now().UnixNano()

	c.mu.RLock()
	snapshot := make(map[K]V, len(c.store))
	for k, it := range c.store {
		if !it.expired(now) {
			snapshot[k] = it.value
		}
	}
	c.mu.RUnlock()

	for k, v := range snapshot {
		if !f(k, v) {
			return
		}
	}
}

// Clean removes all entries.
func (c *Cache[K, V]) Clean() {
	c.mu.Lock()
	c.store = make(map[K]*item[V])
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included until the
// janitor or a Get collects them.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the janitor goroutine if one was started.
func (c *Cache[K, V]) Close() {
	if c.janitorStop != nil {
		select {
		case c.janitorStop <- struct{}{}:
		default:
		}
	}
}
