package lookupcache

import (
	"sync"
	"time"
)

// DefaultTTL is how long cached lookup maps stay valid when no TTL is
// configured.
const DefaultTTL = time.Hour

type entry struct {
	values  map[string]int
	expires time.Time
}

// Cache holds per-instance name-to-ID lookup maps for quality profiles and
// tags so repeated sync passes do not refetch them from the remote server.
// Entries expire lazily on read; there is no background sweeper.
type Cache struct {
	mu       sync.RWMutex
	now      func() time.Time
	ttl      time.Duration
	profiles map[string]entry
	tags     map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache whose entries expire ttl after being stored.
// Non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		now:      time.Now,
		ttl:      ttl,
		profiles: make(map[string]entry),
		tags:     make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profiles returns the cached profile lookup map for an instance key such as
// "radarr:main", or false when absent or expired.
func (c *Cache) Profiles(key string) (map[string]int, bool) {
	return c.get(c.profiles, key)
}

// SetProfiles stores the profile lookup map for an instance key using the
// cache's default TTL.
func (c *Cache) SetProfiles(key string, values map[string]int) {
	c.set(c.profiles, key, values, c.ttl)
}

// SetProfilesTTL stores the profile lookup map with an explicit TTL for this
// entry only. Non-positive ttl falls back to the cache default.
func (c *Cache) SetProfilesTTL(key string, values map[string]int, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.set(c.profiles, key, values, ttl)
}

// Tags returns the cached tag lookup map for an instance key, or false when
// absent or expired.
func (c *Cache) Tags(key string) (map[string]int, bool) {
	return c.get(c.tags, key)
}

// SetTags stores the tag lookup map for an instance key using the cache's
// default TTL.
func (c *Cache) SetTags(key string, values map[string]int) {
	c.set(c.tags, key, values, c.ttl)
}

// SetTagsTTL stores the tag lookup map with an explicit TTL for this entry
// only. Non-positive ttl falls back to the cache default.
func (c *Cache) SetTagsTTL(key string, values map[string]int, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.set(c.tags, key, values, ttl)
}

// Invalidate drops both lookup maps for an instance key. Used after
// creating a tag so the next read refetches the server's view.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, key)
	delete(c.tags, key)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = make(map[string]entry)
	c.tags = make(map[string]entry)
}

func (c *Cache) get(bucket map[string]entry, key string) (map[string]int, bool) {
	c.mu.RLock()
	e, ok := bucket[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		// Re-check under the write lock in case another goroutine
		// already refreshed the entry.
		if cur, still := bucket[key]; still && cur.expires.Equal(e.expires) {
			delete(bucket, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return copyValues(e.values), true
}

func (c *Cache) set(bucket map[string]entry, key string, values map[string]int, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket[key] = entry{
		values:  copyValues(values),
		expires: c.now().Add(ttl),
	}
}

// copyValues keeps callers from mutating cached maps through aliases.
func copyValues(values map[string]int) map[string]int {
	out := make(map[string]int, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
