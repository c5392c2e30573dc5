// Package cache provides an in-memory TTL cache with ETag support. The API
// uses it to hold per-user scholarship match listings between requests.
package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const evictInterval = 5 * time.Minute

type entry struct {
	body    []byte
	etag    string
	expires time.Time
}

// Cache is a thread-safe in-memory TTL cache. A disabled Cache stores
// nothing but still computes ETags.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool

	hits   atomic.Int64
	misses atomic.Int64

	stop chan struct{}
	once sync.Once
	now  func() time.Time
}

// New creates a cache and, when enabled, its eviction loop. Call Close to
// stop the loop.
func New(enabled bool) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		enabled: enabled,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	if enabled {
		go c.evictLoop()
	}
	return c
}

// MatchesKey is the cache key for a user's match listing.
func MatchesKey(userID string) string {
	return "matches:" + userID
}

// Get returns the live entry for key.
func (c *Cache) Get(key string) (body []byte, etag string, ok bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || !c.now().Before(e.expires) {
		c.misses.Add(1)
		return nil, "", false
	}
	c.hits.Add(1)
	return e.body, e.etag, true
}

// Set stores body under key for ttl and returns its ETag.
func (c *Cache) Set(key string, body []byte, ttl time.Duration) string {
	etag := ComputeETag(body)
	if !c.enabled {
		return etag
	}
	c.mu.Lock()
	c.entries[key] = entry{body: body, etag: etag, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return etag
}

// Stats reports key counts and hit/miss totals for /health/cache.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	total := len(c.entries)
	live := 0
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expires) {
			live++
		}
	}
	c.mu.RUnlock()

	return map[string]interface{}{
		"enabled":      c.enabled,
		"total_keys":   total,
		"active_keys":  live,
		"expired_keys": total - live,
		"hits":         c.hits.Load(),
		"misses":       c.misses.Load(),
	}
}

// Close stops the eviction loop. Safe to call more than once.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) evict() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag returns a weak ETag over the first 8 bytes of a SHA-256 digest.
func ComputeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf(`W/"%x"`, sum[:8])
}

// CheckETagMatch reports whether an If-None-Match header selects etag. The
// header may list several tags; comparison is weak.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
