// Package cache provides a small time-to-live store for assembled AI
// context, keyed by caller role.
package cache

import (
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned when no fresh entry exists for a key.
var ErrMiss = errors.New("cache: miss")

type entry struct {
	text    string
	builtAt time.Time
}

// Stats describes the cache for the ops API.
type Stats struct {
	Entries int           `json:"entries"`
	TTL     time.Duration `json:"ttl"`
}

// Cache stores one assembled context per role with a shared TTL.
//
// Concurrent rebuilds of the same key are allowed: an entry is a pure
// overwrite of a timestamped value, so rebuilding twice is wasteful but
// never unsafe. Callers coordinate if they care about the waste.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached text and its build time, or ErrMiss when the
// entry is absent or older than the TTL.
func (c *Cache) Get(key string) (string, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.builtAt) > c.ttl {
		return "", time.Time{}, ErrMiss
	}
	return e.text, e.builtAt, nil
}

// Put stores text under key with builtAt = now.
func (c *Cache) Put(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{text: text, builtAt: c.now()}
}

// Invalidate forcibly expires one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll forcibly expires every key.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns a snapshot for the ops API.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.entries), TTL: c.ttl}
}
