package application

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// windowCache stores recently loaded availability windows so repeated batch
// validations do not re-read rarely changing configuration. Entries expire
// on a TTL and the whole cache is invalidated whenever a window set mutates.
type windowCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]windowCacheEntry
}

type windowCacheEntry struct {
	windows   []AvailabilityWindow
	expiresAt time.Time
}

func newWindowCache(ttl time.Duration, maxEntries int, now func() time.Time) *windowCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &windowCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]windowCacheEntry),
	}
}

func (c *windowCache) Get(key string) ([]AvailabilityWindow, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneWindows(entry.windows), true
}

func (c *windowCache) Store(key string, windows []AvailabilityWindow) {
	if c == nil {
		return
	}
	cloned := cloneWindows(windows)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = windowCacheEntry{windows: cloned, expiresAt: expiry}
}

func (c *windowCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]windowCacheEntry)
	c.mu.Unlock()
}

func (c *windowCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *windowCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneWindows(windows []AvailabilityWindow) []AvailabilityWindow {
	if len(windows) == 0 {
		return nil
	}
	out := make([]AvailabilityWindow, len(windows))
	copy(out, windows)
	return out
}

func buildWindowCacheKey(spaceIDs []string) string {
	ids := make([]string, len(spaceIDs))
	copy(ids, spaceIDs)
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
