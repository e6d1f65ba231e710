package partnership

import (
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/focusloop/internal/model"
)

const cacheWindow = 5 * time.Minute

// listCache is the time-boxed read cache for partnership lists. Entries
// are replaced wholesale, never partially updated. There is no size
// bound and no single-flight: two concurrent misses for the same key may
// both hit the backend and repopulate it, which is acceptable at this
// workload's concurrency.
type listCache struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data      []model.Partnership
	fetchedAt time.Time
}

func newListCache(now func() time.Time) *listCache {
	return &listCache{
		window:  cacheWindow,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached list for key if it is within the window.
func (c *listCache) get(key string) ([]model.Partnership, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.window {
		return nil, false
	}
	return entry.data, true
}

// put replaces the entry for key.
func (c *listCache) put(key string, data []model.Partnership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{data: data, fetchedAt: c.now()}
}

// invalidate removes every key containing pattern as a substring. The
// empty pattern clears everything.
func (c *listCache) invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
}
