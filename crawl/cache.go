package crawl

import (
	"sync"

	"github.com/fwojciec/docindex"
)

var _ docindex.CrawlCache = (*MemoryCache)(nil)

// MemoryCache is a CrawlCache that is never persisted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]docindex.CacheEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]docindex.CacheEntry)}
}

func (c *MemoryCache) Get(url string) (docindex.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	return e, ok
}

func (c *MemoryCache) Put(url string, entry docindex.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = entry
}

// Flush is a no-op.
func (c *MemoryCache) Flush() error { return nil }
