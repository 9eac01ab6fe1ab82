// Package fs persists crawl state on the local file system.
package fs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/docindex"
)

// Ensure CrawlCache implements docindex.CrawlCache at compile time.
var _ docindex.CrawlCache = (*CrawlCache)(nil)

// cacheFile is the on-disk layout of the crawl cache.
type cacheFile struct {
	Entries map[string]docindex.CacheEntry `json:"entries"`
}

// CrawlCache is a URL-keyed crawl cache backed by a JSON file.
// Entries live in memory until Flush replaces the file atomically.
type CrawlCache struct {
	path string

	mu      sync.Mutex
	entries map[string]docindex.CacheEntry
	dirty   bool
}

// LoadCrawlCache reads the cache at path. A missing file yields an empty
// cache. A corrupt file is logged and replaced by an empty cache on the
// next flush.
func LoadCrawlCache(path string, logger *slog.Logger) (*CrawlCache, error) {
	c := &CrawlCache{path: path, entries: make(map[string]docindex.CacheEntry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	} else if err != nil {
		return nil, docindex.Errorf(docindex.ESTORAGE, "read crawl cache: %v", err)
	}

	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		if logger != nil {
			logger.Warn("crawl cache is corrupt, starting empty", "path", path, "err", err)
		}
		return c, nil
	}
	for url, e := range f.Entries {
		c.entries[url] = e
	}
	return c, nil
}

// Path returns the file backing the cache.
func (c *CrawlCache) Path() string { return c.path }

func (c *CrawlCache) Get(url string) (docindex.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	return e, ok
}

func (c *CrawlCache) Put(url string, entry docindex.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = entry
	c.dirty = true
}

// Len returns the number of cached URLs.
func (c *CrawlCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush writes all entries to a temporary file in the cache directory and
// renames it over the cache file. Readers see either the old or the new
// file, never a partial one. Flushing an unchanged cache does nothing.
func (c *CrawlCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(cacheFile{Entries: c.entries})
	if err != nil {
		return docindex.Errorf(docindex.EINTERNAL, "encode crawl cache: %v", err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		return docindex.Errorf(docindex.ESTORAGE, "write crawl cache: %v", err)
	}
	c.dirty = false
	return nil
}

// writeFileAtomic replaces path with data using a same-directory temp file.
// The file is created with mode 0600.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
