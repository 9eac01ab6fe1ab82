package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var (
	_ docindex.DomainLimiter = (*DomainLimiter)(nil)
	_ docindex.CrawlCache    = (*CrawlCache)(nil)
)

// DomainLimiter is a mock implementation of docindex.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

// CrawlCache is a mock implementation of docindex.CrawlCache.
type CrawlCache struct {
	GetFn   func(url string) (docindex.CacheEntry, bool)
	PutFn   func(url string, entry docindex.CacheEntry)
	FlushFn func() error
}

func (c *CrawlCache) Get(url string) (docindex.CacheEntry, bool) {
	return c.GetFn(url)
}

func (c *CrawlCache) Put(url string, entry docindex.CacheEntry) {
	c.PutFn(url, entry)
}

func (c *CrawlCache) Flush() error {
	return c.FlushFn()
}
