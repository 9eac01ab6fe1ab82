package docindex

import (
	"context"
	"time"
)

// Crawl limits and defaults.
const (
	// MaxDepthCeiling is the hard limit on breadth-first depth. Requested
	// depths above it are clamped.
	MaxDepthCeiling = 10

	DefaultMaxDepth = 1
	DefaultMaxURLs  = 5000

	// MaxResponseSize caps the size of a fetched page body.
	MaxResponseSize = 50 << 20

	// MaxSitemapSize caps the size of a single sitemap document.
	MaxSitemapSize = 10 << 20

	// MinContentLength is the shortest extracted or ingested text worth indexing.
	MinContentLength = 50
)

// CrawlMode selects how URLs are discovered.
type CrawlMode string

// Crawl modes.
const (
	CrawlModeBFS     CrawlMode = "bfs"
	CrawlModeSitemap CrawlMode = "sitemap"
)

// Outcome is the per-item result of a crawl or ingest.
type Outcome string

// Outcome values.
const (
	OutcomeCrawled   Outcome = "crawled"
	OutcomeIngested  Outcome = "ingested"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeDryRun    Outcome = "dry-run"
)

// CrawlOptions constrains a single crawl.
type CrawlOptions struct {
	Mode     CrawlMode `json:"mode"`
	MaxDepth int       `json:"maxDepth"`
	MaxURLs  int       `json:"maxUrls"`
	Include  []string  `json:"include,omitempty"`
	Exclude  []string  `json:"exclude,omitempty"`
	Force    bool      `json:"force"`
	DryRun   bool      `json:"dryRun"`
	Embed    bool      `json:"embed"`
}

// Depth returns the requested depth clamped to [0, MaxDepthCeiling].
func (o CrawlOptions) Depth() int {
	switch {
	case o.MaxDepth < 0:
		return 0
	case o.MaxDepth > MaxDepthCeiling:
		return MaxDepthCeiling
	}
	return o.MaxDepth
}

// URLCap returns the discovered-URL cap, defaulting to DefaultMaxURLs.
func (o CrawlOptions) URLCap() int {
	if o.MaxURLs <= 0 {
		return DefaultMaxURLs
	}
	return o.MaxURLs
}

// CrawlOutcome records what happened to a single URL.
type CrawlOutcome struct {
	URL     string  `json:"url"`
	Outcome Outcome `json:"outcome"`
	Chunks  int     `json:"chunks"`
	Detail  string  `json:"detail,omitempty"`
}

// CrawlReport is the complete outcome summary of a crawl.
type CrawlReport struct {
	Run      string          `json:"run"`
	Root     string          `json:"root"`
	Outcomes []*CrawlOutcome `json:"outcomes"`

	// Canceled is set when the crawl stopped because its context ended.
	// Outcomes then hold only the URLs that completed.
	Canceled bool `json:"canceled"`
}

// Count returns the number of outcomes of the given kind.
func (r *CrawlReport) Count(o Outcome) int {
	var n int
	for _, out := range r.Outcomes {
		if out.Outcome == o {
			n++
		}
	}
	return n
}

// CacheEntry is the per-URL state kept between crawls.
type CacheEntry struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	ContentHash  string    `json:"contentHash,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	LastSeen     time.Time `json:"lastSeen"`
}

// CrawlCache holds per-URL crawl state. Implementations must be safe for
// concurrent use and must persist atomically.
type CrawlCache interface {
	Get(url string) (CacheEntry, bool)
	Put(url string, entry CacheEntry)

	// Flush persists every entry. A flush is never observed partially written.
	Flush() error
}

// Crawler discovers and fetches pages under a root URL.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string, opts CrawlOptions, cache CrawlCache) (*CrawlReport, error)
}
