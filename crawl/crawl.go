// Package crawl provides documentation crawling orchestration.
// It coordinates robots and sitemap discovery, breadth-first link
// following, conditional fetching, extraction, chunking and storage of
// documentation pages.
package crawl

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/google/uuid"
)

// Crawl defaults.
const (
	DefaultConcurrency = 5
	DefaultDelay       = 200 * time.Millisecond
	DefaultBatchSize   = 25

	// maxOutgoingLinks caps the links_to edges stored per page.
	maxOutgoingLinks = 50
)

var _ docindex.Crawler = (*Crawler)(nil)

// Crawler orchestrates the crawling of documentation sites.
type Crawler struct {
	Fetcher   docindex.Fetcher
	Sitemaps  docindex.SitemapService
	Robots    docindex.RobotsService
	Guard     docindex.HostGuard
	Extractor docindex.Extractor
	Converter docindex.Converter
	Links     docindex.LinkExtractor
	Documents docindex.DocumentService
	Embedder  docindex.Embedder
	Limiter   docindex.DomainLimiter

	// Number of concurrent fetch workers.
	Concurrency int

	// Pause taken by each worker after every request.
	Delay time.Duration

	// Number of results between cache flushes.
	BatchSize int

	// Maximum chunk size passed to the chunker.
	ChunkSize int

	Logger *slog.Logger

	// Progress, if set, is called on the coordinating goroutine after
	// every completed URL.
	Progress ProgressFunc
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Completed int
	Queued    int
	Outcome   *docindex.CrawlOutcome
}

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// Crawl crawls rootURL and returns the outcome of every URL it touched.
//
// A canceled context stops dispatching new URLs; the report collected so
// far is returned with Canceled set, together with the context error. The
// cache is flushed before Crawl returns in every case.
func (c *Crawler) Crawl(ctx context.Context, rootURL string, opts docindex.CrawlOptions, cache docindex.CrawlCache) (report *docindex.CrawlReport, err error) {
	root, err := docindex.NormalizeURL(rootURL)
	if err != nil {
		return nil, err
	}
	filter, err := docindex.NewURLFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	rootParsed, err := url.Parse(root)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid root URL: %v", err)
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	report = &docindex.CrawlReport{Run: uuid.NewString(), Root: root}
	logger := c.logger().With("run", report.Run, "root", root)

	if c.Guard != nil {
		if err := c.Guard.CheckHost(ctx, rootParsed.Hostname()); err != nil {
			if docindex.ErrorCode(err) != docindex.EBLOCKED {
				return nil, err
			}
			report.Outcomes = append(report.Outcomes, &docindex.CrawlOutcome{
				URL:     root,
				Outcome: docindex.OutcomeBlocked,
				Detail:  docindex.ErrorMessage(err),
			})
			return report, nil
		}
	}

	defer func() {
		if ferr := cache.Flush(); ferr != nil {
			logger.Error("flush crawl cache", "err", ferr)
			if err == nil {
				err = ferr
			}
		}
	}()

	var policy docindex.RobotsPolicy = docindex.AllowAll{}
	if c.Robots != nil {
		p, err := c.Robots.FetchRobots(ctx, root)
		if err != nil {
			logger.Warn("robots.txt unavailable, allowing all", "err", err)
		} else {
			policy = p
		}
	}

	w := &walk{
		crawler: c,
		opts:    opts,
		cache:   cache,
		policy:  policy,
		filter:  filter,
		scope:   newScope(rootParsed),
		root:    root,
		logger:  logger,
		report:  report,
		bfs:     opts.Mode != docindex.CrawlModeSitemap,
		depth:   opts.Depth(),
	}
	w.frontier = NewFrontier(opts.URLCap())

	if !w.bfs {
		urls, err := c.discoverSitemap(ctx, root, policy.Sitemaps())
		switch {
		case ctx.Err() != nil:
			report.Canceled = true
			return report, ctx.Err()
		case err != nil:
			logger.Warn("sitemap discovery failed, falling back to link crawl", "err", err)
			w.bfs = true
		case len(urls) == 0:
			logger.Warn("sitemap has no URLs in scope, falling back to link crawl")
			w.bfs = true
		default:
			for _, u := range urls {
				w.offer(docindex.DiscoveredLink{URL: u, Priority: docindex.PriorityNavigation, Source: "sitemap"})
			}
		}
	}
	if w.bfs {
		w.frontier.Push(docindex.DiscoveredLink{URL: root, Priority: docindex.PriorityNavigation})
	}

	if err := w.run(ctx); err != nil {
		report.Canceled = true
		return report, err
	}

	if w.rootUnreachable != "" && report.Count(docindex.OutcomeCrawled) == 0 {
		return report, docindex.Errorf(docindex.EFETCH, "root unreachable: %s", w.rootUnreachable)
	}
	return report, nil
}

// discoverSitemap returns the in-scope sitemap URLs.
func (c *Crawler) discoverSitemap(ctx context.Context, root string, hints []string) ([]string, error) {
	if c.Sitemaps == nil {
		return nil, docindex.Errorf(docindex.ECONFIG, "no sitemap service configured")
	}
	return c.Sitemaps.DiscoverURLs(ctx, root, hints)
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c *Crawler) concurrency() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

func (c *Crawler) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// scope limits a crawl to the root's host and path prefix.
type scope struct {
	host   string
	prefix string
}

func newScope(root *url.URL) scope {
	return scope{host: root.Host, prefix: strings.TrimSuffix(root.Path, "/")}
}

func (s scope) contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != s.host {
		return false
	}
	return s.prefix == "" || u.Path == s.prefix || strings.HasPrefix(u.Path, s.prefix+"/")
}
