package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docindex"
)

// maxSitemapNesting bounds how deep sitemap indexes may reference other
// sitemap indexes.
const maxSitemapNesting = 5

// Ensure SitemapService implements docindex.SitemapService.
var _ docindex.SitemapService = (*SitemapService)(nil)

// SitemapService discovers URLs from website sitemaps via HTTP.
type SitemapService struct {
	fetcher docindex.Fetcher
}

// NewSitemapService creates a SitemapService. The options configure its
// fetcher; the body size is always capped at docindex.MaxSitemapSize.
func NewSitemapService(opts ...Option) *SitemapService {
	opts = append(opts, WithMaxBodySize(docindex.MaxSitemapSize))
	return &SitemapService{fetcher: NewFetcher(opts...)}
}

// DiscoverURLs finds all page URLs listed by the hinted sitemaps, or by
// /sitemap.xml when there are no hints. Only URLs on the base host whose
// path lies under the base path are returned, normalized and deduplicated.
//
// A sitemap that cannot be read is skipped; an error is returned only
// when none of the top-level sitemaps could be read.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, hints []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid base URL: %v", err)
	}

	sitemaps := hints
	if len(sitemaps) == 0 {
		root := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}
		sitemaps = []string{root.String()}
	}

	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)
	urls := []string{}
	var firstErr error
	var read int
	for _, sm := range sitemaps {
		found, err := s.processSitemap(ctx, sm, 0, seenSitemaps)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		read++
		for _, u := range found {
			norm, err := docindex.NormalizeURL(u)
			if err != nil || seenURLs[norm] || !matchesScope(norm, base) {
				continue
			}
			seenURLs[norm] = true
			urls = append(urls, norm)
		}
	}
	if read == 0 && firstErr != nil {
		return nil, firstErr
	}
	return urls, nil
}

// matchesScope checks that a URL is on the base host and that its path
// lies under the base path, respecting path boundaries (/docs matches
// /docs and /docs/intro but not /documentation).
func matchesScope(rawURL string, base *url.URL) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(parsed.Host, base.Host) {
		return false
	}
	prefix := strings.TrimSuffix(base.Path, "/")
	if prefix == "" {
		return true
	}
	return parsed.Path == prefix || strings.HasPrefix(parsed.Path, prefix+"/")
}

// processSitemap fetches and parses a sitemap, handling both urlset and sitemapindex.
func (s *SitemapService) processSitemap(ctx context.Context, sitemapURL string, nesting int, seen map[string]bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	resp, err := s.fetcher.Fetch(ctx, docindex.FetchRequest{URL: sitemapURL})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, docindex.Errorf(docindex.EFETCH, "%s for %s", statusText(resp.Status), sitemapURL)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString(resp.Body); err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "parsing sitemap XML %s: %v", sitemapURL, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, docindex.Errorf(docindex.EPARSE, "empty sitemap XML %s", sitemapURL)
	}

	if root.Tag == "sitemapindex" {
		if nesting >= maxSitemapNesting {
			return nil, nil
		}
		return s.processSitemapIndex(ctx, root, nesting+1, seen)
	}
	return parseURLSet(root), nil
}

// processSitemapIndex processes a <sitemapindex> element recursively.
// Child sitemaps that fail are skipped.
func (s *SitemapService) processSitemapIndex(ctx context.Context, root *etree.Element, nesting int, seen map[string]bool) ([]string, error) {
	var allURLs []string
	for _, sitemap := range root.SelectElements("sitemap") {
		loc := sitemap.SelectElement("loc")
		if loc == nil {
			continue
		}
		sitemapURL := strings.TrimSpace(loc.Text())
		if sitemapURL == "" {
			continue
		}

		urls, err := s.processSitemap(ctx, sitemapURL, nesting, seen)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		allURLs = append(allURLs, urls...)
	}
	return allURLs, nil
}

// parseURLSet extracts URLs from a <urlset> element.
func parseURLSet(root *etree.Element) []string {
	var urls []string
	for _, urlEl := range root.SelectElements("url") {
		loc := urlEl.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
