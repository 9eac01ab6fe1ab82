package crawl

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// visitResult holds the outcome of processing a single URL.
type visitResult struct {
	outcome *docindex.CrawlOutcome

	// Cache entry to store, nil when nothing was attempted.
	entry *docindex.CacheEntry

	// Links to enqueue one level deeper.
	next []docindex.DiscoveredLink

	// Set when the root could not be reached at all.
	rootErr string

	// Set when the attempt was cut short by cancellation.
	canceled bool
}

// visit fetches, extracts, chunks and stores one page. It runs on worker
// goroutines and touches only read-only walk state and the cache.
func (w *walk) visit(ctx context.Context, link docindex.DiscoveredLink) visitResult {
	c := w.crawler
	out := &docindex.CrawlOutcome{URL: link.URL}
	res := visitResult{outcome: out}

	if !w.policy.Allowed(link.URL) {
		out.Outcome = docindex.OutcomeSkipped
		out.Detail = "disallowed by robots.txt"
		return res
	}

	expand := w.bfs && link.Depth < w.depth
	if w.opts.DryRun && !expand {
		out.Outcome = docindex.OutcomeDryRun
		return res
	}

	u, err := url.Parse(link.URL)
	if err != nil {
		out.Outcome = docindex.OutcomeError
		out.Detail = err.Error()
		return res
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx, u.Host); err != nil {
			res.canceled = true
			return res
		}
	}

	prev, _ := w.cache.Get(link.URL)
	req := docindex.FetchRequest{URL: link.URL}
	if !w.opts.Force && !expand {
		req.ETag, req.LastModified = prev.ETag, prev.LastModified
	}

	entry := docindex.CacheEntry{
		ETag:         prev.ETag,
		LastModified: prev.LastModified,
		ContentHash:  prev.ContentHash,
		LastSeen:     time.Now().UTC(),
	}
	finish := func(o docindex.Outcome, detail string) visitResult {
		out.Outcome, out.Detail = o, detail
		if !w.opts.DryRun {
			entry.Outcome = o
			res.entry = &entry
		}
		return res
	}

	resp, err := c.Fetcher.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			res.canceled = true
			return res
		}
		if docindex.ErrorCode(err) == docindex.EBLOCKED {
			return finish(docindex.OutcomeBlocked, docindex.ErrorMessage(err))
		}
		if link.URL == w.root && docindex.ErrorCode(err) == docindex.EFETCH {
			res.rootErr = docindex.ErrorMessage(err)
		}
		return finish(docindex.OutcomeError, docindex.ErrorMessage(err))
	}

	entry.ETag, entry.LastModified = resp.ETag, resp.LastModified
	switch {
	case resp.Status == http.StatusNotModified:
		return finish(docindex.OutcomeUnchanged, "")
	case resp.Status >= 400:
		return finish(docindex.OutcomeError, fmt.Sprintf("HTTP %d", resp.Status))
	case !isHTML(resp.ContentType):
		return finish(docindex.OutcomeSkipped, "not HTML: "+resp.ContentType)
	}

	var links []docindex.DiscoveredLink
	if c.Links != nil {
		links, err = c.Links.ExtractLinks(resp.Body, resp.URL)
		if err != nil {
			w.logger.Debug("extract links", "url", link.URL, "err", err)
		}
	}
	if expand {
		for _, l := range links {
			l.Depth = link.Depth + 1
			res.next = append(res.next, l)
		}
	}

	if w.opts.DryRun {
		return finish(docindex.OutcomeDryRun, "")
	}

	extracted, err := c.Extractor.Extract(resp.Body)
	if err != nil {
		return finish(docindex.OutcomeError, docindex.ErrorMessage(err))
	}
	markdown, err := c.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return finish(docindex.OutcomeError, docindex.ErrorMessage(err))
	}
	markdown = strings.TrimSpace(markdown)
	if len(markdown) < docindex.MinContentLength {
		return finish(docindex.OutcomeSkipped, "content too short")
	}

	hash := ComputeHash(markdown)
	entry.ContentHash = hash
	if !w.opts.Force {
		if doc, err := c.Documents.FindDocument(ctx, link.URL); err == nil && doc.ContentHash == hash {
			return finish(docindex.OutcomeUnchanged, "")
		}
	}

	title := extracted.Title
	if title == "" {
		title = docindex.ExtractTitle(markdown)
	}
	if title == "" {
		title = link.URL
	}

	chunks := docindex.NewChunks(link.URL, docindex.SplitMarkdown(markdown, title, c.ChunkSize))
	if w.opts.Embed && c.Embedder != nil {
		if err := embedChunks(ctx, c.Embedder, chunks); err != nil {
			w.logger.Warn("embed chunks, leaving them pending", "url", link.URL, "err", err)
		}
	}

	doc := &docindex.Document{
		Path:        link.URL,
		Title:       title,
		Category:    u.Hostname(),
		Audience:    docindex.DefaultAudience,
		ContentHash: hash,
		Links:       w.outgoing(link.URL, links),
	}
	if err := c.Documents.UpsertDocument(ctx, doc, chunks); err != nil {
		if ctx.Err() != nil {
			res.canceled = true
			return res
		}
		return finish(docindex.OutcomeError, docindex.ErrorMessage(err))
	}

	out.Chunks = len(chunks)
	return finish(docindex.OutcomeCrawled, "")
}

// outgoing returns up to maxOutgoingLinks distinct in-scope links_to edges.
func (w *walk) outgoing(source string, links []docindex.DiscoveredLink) []docindex.Link {
	seen := map[string]struct{}{source: {}}
	var out []docindex.Link
	for _, l := range links {
		if len(out) == maxOutgoingLinks {
			break
		}
		target, err := docindex.NormalizeURL(l.URL)
		if err != nil || !w.scope.contains(target) {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, docindex.Link{Source: source, Target: target, Relation: docindex.RelationLinksTo})
	}
	return out
}

// embedChunks stores an embedding on every chunk or returns an error
// leaving all of them unset.
func embedChunks(ctx context.Context, e docindex.Embedder, chunks []*docindex.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.EmbeddingText()
	}
	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(chunks) {
		return docindex.Errorf(docindex.EINTERNAL, "embedder returned %d vectors for %d texts", len(vecs), len(chunks))
	}
	for i, ch := range chunks {
		ch.Embedding = vecs[i]
	}
	return nil
}

// isHTML reports whether a Content-Type names an HTML document. A missing
// type is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
