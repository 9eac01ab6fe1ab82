package goquery_test

import (
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkExtractor_ExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("assigns priority by page region", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<body>
<nav><a href="/docs/intro">Introduction</a></nav>
<aside class="toc"><a href="/docs/toc-entry">TOC entry</a></aside>
<main><a href="/docs/body-link">Body</a></main>
<footer><a href="/about">About</a></footer>
<div><a href="/loose">Loose</a></div>
</body>
</html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/docs/")
		require.NoError(t, err)
		require.Len(t, links, 5)

		byURL := map[string]docindex.DiscoveredLink{}
		for _, l := range links {
			byURL[l.URL] = l
		}
		assert.Equal(t, docindex.PriorityTOC, byURL["https://example.com/docs/toc-entry"].Priority)
		assert.Equal(t, docindex.PriorityNavigation, byURL["https://example.com/docs/intro"].Priority)
		assert.Equal(t, "Introduction", byURL["https://example.com/docs/intro"].Text)
		assert.Equal(t, docindex.PriorityContent, byURL["https://example.com/docs/body-link"].Priority)
		assert.Equal(t, docindex.PriorityFooter, byURL["https://example.com/about"].Priority)
		assert.Equal(t, docindex.PriorityFallback, byURL["https://example.com/loose"].Priority)
		assert.Equal(t, "fallback", byURL["https://example.com/loose"].Source)
	})

	t.Run("keeps the highest priority for duplicates", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<footer><a href="/docs/guide">Guide</a></footer>
<nav><a href="/docs/guide/">Guide</a></nav>
</body></html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/docs/guide", links[0].URL)
		assert.Equal(t, docindex.PriorityNavigation, links[0].Priority)
	})

	t.Run("filters external, non-HTTP and self links", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><main>
<a href="https://other.example.com/docs">Other host</a>
<a href="mailto:team@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="#section">Anchor</a>
<a href="/docs/page#frag">Self with fragment</a>
<a href="">Empty</a>
<a href="next">Relative</a>
</main></body></html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/docs/page")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/docs/next", links[0].URL)
	})

	t.Run("resolves against base href", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><base href="/v2/"></head><body><a href="start">Start</a></body></html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/docs/page")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/v2/start", links[0].URL)
	})

	t.Run("normalizes host case", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><a href="HTTPS://EXAMPLE.com/Docs/A">A</a></body></html>`

		links, err := goquery.NewLinkExtractor().ExtractLinks(html, "https://example.com/")
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "https://example.com/Docs/A", links[0].URL)
	})

	t.Run("returns error for invalid base URL", func(t *testing.T) {
		t.Parallel()

		_, err := goquery.NewLinkExtractor().ExtractLinks("<html></html>", "http://[::1")
		assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
	})
}
