// Package trafilatura extracts the main content of documentation pages.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/docindex"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ docindex.Extractor = (*Extractor)(nil)

// Extractor strips boilerplate from a page with go-trafilatura. It is the
// first extractor in the crawl chain; readability is the fallback.
type Extractor struct {
	opts trafilatura.Options
}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{opts: trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
	}}
}

// Extract returns the page title and its main content as HTML. Tables and
// code blocks are kept.
func (e *Extractor) Extract(rawHTML string) (*docindex.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "trafilatura: %v", err)
	}

	res := &docindex.ExtractResult{Title: strings.TrimSpace(result.Metadata.Title)}
	if result.ContentNode != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, result.ContentNode); err != nil {
			return nil, docindex.Errorf(docindex.EPARSE, "render content: %v", err)
		}
		res.ContentHTML = buf.String()
	}
	return res, nil
}
