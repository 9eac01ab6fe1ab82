// Package readability is the fallback main-content extractor.
package readability

import (
	"strings"

	"github.com/fwojciec/docindex"
	"github.com/go-shiori/go-readability"
)

var _ docindex.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the article title and content of the page.
func (e *Extractor) Extract(rawHTML string) (*docindex.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "readability: %v", err)
	}

	return &docindex.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
