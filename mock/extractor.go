package mock

import "github.com/fwojciec/docindex"

var (
	_ docindex.Extractor     = (*Extractor)(nil)
	_ docindex.Converter     = (*Converter)(nil)
	_ docindex.LinkExtractor = (*LinkExtractor)(nil)
)

// Extractor is a mock implementation of docindex.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*docindex.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*docindex.ExtractResult, error) {
	return e.ExtractFn(html)
}

// Converter is a mock implementation of docindex.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

// LinkExtractor is a mock implementation of docindex.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]docindex.DiscoveredLink, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docindex.DiscoveredLink, error) {
	return e.ExtractLinksFn(html, baseURL)
}
