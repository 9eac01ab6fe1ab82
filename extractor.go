package docindex

import "errors"

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes raw HTML and returns the main content.
	Extract(html string) (*ExtractResult, error)
}

// Converter converts clean HTML to Markdown.
type Converter interface {
	Convert(html string) (string, error)
}

// ExtractorChain tries extractors in order and returns the first result
// with enough content. If none qualifies, the longest result is returned.
type ExtractorChain []Extractor

// Extract implements Extractor.
func (c ExtractorChain) Extract(html string) (*ExtractResult, error) {
	var best *ExtractResult
	var errs []error
	for _, e := range c {
		res, err := e.Extract(html)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(res.ContentHTML) >= MinContentLength {
			return res, nil
		}
		if best == nil || len(res.ContentHTML) > len(best.ContentHTML) {
			best = res
		}
	}
	if best != nil {
		return best, nil
	}
	if len(errs) == 0 {
		return nil, Errorf(EPARSE, "no extractors configured")
	}
	return nil, Errorf(EPARSE, "extract content: %v", errors.Join(errs...))
}
