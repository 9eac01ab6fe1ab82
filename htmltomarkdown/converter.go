// Package htmltomarkdown turns extracted page content into markdown.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docindex"
)

var _ docindex.Converter = (*Converter)(nil)

// noise matches elements documentation generators add around content that
// carry no text worth indexing, such as heading permalinks and copy buttons.
const noise = "script, style, noscript, button, a.headerlink, a.hash-link, a.anchor, a.anchor-link, .copy-button"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Converter converts HTML to markdown with tables preserved.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	return &Converter{conv: converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)}
}

// Convert removes noise elements and renders the rest as markdown with
// runs of blank lines collapsed.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", docindex.Errorf(docindex.EINVALID, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", docindex.Errorf(docindex.EPARSE, "parse HTML: %v", err)
	}
	doc.Find(noise).Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return "", docindex.Errorf(docindex.EPARSE, "render HTML: %v", err)
	}

	md, err := c.conv.ConvertString(cleaned)
	if err != nil {
		return "", docindex.Errorf(docindex.EPARSE, "convert to markdown: %v", err)
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(md, "\n\n")), nil
}
