// Package goquery extracts links from HTML pages with CSS selectors.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docindex"
)

var _ docindex.LinkExtractor = (*LinkExtractor)(nil)

// region assigns a priority to the anchors matched by a CSS selector.
type region struct {
	selector string
	priority docindex.LinkPriority
	source   string
}

// regions cover the page areas documentation generators commonly use,
// highest priority first.
var regions = []region{
	{".toc a[href], .table-of-contents a[href], .sidebar a[href], aside a[href]", docindex.PriorityTOC, "toc"},
	{"nav a[href], [role=\"navigation\"] a[href], .nav a[href], .menu a[href], .navbar a[href]", docindex.PriorityNavigation, "nav"},
	{"main a[href], article a[href], .content a[href], .doc-content a[href]", docindex.PriorityContent, "content"},
	{"footer a[href], .footer a[href]", docindex.PriorityFooter, "footer"},
	{"a[href]", docindex.PriorityFallback, "fallback"},
}

// LinkExtractor finds same-host links in an HTML page. Each link keeps the
// highest priority of any region it appears in.
type LinkExtractor struct{}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// ExtractLinks returns normalized same-host links in order of first
// discovery. Links to the page itself and non-HTTP schemes are dropped.
func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docindex.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid base URL: %v", err)
	}
	self, _ := docindex.NormalizeURL(baseURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "failed to parse HTML: %v", err)
	}

	// A <base href> changes how relative links resolve.
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(href); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	seen := make(map[string]int)
	var links []docindex.DiscoveredLink
	for _, r := range regions {
		doc.Find(r.selector).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			target := resolve(base, href)
			if target == "" || target == self {
				return
			}

			link := docindex.DiscoveredLink{
				URL:      target,
				Priority: r.priority,
				Text:     strings.Join(strings.Fields(sel.Text()), " "),
				Source:   r.source,
			}
			if idx, ok := seen[target]; ok {
				if r.priority > links[idx].Priority {
					links[idx] = link
				}
				return
			}
			seen[target] = len(links)
			links = append(links, link)
		})
	}
	return links, nil
}

// resolve returns the normalized absolute form of href, or "" when it is
// not an http(s) link on the base host.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(u.Host, base.Host) {
		return ""
	}
	norm, err := docindex.NormalizeURL(u.String())
	if err != nil {
		return ""
	}
	return norm
}
