package docindex

// LinkPriority represents crawl priority (higher = more important).
type LinkPriority int

// Link priority levels for crawl ordering within the same depth.
const (
	PriorityFallback   LinkPriority = 10
	PriorityFooter     LinkPriority = 20
	PriorityContent    LinkPriority = 50
	PriorityNavigation LinkPriority = 100
	PriorityTOC        LinkPriority = 110
)

// DiscoveredLink represents a URL with crawl metadata.
type DiscoveredLink struct {
	URL      string
	Depth    int
	Priority LinkPriority
	Text     string
	Source   string // "nav", "toc", "content", "footer"
}

// LinkExtractor extracts same-host links from HTML.
type LinkExtractor interface {
	// ExtractLinks parses HTML and returns normalized same-host links
	// in document order. The baseURL is used to resolve relative URLs.
	ExtractLinks(html string, baseURL string) ([]DiscoveredLink, error)
}
