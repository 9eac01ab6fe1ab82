package docindex

import (
	"context"
	"net/url"
	"regexp"
	"strings"
)

// SitemapService discovers URLs from website sitemaps.
type SitemapService interface {
	// DiscoverURLs finds all URLs from a site's sitemaps. The hints are
	// sitemap locations announced by robots.txt; when there are none it
	// falls back to /sitemap.xml. Sitemap indexes are resolved recursively.
	DiscoverURLs(ctx context.Context, baseURL string, hints []string) ([]string, error)
}

// RobotsPolicy answers robots.txt questions for one crawl session.
type RobotsPolicy interface {
	// Allowed reports whether the URL may be fetched.
	Allowed(rawURL string) bool

	// Sitemaps returns the Sitemap: directives.
	Sitemaps() []string
}

// RobotsService fetches and parses robots.txt.
type RobotsService interface {
	FetchRobots(ctx context.Context, rootURL string) (RobotsPolicy, error)
}

// AllowAll is a RobotsPolicy without restrictions.
type AllowAll struct{}

func (AllowAll) Allowed(string) bool { return true }
func (AllowAll) Sitemaps() []string  { return nil }

// URLFilter specifies glob patterns for including/excluding URLs by path.
type URLFilter struct {
	// Include patterns - if set, only URLs matching at least one pattern are included.
	Include []*regexp.Regexp

	// Exclude patterns - URLs matching any pattern are excluded.
	// Exclude is applied after Include.
	Exclude []*regexp.Regexp
}

// NewURLFilter compiles shell-style globs into a URLFilter. Globs match
// the whole URL path; "*" also matches "/".
// Returns nil if there are no patterns.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}
	f := &URLFilter{}
	for _, p := range include {
		re, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		f.Include = append(f.Include, re)
	}
	for _, p := range exclude {
		re, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		f.Exclude = append(f.Exclude, re)
	}
	return f, nil
}

// Match returns true if the URL passes the filter.
// If the filter is nil, all URLs pass.
func (f *URLFilter) Match(rawURL string) bool {
	if f == nil {
		return true
	}

	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if path == "" {
		path = "/"
	}

	// If include patterns exist, URL must match at least one
	if len(f.Include) > 0 {
		matched := false
		for _, re := range f.Include {
			if re.MatchString(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// Check exclude patterns
	for _, re := range f.Exclude {
		if re.MatchString(path) {
			return false
		}
	}

	return true
}

// CompileGlob translates an fnmatch-style pattern into an anchored regexp.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, Errorf(EINVALID, "invalid glob %q: %v", pattern, err)
	}
	return re, nil
}
