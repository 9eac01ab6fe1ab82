package http

import (
	"context"
	"net/url"

	"github.com/fwojciec/docindex"
	"github.com/temoto/robotstxt"
)

var (
	_ docindex.RobotsService = (*RobotsService)(nil)
	_ docindex.RobotsPolicy  = (*RobotsPolicy)(nil)
)

// RobotsService fetches robots.txt with a docindex.Fetcher.
type RobotsService struct {
	fetcher   docindex.Fetcher
	userAgent string
}

// NewRobotsService creates a RobotsService that evaluates rules for the
// given user agent.
func NewRobotsService(fetcher docindex.Fetcher, userAgent string) *RobotsService {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &RobotsService{fetcher: fetcher, userAgent: userAgent}
}

// FetchRobots fetches the robots.txt of the root URL's host. A 4xx answer
// means no restrictions. Transport failures and 5xx answers are errors.
func (s *RobotsService) FetchRobots(ctx context.Context, rootURL string) (docindex.RobotsPolicy, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid root URL: %v", err)
	}
	robotsURL := url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}

	resp, err := s.fetcher.Fetch(ctx, docindex.FetchRequest{URL: robotsURL.String()})
	if err != nil {
		return nil, err
	}
	if resp.Status >= 500 {
		return nil, docindex.Errorf(docindex.EFETCH, "%s for %s", statusText(resp.Status), robotsURL.String())
	}

	data, err := robotstxt.FromStatusAndString(resp.Status, resp.Body)
	if err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "parse robots.txt: %v", err)
	}
	return &RobotsPolicy{data: data, agent: s.userAgent}, nil
}

// RobotsPolicy applies parsed robots.txt rules for one user agent.
type RobotsPolicy struct {
	data  *robotstxt.RobotsData
	agent string
}

// Allowed reports whether the rules permit fetching rawURL.
func (p *RobotsPolicy) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.data.TestAgent(path, p.agent)
}

// Sitemaps returns the Sitemap: directives.
func (p *RobotsPolicy) Sitemaps() []string {
	return p.data.Sitemaps
}
