package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var (
	_ docindex.SitemapService = (*SitemapService)(nil)
	_ docindex.RobotsService  = (*RobotsService)(nil)
	_ docindex.RobotsPolicy   = (*RobotsPolicy)(nil)
)

// SitemapService is a mock implementation of docindex.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, hints []string) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, hints []string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, hints)
}

// RobotsService is a mock implementation of docindex.RobotsService.
type RobotsService struct {
	FetchRobotsFn func(ctx context.Context, rootURL string) (docindex.RobotsPolicy, error)
}

func (s *RobotsService) FetchRobots(ctx context.Context, rootURL string) (docindex.RobotsPolicy, error) {
	return s.FetchRobotsFn(ctx, rootURL)
}

// RobotsPolicy is a mock implementation of docindex.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn  func(rawURL string) bool
	SitemapsFn func() []string
}

func (p *RobotsPolicy) Allowed(rawURL string) bool {
	return p.AllowedFn(rawURL)
}

func (p *RobotsPolicy) Sitemaps() []string {
	return p.SitemapsFn()
}
