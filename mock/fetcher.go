package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var (
	_ docindex.Fetcher   = (*Fetcher)(nil)
	_ docindex.HostGuard = (*HostGuard)(nil)
)

// Fetcher is a mock implementation of docindex.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, req docindex.FetchRequest) (*docindex.FetchResponse, error)
}

func (f *Fetcher) Fetch(ctx context.Context, req docindex.FetchRequest) (*docindex.FetchResponse, error) {
	return f.FetchFn(ctx, req)
}

// HostGuard is a mock implementation of docindex.HostGuard.
type HostGuard struct {
	CheckHostFn func(ctx context.Context, host string) error
}

func (g *HostGuard) CheckHost(ctx context.Context, host string) error {
	return g.CheckHostFn(ctx, host)
}
