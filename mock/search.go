package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var (
	_ docindex.SearchService = (*SearchService)(nil)
	_ docindex.Embedder      = (*Embedder)(nil)
)

// SearchService is a mock implementation of docindex.SearchService.
type SearchService struct {
	SearchFn func(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error)
}

func (s *SearchService) Search(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	return s.SearchFn(ctx, query, opts)
}

// Embedder is a mock implementation of docindex.Embedder.
type Embedder struct {
	EmbedFn      func(ctx context.Context, texts []string) ([][]float32, error)
	DimensionsFn func() int
	ModelNameFn  func() string
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}

func (e *Embedder) Dimensions() int {
	return e.DimensionsFn()
}

func (e *Embedder) ModelName() string {
	return e.ModelNameFn()
}
