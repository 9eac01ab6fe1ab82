package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var (
	_ docindex.Backend     = (*Backend)(nil)
	_ docindex.LinkService = (*LinkService)(nil)
	_ docindex.ChunkIndex  = (*ChunkIndex)(nil)
)

// LinkService is a mock implementation of docindex.LinkService.
type LinkService struct {
	FindRelatedFn func(ctx context.Context, path string, relation string) ([]*docindex.Related, error)
	FindLinksFn   func(ctx context.Context, filter docindex.LinkFilter) ([]*docindex.Link, error)
}

func (s *LinkService) FindRelated(ctx context.Context, path string, relation string) ([]*docindex.Related, error) {
	return s.FindRelatedFn(ctx, path, relation)
}

func (s *LinkService) FindLinks(ctx context.Context, filter docindex.LinkFilter) ([]*docindex.Link, error) {
	return s.FindLinksFn(ctx, filter)
}

// ChunkIndex is a mock implementation of docindex.ChunkIndex.
type ChunkIndex struct {
	SearchKeywordFn       func(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error)
	SearchVectorFn        func(ctx context.Context, embedding []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, error)
	VectorSearchEnabledFn func() bool
	PendingEmbeddingsFn   func(ctx context.Context, limit int) ([]*docindex.Chunk, error)
	SetEmbeddingsFn       func(ctx context.Context, chunks []*docindex.Chunk) error
}

func (i *ChunkIndex) SearchKeyword(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	return i.SearchKeywordFn(ctx, query, opts)
}

func (i *ChunkIndex) SearchVector(ctx context.Context, embedding []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	return i.SearchVectorFn(ctx, embedding, opts)
}

func (i *ChunkIndex) VectorSearchEnabled() bool {
	return i.VectorSearchEnabledFn()
}

func (i *ChunkIndex) PendingEmbeddings(ctx context.Context, limit int) ([]*docindex.Chunk, error) {
	return i.PendingEmbeddingsFn(ctx, limit)
}

func (i *ChunkIndex) SetEmbeddings(ctx context.Context, chunks []*docindex.Chunk) error {
	return i.SetEmbeddingsFn(ctx, chunks)
}

// Backend is a mock implementation of docindex.Backend composed of the
// service mocks.
type Backend struct {
	DocumentService
	LinkService
	ChunkIndex

	StatsFn func(ctx context.Context) (*docindex.Stats, error)
	CloseFn func() error
}

func (b *Backend) Stats(ctx context.Context) (*docindex.Stats, error) {
	return b.StatsFn(ctx)
}

func (b *Backend) Close() error {
	return b.CloseFn()
}
