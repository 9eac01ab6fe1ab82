package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.DocumentService = (*DocumentService)(nil)

// DocumentService is a mock implementation of docindex.DocumentService.
type DocumentService struct {
	UpsertDocumentFn func(ctx context.Context, doc *docindex.Document, chunks []*docindex.Chunk) error
	FindDocumentFn   func(ctx context.Context, path string) (*docindex.Document, error)
	FindChunksFn     func(ctx context.Context, path string) ([]*docindex.Chunk, error)
	FindDocumentsFn  func(ctx context.Context, filter docindex.DocumentFilter) ([]*docindex.Document, error)
	UpdateDocumentFn func(ctx context.Context, path string, upd docindex.DocumentUpdate) (*docindex.Document, error)
	DeleteDocumentFn func(ctx context.Context, path string) error
	ListCategoriesFn func(ctx context.Context) ([]*docindex.CategoryCount, error)
}

func (s *DocumentService) UpsertDocument(ctx context.Context, doc *docindex.Document, chunks []*docindex.Chunk) error {
	return s.UpsertDocumentFn(ctx, doc, chunks)
}

func (s *DocumentService) FindDocument(ctx context.Context, path string) (*docindex.Document, error) {
	return s.FindDocumentFn(ctx, path)
}

func (s *DocumentService) FindChunks(ctx context.Context, path string) ([]*docindex.Chunk, error) {
	return s.FindChunksFn(ctx, path)
}

func (s *DocumentService) FindDocuments(ctx context.Context, filter docindex.DocumentFilter) ([]*docindex.Document, error) {
	return s.FindDocumentsFn(ctx, filter)
}

func (s *DocumentService) UpdateDocument(ctx context.Context, path string, upd docindex.DocumentUpdate) (*docindex.Document, error) {
	return s.UpdateDocumentFn(ctx, path, upd)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, path string) error {
	return s.DeleteDocumentFn(ctx, path)
}

func (s *DocumentService) ListCategories(ctx context.Context) ([]*docindex.CategoryCount, error) {
	return s.ListCategoriesFn(ctx)
}
