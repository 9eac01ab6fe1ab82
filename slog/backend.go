package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure the decorators implement their interfaces.
var (
	_ docindex.Backend       = (*LoggingBackend)(nil)
	_ docindex.SearchService = (*LoggingSearchService)(nil)
)

// LoggingBackend wraps a Backend and logs writes and index queries.
// Plain reads are delegated without logging.
type LoggingBackend struct {
	docindex.Backend
	logger *slog.Logger
}

// NewLoggingBackend creates a new LoggingBackend.
func NewLoggingBackend(next docindex.Backend, logger *slog.Logger) *LoggingBackend {
	return &LoggingBackend{Backend: next, logger: logger}
}

func (b *LoggingBackend) UpsertDocument(ctx context.Context, doc *docindex.Document, chunks []*docindex.Chunk) (err error) {
	defer func(begin time.Time) {
		b.logger.Info("upsert document",
			"path", doc.Path,
			"chunks", len(chunks),
			"links", len(doc.Links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.Backend.UpsertDocument(ctx, doc, chunks)
}

func (b *LoggingBackend) DeleteDocument(ctx context.Context, path string) (err error) {
	defer func(begin time.Time) {
		b.logger.Info("delete document",
			"path", path,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.Backend.DeleteDocument(ctx, path)
}

func (b *LoggingBackend) SearchKeyword(ctx context.Context, query string, opts docindex.SearchOptions) (results []*docindex.SearchResult, err error) {
	defer func(begin time.Time) {
		b.logger.Info("keyword search",
			"query", query,
			"category", opts.Category,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.Backend.SearchKeyword(ctx, query, opts)
}

func (b *LoggingBackend) SearchVector(ctx context.Context, embedding []float32, opts docindex.SearchOptions) (results []*docindex.SearchResult, err error) {
	defer func(begin time.Time) {
		b.logger.Info("vector search",
			"dimensions", len(embedding),
			"category", opts.Category,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.Backend.SearchVector(ctx, embedding, opts)
}

func (b *LoggingBackend) SetEmbeddings(ctx context.Context, chunks []*docindex.Chunk) (err error) {
	defer func(begin time.Time) {
		b.logger.Info("set embeddings",
			"chunks", len(chunks),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return b.Backend.SetEmbeddings(ctx, chunks)
}

// LoggingSearchService wraps a SearchService with logging.
type LoggingSearchService struct {
	next   docindex.SearchService
	logger *slog.Logger
}

// NewLoggingSearchService creates a new LoggingSearchService.
func NewLoggingSearchService(next docindex.SearchService, logger *slog.Logger) *LoggingSearchService {
	return &LoggingSearchService{next: next, logger: logger}
}

// Search delegates to the wrapped service and logs the query.
func (s *LoggingSearchService) Search(ctx context.Context, query string, opts docindex.SearchOptions) (results []*docindex.SearchResult, err error) {
	defer func(begin time.Time) {
		s.logger.Info("search",
			"query", query,
			"limit", opts.Limit,
			"hybrid", len(opts.QueryEmbedding) > 0,
			"results", len(results),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Search(ctx, query, opts)
}
