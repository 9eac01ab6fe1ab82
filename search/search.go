// Package search combines keyword and vector retrieval with reciprocal
// rank fusion.
package search

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/fwojciec/docindex"
	"golang.org/x/sync/errgroup"
)

// Defaults.
const (
	DefaultK               = 60
	DefaultCandidateFactor = 3
	DefaultPreviewChars    = 200
)

var _ docindex.SearchService = (*Service)(nil)

// Service answers queries from a ChunkIndex. When an Embedder is set and
// the index supports vectors, keyword and vector results are fused.
type Service struct {
	Index    docindex.ChunkIndex
	Embedder docindex.Embedder

	K               int
	CandidateFactor int
	MaxLimit        int
	PreviewChars    int

	Logger *slog.Logger
}

// NewService returns a Service with default settings.
func NewService(index docindex.ChunkIndex, embedder docindex.Embedder) *Service {
	return &Service{
		Index:           index,
		Embedder:        embedder,
		K:               DefaultK,
		CandidateFactor: DefaultCandidateFactor,
		MaxLimit:        docindex.MaxSearchLimit,
		PreviewChars:    DefaultPreviewChars,
	}
}

// Search runs the query. Without a query embedding the Embedder, if any,
// provides one; if that fails the search continues on keywords alone.
func (s *Service) Search(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, docindex.Errorf(docindex.EINVALID, "search query required")
	}
	limit := docindex.ClampLimit(opts.Limit, s.MaxLimit)
	highlighter := Highlighter{PreviewChars: s.PreviewChars}

	embedding := opts.QueryEmbedding
	if s.Index.VectorSearchEnabled() && len(embedding) == 0 && s.Embedder != nil {
		vecs, err := s.Embedder.Embed(ctx, []string{query})
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			s.logger().Warn("embed query, using keyword search only", "err", err)
		case len(vecs) == 1:
			embedding = vecs[0]
		}
	}

	if len(embedding) == 0 || !s.Index.VectorSearchEnabled() {
		results, err := s.Index.SearchKeyword(ctx, query, docindex.SearchOptions{Category: opts.Category, Limit: limit})
		if err != nil {
			return nil, err
		}
		highlighter.Apply(results, query)
		return results, nil
	}

	candidates := docindex.SearchOptions{Category: opts.Category, Limit: limit * s.factor()}
	var keyword, vector []*docindex.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keyword, err = s.Index.SearchKeyword(gctx, query, candidates)
		return err
	})
	g.Go(func() error {
		var err error
		vector, err = s.Index.SearchVector(gctx, embedding, candidates)
		if err != nil && gctx.Err() == nil {
			s.logger().Warn("vector search, using keyword results only", "err", err)
			vector = nil
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := Fuse(keyword, vector, s.k())
	if len(results) > limit {
		results = results[:limit]
	}
	highlighter.Apply(results, query)
	return results, nil
}

func (s *Service) k() int {
	if s.K <= 0 {
		return DefaultK
	}
	return s.K
}

func (s *Service) factor() int {
	if s.CandidateFactor <= 0 {
		return DefaultCandidateFactor
	}
	return s.CandidateFactor
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

type chunkKey struct {
	path  string
	index int
}

// Fuse merges ranked lists by reciprocal rank fusion. Each list position
// r (1-based) contributes 1/(k+r) to its chunk's score. Results are
// ordered by score, then keyword rank, then vector rank, with chunks absent
// from a list ranked after those present.
func Fuse(keyword, vector []*docindex.SearchResult, k int) []*docindex.SearchResult {
	byKey := make(map[chunkKey]*docindex.SearchResult, len(keyword)+len(vector))
	var fused []*docindex.SearchResult

	add := func(list []*docindex.SearchResult, setRank func(r *docindex.SearchResult, rank int)) {
		for i, r := range list {
			key := chunkKey{r.Chunk.Path, r.Chunk.Index}
			f, ok := byKey[key]
			if !ok {
				f = &docindex.SearchResult{Chunk: r.Chunk, Document: r.Document}
				byKey[key] = f
				fused = append(fused, f)
			}
			rank := i + 1
			setRank(f, rank)
			f.Score += 1 / float64(k+rank)
		}
	}
	add(keyword, func(r *docindex.SearchResult, rank int) { r.KeywordRank = rank })
	add(vector, func(r *docindex.SearchResult, rank int) { r.VectorRank = rank })

	sort.SliceStable(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := rankOrder(a.KeywordRank), rankOrder(b.KeywordRank); ra != rb {
			return ra < rb
		}
		if ra, rb := rankOrder(a.VectorRank), rankOrder(b.VectorRank); ra != rb {
			return ra < rb
		}
		if a.Chunk.Path != b.Chunk.Path {
			return a.Chunk.Path < b.Chunk.Path
		}
		return a.Chunk.Index < b.Chunk.Index
	})
	return fused
}

// rankOrder places missing ranks after every present one.
func rankOrder(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}
