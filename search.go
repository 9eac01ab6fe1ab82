package docindex

import (
	"context"
	"strings"
	"unicode"
)

// Search limits.
const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

// SearchService ranks chunks for a query.
type SearchService interface {
	// Search returns chunks ordered by relevance to the query. When an
	// embedding is supplied and vector search is available, keyword and
	// vector rankings are fused.
	Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	// Restrict results to a single category.
	Category string `json:"category,omitempty"`

	// Maximum number of results to return.
	Limit int `json:"limit,omitempty"`

	// Optional query embedding for hybrid search.
	QueryEmbedding []float32 `json:"-"`
}

// SearchResult represents a search match.
type SearchResult struct {
	Chunk    *Chunk    `json:"chunk"`
	Document *Document `json:"document"`
	Score    float64   `json:"score"`

	// 1-based positions in the keyword and vector rankings. Zero means
	// the chunk did not appear in that ranking.
	KeywordRank int `json:"keywordRank,omitempty"`
	VectorRank  int `json:"vectorRank,omitempty"`

	// Preview is a short excerpt of the chunk. Matched keyword terms are
	// wrapped in HighlightOpen and HighlightClose.
	Preview string `json:"preview,omitempty"`
}

// Emphasis markers wrapped around matched terms in previews.
const (
	HighlightOpen  = "<mark>"
	HighlightClose = "</mark>"
)

// Embedder produces vectors for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size produced by the model.
	Dimensions() int

	// ModelName identifies the embedding model.
	ModelName() string
}

// QueryTerms splits a query into distinct lowercase terms. Any rune that
// is not a letter or digit separates terms.
func QueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// ClampLimit applies the default search limit to zero or negative values
// and caps the result at max.
func ClampLimit(limit, max int) int {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
