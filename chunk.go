package docindex

import (
	"context"
	"strings"
)

// DefaultChunkSize is the default target size of a chunk in bytes.
const DefaultChunkSize = 4000

// Chunk represents a section of a document optimized for embedding and retrieval.
type Chunk struct {
	Path        string    `json:"path"`
	Index       int       `json:"index"`
	Title       string    `json:"title"`
	SectionPath string    `json:"sectionPath"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.Path == "" {
		return Errorf(EINVALID, "chunk path required")
	}
	if c.Index < 0 {
		return Errorf(EINVALID, "chunk index must not be negative")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	return nil
}

// ValidateChunks checks the chunk set of the document at path: every
// chunk must be valid, belong to path, and the indexes must run 0..n-1 in
// order.
func ValidateChunks(path string, chunks []*Chunk) error {
	for i, ch := range chunks {
		if err := ch.Validate(); err != nil {
			return err
		}
		if ch.Path != path {
			return Errorf(EINVALID, "chunk %d belongs to %q, not %q", ch.Index, ch.Path, path)
		}
		if ch.Index != i {
			return Errorf(EINVALID, "chunk at position %d has index %d", i, ch.Index)
		}
	}
	return nil
}

// EmbeddingText returns the text used to embed the chunk. Continuation
// chunks that do not begin with their own heading are prefixed with
// their section title so the vector keeps its context.
func (c *Chunk) EmbeddingText() string {
	if c.Title == "" || strings.HasPrefix(c.Content, "#") {
		return c.Content
	}
	return c.Title + "\n\n" + c.Content
}

// NewChunks converts sections into chunks for the document at path,
// numbering them contiguously from zero.
func NewChunks(path string, sections []Section) []*Chunk {
	chunks := make([]*Chunk, 0, len(sections))
	for i, s := range sections {
		chunks = append(chunks, &Chunk{
			Path:        path,
			Index:       i,
			Title:       s.Title,
			SectionPath: s.Path,
			Content:     s.Content,
		})
	}
	return chunks
}

// ChunkIndex provides keyword and vector retrieval over stored chunks.
type ChunkIndex interface {
	// SearchKeyword matches any query term and ranks chunks that match
	// more distinct terms above chunks that match fewer.
	SearchKeyword(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error)

	// SearchVector ranks embedded chunks by similarity to the embedding.
	// Returns ENOTIMPLEMENTED if the engine has no vector support.
	SearchVector(ctx context.Context, embedding []float32, opts SearchOptions) ([]*SearchResult, error)

	// VectorSearchEnabled reports whether SearchVector is available.
	VectorSearchEnabled() bool

	// PendingEmbeddings returns up to limit chunks that have no embedding.
	PendingEmbeddings(ctx context.Context, limit int) ([]*Chunk, error)

	// SetEmbeddings stores embeddings for existing chunks.
	SetEmbeddings(ctx context.Context, chunks []*Chunk) error
}
