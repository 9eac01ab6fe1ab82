package docindex

import (
	"context"
	"time"
)

// Default document metadata.
const (
	DefaultCategory = "general"
	DefaultAudience = "all"
)

// Document represents an indexed source: a local file or a crawled page.
// Path is the unique key (a relative file path or a normalized URL).
type Document struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Audience    string    `json:"audience"`
	Tags        []string  `json:"tags,omitempty"`
	ContentHash string    `json:"contentHash"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Outgoing links owned by this document. They are replaced together
	// with the chunk set on every upsert.
	Links []Link `json:"links,omitempty"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.Path == "" {
		return Errorf(EINVALID, "document path required")
	}
	for _, l := range d.Links {
		if l.Target == "" {
			return Errorf(EINVALID, "link target required")
		}
	}
	return nil
}

// DocumentService represents a service for managing documents and their chunks.
type DocumentService interface {
	// UpsertDocument creates or replaces a document together with its
	// entire chunk set and outgoing links. The replacement is atomic: on
	// failure the previous chunk set stays intact.
	UpsertDocument(ctx context.Context, doc *Document, chunks []*Chunk) error

	// FindDocument retrieves a document by path.
	// Returns ENOTFOUND if document does not exist.
	FindDocument(ctx context.Context, path string) (*Document, error)

	// FindChunks retrieves a document's chunks ordered by index.
	// Returns ENOTFOUND if document does not exist.
	FindChunks(ctx context.Context, path string) ([]*Chunk, error)

	// FindDocuments retrieves documents matching the filter, ordered by path.
	FindDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)

	// UpdateDocument updates document metadata without touching chunks.
	// Returns ENOTFOUND if document does not exist.
	UpdateDocument(ctx context.Context, path string, upd DocumentUpdate) (*Document, error)

	// DeleteDocument permanently removes a document, its chunks, and every
	// link that references it in either direction.
	// Returns ENOTFOUND if document does not exist.
	DeleteDocument(ctx context.Context, path string) error

	// ListCategories returns every category with its document count.
	ListCategories(ctx context.Context) ([]*CategoryCount, error)
}

// DocumentUpdate represents a set of metadata fields to update.
type DocumentUpdate struct {
	Title    *string   `json:"title"`
	Category *string   `json:"category"`
	Audience *string   `json:"audience"`
	Tags     *[]string `json:"tags"`
}

// DocumentFilter represents a filter for FindDocuments.
type DocumentFilter struct {
	Category *string `json:"category"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// CategoryCount is the number of documents in a category.
type CategoryCount struct {
	Category  string `json:"category"`
	Documents int    `json:"documents"`
}

// Stats summarizes the contents of a backend.
type Stats struct {
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Embedded   int `json:"embedded"`
	Links      int `json:"links"`
	Categories int `json:"categories"`
}

// Backend is the storage contract implemented by every engine.
type Backend interface {
	DocumentService
	LinkService
	ChunkIndex

	// Stats returns aggregate counts across all collections.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying connection pool.
	Close() error
}
