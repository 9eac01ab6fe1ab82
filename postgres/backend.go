package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.Backend = (*Backend)(nil)

// Backend composes the PostgreSQL services into a docindex.Backend.
type Backend struct {
	*DocumentService
	*LinkService
	*ChunkIndex

	db *DB
}

// NewBackend returns a Backend over an open DB.
func NewBackend(db *DB) *Backend {
	return &Backend{
		DocumentService: NewDocumentService(db),
		LinkService:     NewLinkService(db),
		ChunkIndex:      NewChunkIndex(db),
		db:              db,
	}
}

// Stats counts documents, chunks and links across all collections.
func (b *Backend) Stats(ctx context.Context) (*docindex.Stats, error) {
	embedded := "FALSE"
	if b.db.vector {
		embedded = "embedding IS NOT NULL"
	}
	docs := make([]string, len(b.db.collections))
	chunks := make([]string, len(b.db.collections))
	for n, c := range b.db.collections {
		docs[n] = fmt.Sprintf("SELECT category FROM %s_documents", c)
		chunks[n] = fmt.Sprintf("SELECT (%s)::int AS embedded FROM %s", embedded, c)
	}

	var s docindex.Stats
	err := b.db.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM (%[1]s) AS d),
			(SELECT COUNT(DISTINCT category) FROM (%[1]s) AS d),
			(SELECT COUNT(*) FROM (%[2]s) AS c),
			(SELECT COALESCE(SUM(embedded), 0) FROM (%[2]s) AS c),
			(SELECT COUNT(*) FROM %[3]s)
	`, strings.Join(docs, " UNION ALL "), strings.Join(chunks, " UNION ALL "), b.db.linksTable)).
		Scan(&s.Documents, &s.Categories, &s.Chunks, &s.Embedded, &s.Links)
	if err != nil {
		return nil, storageError("stats", err)
	}
	return &s, nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}
