package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

var _ docindex.DocumentService = (*DocumentService)(nil)

// DocumentService implements docindex.DocumentService using PostgreSQL.
type DocumentService struct {
	db *DB
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(db *DB) *DocumentService {
	return &DocumentService{db: db}
}

// UpsertDocument replaces the document, its chunks and its outgoing links
// in the primary collection within one transaction.
func (s *DocumentService) UpsertDocument(ctx context.Context, doc *docindex.Document, chunks []*docindex.Chunk) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := docindex.ValidateChunks(doc.Path, chunks); err != nil {
		return err
	}

	c := s.db.primary()
	now := time.Now().UTC()

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s_documents (path, title, category, audience, tags, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $7)
		ON CONFLICT (path) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			audience = EXCLUDED.audience,
			tags = EXCLUDED.tags,
			content_hash = EXCLUDED.content_hash,
			updated_at = EXCLUDED.updated_at
	`, c), doc.Path, doc.Title, doc.Category, doc.Audience, encodeTags(doc.Tags), doc.ContentHash, now); err != nil {
		return storageError("upsert document", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_path = $1`, c), doc.Path); err != nil {
		return storageError("delete chunks", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (file_path, chunk_index, title, section_path, content) VALUES ($1, $2, $3, $4, $5)`, c)
	if s.db.vector {
		insert = fmt.Sprintf(`INSERT INTO %s (file_path, chunk_index, title, section_path, content, embedding) VALUES ($1, $2, $3, $4, $5, $6::vector)`, c)
	}
	for _, ch := range chunks {
		args := []any{ch.Path, ch.Index, ch.Title, ch.SectionPath, ch.Content}
		if s.db.vector {
			var embedding any
			if len(ch.Embedding) > 0 {
				if embedding, err = encodeVectorLiteral(ch.Embedding); err != nil {
					return err
				}
			}
			args = append(args, embedding)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return storageError("insert chunk", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_path = $1`, s.db.linksTable), doc.Path); err != nil {
		return storageError("delete links", err)
	}
	linkInsert := fmt.Sprintf(`
		INSERT INTO %s (source_path, target_path, relation_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, s.db.linksTable)
	for _, l := range doc.Links {
		relation := l.Relation
		if relation == "" {
			relation = docindex.RelationRelatesTo
		}
		if _, err := tx.ExecContext(ctx, linkInsert, doc.Path, l.Target, relation, now); err != nil {
			return storageError("insert link", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit upsert", err)
	}
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = now
	return nil
}

// FindDocument retrieves a document by path from the first collection that
// holds it. Its outgoing links are included.
func (s *DocumentService) FindDocument(ctx context.Context, path string) (*docindex.Document, error) {
	for _, c := range s.db.collections {
		var count int
		doc, err := scanDocument(s.db.db.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT %s, (SELECT COUNT(*) FROM %s WHERE file_path = d.path)
			FROM %s_documents d
			WHERE d.path = $1
		`, documentColumns, c, c), path), &count)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, storageError("find document", err)
		}
		doc.ChunkCount = count

		links, err := NewLinkService(s.db).FindLinks(ctx, docindex.LinkFilter{Source: &path})
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			doc.Links = append(doc.Links, *l)
		}
		return doc, nil
	}
	return nil, docindex.Errorf(docindex.ENOTFOUND, "document %q not found", path)
}

// FindChunks retrieves a document's chunks ordered by index.
func (s *DocumentService) FindChunks(ctx context.Context, path string) ([]*docindex.Chunk, error) {
	for _, c := range s.db.collections {
		var exists int
		err := s.db.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s_documents WHERE path = $1`, c), path).Scan(&exists)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, storageError("find chunks", err)
		}

		rows, err := s.db.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT %s FROM %s c WHERE c.file_path = $1 ORDER BY c.chunk_index
		`, s.db.chunkColumns(), c), path)
		if err != nil {
			return nil, storageError("find chunks", err)
		}
		defer rows.Close()

		chunks := []*docindex.Chunk{}
		for rows.Next() {
			ch, err := scanChunk(rows)
			if err != nil {
				return nil, storageError("scan chunk", err)
			}
			chunks = append(chunks, ch)
		}
		return chunks, storageError("find chunks", rows.Err())
	}
	return nil, docindex.Errorf(docindex.ENOTFOUND, "document %q not found", path)
}

// FindDocuments retrieves documents matching the filter across all
// collections, ordered by path.
func (s *DocumentService) FindDocuments(ctx context.Context, filter docindex.DocumentFilter) ([]*docindex.Document, error) {
	var q query
	var category string
	if filter.Category != nil {
		category = q.arg(*filter.Category)
	}
	for i, c := range s.db.collections {
		if i > 0 {
			q.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(&q, "SELECT %s, (SELECT COUNT(*) FROM %s WHERE file_path = d.path) AS chunk_count FROM %s_documents d", documentColumns, c, c)
		if category != "" {
			q.WriteString(" WHERE d.category = " + category)
		}
	}
	q.WriteString(" ORDER BY path")
	q.paginate(filter.Limit, filter.Offset)

	rows, err := s.db.db.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, storageError("find documents", err)
	}
	defer rows.Close()

	docs := []*docindex.Document{}
	for rows.Next() {
		var count int
		doc, err := scanDocument(rows, &count)
		if err != nil {
			return nil, storageError("scan document", err)
		}
		doc.ChunkCount = count
		docs = append(docs, doc)
	}
	return docs, storageError("find documents", rows.Err())
}

// UpdateDocument updates document metadata without touching chunks.
func (s *DocumentService) UpdateDocument(ctx context.Context, path string, upd docindex.DocumentUpdate) (*docindex.Document, error) {
	var q query
	var sets []string
	if upd.Title != nil {
		sets = append(sets, "title = "+q.arg(*upd.Title))
	}
	if upd.Category != nil {
		sets = append(sets, "category = "+q.arg(*upd.Category))
	}
	if upd.Audience != nil {
		sets = append(sets, "audience = "+q.arg(*upd.Audience))
	}
	if upd.Tags != nil {
		sets = append(sets, "tags = "+q.arg(encodeTags(*upd.Tags))+"::jsonb")
	}
	sets = append(sets, "updated_at = "+q.arg(time.Now().UTC()))
	where := q.arg(path)

	var updated int64
	for _, c := range s.db.collections {
		res, err := s.db.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s_documents SET %s WHERE path = %s`, c, strings.Join(sets, ", "), where), q.args...)
		if err != nil {
			return nil, storageError("update document", err)
		}
		n, _ := res.RowsAffected()
		updated += n
	}
	if updated == 0 {
		return nil, docindex.Errorf(docindex.ENOTFOUND, "document %q not found", path)
	}
	return s.FindDocument(ctx, path)
}

// DeleteDocument removes a document from every collection together with
// its chunks and all links that reference it.
func (s *DocumentService) DeleteDocument(ctx context.Context, path string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, c := range s.db.collections {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_documents WHERE path = $1`, c), path)
		if err != nil {
			return storageError("delete document", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	if deleted == 0 {
		return docindex.Errorf(docindex.ENOTFOUND, "document %q not found", path)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_path = $1 OR target_path = $1`, s.db.linksTable), path); err != nil {
		return storageError("delete links", err)
	}
	return storageError("commit delete", tx.Commit())
}

// ListCategories returns every category with its document count.
func (s *DocumentService) ListCategories(ctx context.Context) ([]*docindex.CategoryCount, error) {
	parts := make([]string, len(s.db.collections))
	for i, c := range s.db.collections {
		parts[i] = fmt.Sprintf("SELECT category FROM %s_documents", c)
	}
	rows, err := s.db.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT category, COUNT(*) FROM (%s) AS all_documents
		GROUP BY category
		ORDER BY category
	`, strings.Join(parts, " UNION ALL ")))
	if err != nil {
		return nil, storageError("list categories", err)
	}
	defer rows.Close()

	counts := []*docindex.CategoryCount{}
	for rows.Next() {
		var cc docindex.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Documents); err != nil {
			return nil, storageError("scan category", err)
		}
		counts = append(counts, &cc)
	}
	return counts, storageError("list categories", rows.Err())
}
