package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// Compile-time interface verification.
var _ docindex.DocumentService = (*DocumentService)(nil)

// DocumentService implements docindex.DocumentService using SQLite.
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

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return storageError("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s_documents (path, title, category, audience, tags, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			audience = excluded.audience,
			tags = excluded.tags,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`, c), doc.Path, doc.Title, doc.Category, doc.Audience, encodeTags(doc.Tags), doc.ContentHash,
		formatTime(now), formatTime(now)); err != nil {
		return storageError("upsert document", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_path = ?`, c), doc.Path); err != nil {
		return storageError("delete chunks", err)
	}
	insert := fmt.Sprintf(`
		INSERT INTO %s (file_path, chunk_index, title, section_path, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c)
	for _, ch := range chunks {
		if _, err := tx.ExecContext(ctx, insert, ch.Path, ch.Index, ch.Title, ch.SectionPath, ch.Content, encodeVector(ch.Embedding)); err != nil {
			return storageError("insert chunk", err)
		}
	}

	if err := replaceLinks(ctx, tx, s.db.linksTable, doc.Path, doc.Links, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError("commit upsert", err)
	}
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = now
	return nil
}

// replaceLinks swaps the outgoing links of source for links.
func replaceLinks(ctx context.Context, tx *sql.Tx, table, source string, links []docindex.Link, now time.Time) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_path = ?`, table), source); err != nil {
		return storageError("delete links", err)
	}
	insert := fmt.Sprintf(`
		INSERT INTO %s (source_path, target_path, relation_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, table)
	for _, l := range links {
		relation := l.Relation
		if relation == "" {
			relation = docindex.RelationRelatesTo
		}
		if _, err := tx.ExecContext(ctx, insert, source, l.Target, relation, formatTime(now)); err != nil {
			return storageError("insert link", err)
		}
	}
	return nil
}

// FindDocument retrieves a document by path from the first collection that
// holds it. Its outgoing links are included.
func (s *DocumentService) FindDocument(ctx context.Context, path string) (*docindex.Document, error) {
	for _, c := range s.db.collections {
		var count int
		doc, err := scanDocument(s.db.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT %s, (SELECT COUNT(*) FROM %s WHERE file_path = d.path)
			FROM %s_documents d
			WHERE d.path = ?
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
		err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s_documents WHERE path = ?`, c), path).Scan(&exists)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, storageError("find chunks", err)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT file_path, chunk_index, title, section_path, content, embedding
			FROM %s
			WHERE file_path = ?
			ORDER BY chunk_index
		`, c), path)
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

func scanChunk(row scanner) (*docindex.Chunk, error) {
	var ch docindex.Chunk
	var embedding []byte
	if err := row.Scan(&ch.Path, &ch.Index, &ch.Title, &ch.SectionPath, &ch.Content, &embedding); err != nil {
		return nil, err
	}
	ch.Embedding = decodeVector(embedding)
	return &ch, nil
}

// FindDocuments retrieves documents matching the filter across all
// collections, ordered by path.
func (s *DocumentService) FindDocuments(ctx context.Context, filter docindex.DocumentFilter) ([]*docindex.Document, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT * FROM (")
	for i, c := range s.db.collections {
		if i > 0 {
			query.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(&query, "SELECT %s, (SELECT COUNT(*) FROM %s WHERE file_path = d.path) AS chunk_count FROM %s_documents d", documentColumns, c, c)
		if filter.Category != nil {
			query.WriteString(" WHERE d.category = ?")
			args = append(args, *filter.Category)
		}
	}
	query.WriteString(") ORDER BY path")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
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
	var sets []string
	var args []any
	if upd.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *upd.Title)
	}
	if upd.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *upd.Category)
	}
	if upd.Audience != nil {
		sets, args = append(sets, "audience = ?"), append(args, *upd.Audience)
	}
	if upd.Tags != nil {
		sets, args = append(sets, "tags = ?"), append(args, encodeTags(*upd.Tags))
	}
	sets, args = append(sets, "updated_at = ?"), append(args, formatTime(time.Now()))
	args = append(args, path)

	var updated int64
	for _, c := range s.db.collections {
		res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s_documents SET %s WHERE path = ?`, c, strings.Join(sets, ", ")), args...)
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
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return storageError("begin delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deleted int64
	for _, c := range s.db.collections {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s_documents WHERE path = ?`, c), path)
		if err != nil {
			return storageError("delete document", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	if deleted == 0 {
		return docindex.Errorf(docindex.ENOTFOUND, "document %q not found", path)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source_path = ? OR target_path = ?`, s.db.linksTable), path, path); err != nil {
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
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT category, COUNT(*) FROM (%s)
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
