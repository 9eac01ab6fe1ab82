package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex implements docindex.ChunkIndex using FTS5 for keywords and
// stored float32 vectors for similarity.
type ChunkIndex struct {
	db *DB
}

// NewChunkIndex creates a new ChunkIndex.
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

// chunkColumns selects the chunk columns scanned after documentColumns.
// The alias c must refer to a chunks table.
const chunkColumns = "c.file_path, c.chunk_index AS idx, c.title, c.section_path, c.content, c.embedding"

// SearchKeyword returns chunks matching any term of the query. Chunks
// matching more distinct terms rank first; bm25 orders chunks with equal
// hits. Score is the number of distinct terms matched.
func (i *ChunkIndex) SearchKeyword(ctx context.Context, query string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	terms := docindex.QueryTerms(query)
	if len(terms) == 0 {
		return []*docindex.SearchResult{}, nil
	}
	quoted := make([]string, len(terms))
	for n, t := range terms {
		quoted[n] = quoteTerm(t)
	}
	match := strings.Join(quoted, " OR ")

	var q strings.Builder
	var args []any
	for n, c := range i.db.collections {
		if n > 0 {
			q.WriteString(" UNION ALL ")
		}
		hits := make([]string, len(terms))
		for k := range terms {
			hits[k] = fmt.Sprintf("(c.id IN (SELECT rowid FROM %[1]s_fts WHERE %[1]s_fts MATCH ?))", c)
			args = append(args, quoted[k])
		}
		fmt.Fprintf(&q, `SELECT %s, %s, (%s) AS hits, bm25(%[4]s_fts) AS relevance
			FROM %[4]s_fts
			JOIN %[4]s c ON c.id = %[4]s_fts.rowid
			JOIN %[4]s_documents d ON d.path = c.file_path
			WHERE %[4]s_fts MATCH ?`, documentColumns, chunkColumns, strings.Join(hits, " + "), c)
		args = append(args, match)
		if opts.Category != "" {
			q.WriteString(" AND d.category = ?")
			args = append(args, opts.Category)
		}
	}
	q.WriteString(" ORDER BY hits DESC, relevance ASC, path, idx LIMIT ?")
	args = append(args, docindex.ClampLimit(opts.Limit, 0))

	rows, err := i.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, storageError("keyword search", err)
	}
	defer rows.Close()

	results := []*docindex.SearchResult{}
	for rows.Next() {
		var hits int
		var relevance float64
		r, err := scanResult(rows, &hits, &relevance)
		if err != nil {
			return nil, storageError("scan keyword result", err)
		}
		r.Score = float64(hits)
		r.KeywordRank = len(results) + 1
		results = append(results, r)
	}
	return results, storageError("keyword search", rows.Err())
}

// SearchVector ranks every embedded chunk by cosine similarity to the
// embedding. Chunks whose embedding has a different dimension are skipped.
func (i *ChunkIndex) SearchVector(ctx context.Context, embedding []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "query embedding required")
	}

	var q strings.Builder
	var args []any
	for n, c := range i.db.collections {
		if n > 0 {
			q.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(&q, `SELECT %s, %s
			FROM %[3]s c
			JOIN %[3]s_documents d ON d.path = c.file_path
			WHERE c.embedding IS NOT NULL`, documentColumns, chunkColumns, c)
		if opts.Category != "" {
			q.WriteString(" AND d.category = ?")
			args = append(args, opts.Category)
		}
	}

	rows, err := i.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, storageError("vector search", err)
	}
	defer rows.Close()

	results := []*docindex.SearchResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, storageError("scan vector result", err)
		}
		if len(r.Chunk.Embedding) != len(embedding) {
			continue
		}
		r.Score = cosine(embedding, r.Chunk.Embedding)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("vector search", err)
	}

	sort.SliceStable(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		if ra.Chunk.Path != rb.Chunk.Path {
			return ra.Chunk.Path < rb.Chunk.Path
		}
		return ra.Chunk.Index < rb.Chunk.Index
	})
	if limit := docindex.ClampLimit(opts.Limit, 0); len(results) > limit {
		results = results[:limit]
	}
	for n, r := range results {
		r.VectorRank = n + 1
	}
	return results, nil
}

// VectorSearchEnabled is always true: vectors are compared in process.
func (i *ChunkIndex) VectorSearchEnabled() bool {
	return true
}

// PendingEmbeddings returns up to limit chunks without an embedding,
// ordered by path and index. A limit of zero returns all of them.
func (i *ChunkIndex) PendingEmbeddings(ctx context.Context, limit int) ([]*docindex.Chunk, error) {
	parts := make([]string, len(i.db.collections))
	for n, c := range i.db.collections {
		parts[n] = fmt.Sprintf(`SELECT file_path, chunk_index, title, section_path, content, embedding FROM %s WHERE embedding IS NULL`, c)
	}

	var q strings.Builder
	var args []any
	fmt.Fprintf(&q, "SELECT * FROM (%s) ORDER BY file_path, chunk_index", strings.Join(parts, " UNION ALL "))
	appendPagination(&q, &args, limit, 0)

	rows, err := i.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, storageError("pending embeddings", err)
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
	return chunks, storageError("pending embeddings", rows.Err())
}

// SetEmbeddings stores the embedding of each chunk, matched by path and
// index in every collection. Chunks that no longer exist are ignored.
func (i *ChunkIndex) SetEmbeddings(ctx context.Context, chunks []*docindex.Chunk) error {
	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return docindex.Errorf(docindex.EINVALID, "chunk %s#%d has no embedding", ch.Path, ch.Index)
		}
	}

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return storageError("begin set embeddings", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range i.db.collections {
		stmt := fmt.Sprintf(`UPDATE %s SET embedding = ? WHERE file_path = ? AND chunk_index = ?`, c)
		for _, ch := range chunks {
			if _, err := tx.ExecContext(ctx, stmt, encodeVector(ch.Embedding), ch.Path, ch.Index); err != nil {
				return storageError("set embedding", err)
			}
		}
	}
	return storageError("commit set embeddings", tx.Commit())
}

// scanResult scans documentColumns and chunkColumns plus any extra
// destinations.
func scanResult(row scanner, extra ...any) (*docindex.SearchResult, error) {
	var ch docindex.Chunk
	var embedding []byte
	doc, err := scanDocument(row, append([]any{&ch.Path, &ch.Index, &ch.Title, &ch.SectionPath, &ch.Content, &embedding}, extra...)...)
	if err != nil {
		return nil, err
	}
	ch.Embedding = decodeVector(embedding)
	return &docindex.SearchResult{Chunk: &ch, Document: doc}, nil
}
