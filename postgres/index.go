package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex implements docindex.ChunkIndex using full-text search and
// pgvector.
type ChunkIndex struct {
	db *DB
}

// NewChunkIndex creates a new ChunkIndex.
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

// SearchKeyword returns chunks matching any term of the query. Chunks
// matching more distinct terms rank first; ts_rank orders chunks with
// equal hits. Score is the number of distinct terms matched.
func (i *ChunkIndex) SearchKeyword(ctx context.Context, text string, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	terms := docindex.QueryTerms(text)
	if len(terms) == 0 {
		return []*docindex.SearchResult{}, nil
	}

	q := &query{}
	tsqueries := make([]string, len(terms))
	hits := make([]string, len(terms))
	for n, t := range terms {
		tsqueries[n] = fmt.Sprintf("plainto_tsquery('english', %s)", q.arg(t))
		hits[n] = fmt.Sprintf("(c.tsv @@ %s)::int", tsqueries[n])
	}
	match := "(" + strings.Join(tsqueries, " || ") + ")"
	category := ""
	if opts.Category != "" {
		category = " AND d.category = " + q.arg(opts.Category)
	}

	for n, c := range i.db.collections {
		if n > 0 {
			q.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(q, `SELECT %s, %s, (%s) AS hits, ts_rank(c.tsv, %s) AS relevance
			FROM %s c
			JOIN %s_documents d ON d.path = c.file_path
			WHERE c.tsv @@ %s%s`,
			documentColumns, i.db.chunkColumns(), strings.Join(hits, " + "), match, c, c, match, category)
	}
	q.WriteString(" ORDER BY hits DESC, relevance DESC, path, idx LIMIT " + q.arg(docindex.ClampLimit(opts.Limit, 0)))

	rows, err := i.db.db.QueryContext(ctx, q.String(), q.args...)
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

// SearchVector ranks embedded chunks by cosine similarity using the
// pgvector distance operator.
func (i *ChunkIndex) SearchVector(ctx context.Context, embedding []float32, opts docindex.SearchOptions) ([]*docindex.SearchResult, error) {
	if !i.db.vector {
		return nil, docindex.Errorf(docindex.ENOTIMPLEMENTED, "vector search requires the pgvector extension")
	}
	if len(embedding) == 0 {
		return nil, docindex.Errorf(docindex.EINVALID, "query embedding required")
	}
	if len(embedding) != i.db.dim {
		return nil, docindex.Errorf(docindex.EINVALID, "query embedding has %d dimensions, index has %d", len(embedding), i.db.dim)
	}
	literal, err := encodeVectorLiteral(embedding)
	if err != nil {
		return nil, err
	}

	q := &query{}
	vec := q.arg(literal)
	category := ""
	if opts.Category != "" {
		category = " AND d.category = " + q.arg(opts.Category)
	}
	for n, c := range i.db.collections {
		if n > 0 {
			q.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(q, `SELECT %s, %s, 1 - (c.embedding <=> %s::vector) AS similarity
			FROM %s c
			JOIN %s_documents d ON d.path = c.file_path
			WHERE c.embedding IS NOT NULL%s`,
			documentColumns, i.db.chunkColumns(), vec, c, c, category)
	}
	q.WriteString(" ORDER BY similarity DESC, path, idx LIMIT " + q.arg(docindex.ClampLimit(opts.Limit, 0)))

	rows, err := i.db.db.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, storageError("vector search", err)
	}
	defer rows.Close()

	results := []*docindex.SearchResult{}
	for rows.Next() {
		var similarity float64
		r, err := scanResult(rows, &similarity)
		if err != nil {
			return nil, storageError("scan vector result", err)
		}
		r.Score = similarity
		r.VectorRank = len(results) + 1
		results = append(results, r)
	}
	return results, storageError("vector search", rows.Err())
}

// VectorSearchEnabled reports whether pgvector was available at open.
func (i *ChunkIndex) VectorSearchEnabled() bool {
	return i.db.vector
}

// PendingEmbeddings returns up to limit chunks without an embedding,
// ordered by path and index. A limit of zero returns all of them. Without
// pgvector every chunk is pending.
func (i *ChunkIndex) PendingEmbeddings(ctx context.Context, limit int) ([]*docindex.Chunk, error) {
	where := ""
	if i.db.vector {
		where = " WHERE c.embedding IS NULL"
	}
	q := &query{}
	for n, c := range i.db.collections {
		if n > 0 {
			q.WriteString(" UNION ALL ")
		}
		fmt.Fprintf(q, "SELECT %s FROM %s c%s", i.db.chunkColumns(), c, where)
	}
	q.WriteString(" ORDER BY file_path, idx")
	q.paginate(limit, 0)

	rows, err := i.db.db.QueryContext(ctx, q.String(), q.args...)
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
	if !i.db.vector {
		return docindex.Errorf(docindex.ENOTIMPLEMENTED, "storing embeddings requires the pgvector extension")
	}
	literals := make([]string, len(chunks))
	for n, ch := range chunks {
		if len(ch.Embedding) == 0 {
			return docindex.Errorf(docindex.EINVALID, "chunk %s#%d has no embedding", ch.Path, ch.Index)
		}
		literals[n], _ = encodeVectorLiteral(ch.Embedding)
	}

	tx, err := i.db.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin set embeddings", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range i.db.collections {
		stmt := fmt.Sprintf(`UPDATE %s SET embedding = $1::vector WHERE file_path = $2 AND chunk_index = $3`, c)
		for n, ch := range chunks {
			if _, err := tx.ExecContext(ctx, stmt, literals[n], ch.Path, ch.Index); err != nil {
				return storageError("set embedding", err)
			}
		}
	}
	return storageError("commit set embeddings", tx.Commit())
}
