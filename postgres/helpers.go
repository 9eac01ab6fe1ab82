package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/fwojciec/docindex"
	"github.com/lib/pq"
)

// query accumulates SQL text and numbered placeholders.
type query struct {
	strings.Builder
	args []any
}

// arg records v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// paginate appends LIMIT and OFFSET clauses for positive values.
func (q *query) paginate(limit, offset int) {
	if limit > 0 {
		q.WriteString(" LIMIT " + q.arg(limit))
	}
	if offset > 0 {
		q.WriteString(" OFFSET " + q.arg(offset))
	}
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	var tags []string
	_ = json.Unmarshal([]byte(s), &tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// encodeVectorLiteral renders a vector in pgvector's text format.
func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", docindex.Errorf(docindex.EINVALID, "vector must not be empty")
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// decodeVectorLiteral parses pgvector's text format. NULL decodes to nil.
func decodeVectorLiteral(lit sql.NullString) ([]float32, error) {
	if !lit.Valid {
		return nil, nil
	}
	s := strings.TrimSpace(lit.String)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, docindex.Errorf(docindex.EPARSE, "invalid vector literal %q", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		return []float32{}, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, docindex.Errorf(docindex.EPARSE, "invalid vector component %q", p)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// documentColumns selects the documents columns scanned by scanDocument.
const documentColumns = "d.path, d.title, d.category, d.audience, d.tags::text, d.content_hash, d.created_at, d.updated_at"

// chunkColumns selects the chunk columns scanned by scanChunk. Without the
// vector extension the embedding is always NULL.
func (db *DB) chunkColumns() string {
	embedding := "NULL::text"
	if db.vector {
		embedding = "c.embedding::text"
	}
	return "c.file_path, c.chunk_index AS idx, c.title AS chunk_title, c.section_path, c.content, " + embedding + " AS embedding"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner, extra ...any) (*docindex.Document, error) {
	var doc docindex.Document
	var tags string
	dest := append([]any{&doc.Path, &doc.Title, &doc.Category, &doc.Audience, &tags, &doc.ContentHash, &doc.CreatedAt, &doc.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	doc.Tags = decodeTags(tags)
	return &doc, nil
}

func scanChunk(row scanner, extra ...any) (*docindex.Chunk, error) {
	var ch docindex.Chunk
	var embedding sql.NullString
	dest := append([]any{&ch.Path, &ch.Index, &ch.Title, &ch.SectionPath, &ch.Content, &embedding}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	vec, err := decodeVectorLiteral(embedding)
	if err != nil {
		return nil, err
	}
	ch.Embedding = vec
	return &ch, nil
}

// scanResult scans documentColumns and chunkColumns plus any extra
// destinations.
func scanResult(row scanner, extra ...any) (*docindex.SearchResult, error) {
	var ch docindex.Chunk
	var embedding sql.NullString
	doc, err := scanDocument(row, append([]any{&ch.Path, &ch.Index, &ch.Title, &ch.SectionPath, &ch.Content, &embedding}, extra...)...)
	if err != nil {
		return nil, err
	}
	if ch.Embedding, err = decodeVectorLiteral(embedding); err != nil {
		return nil, err
	}
	return &docindex.SearchResult{Chunk: &ch, Document: doc}, nil
}

// storageError wraps a database failure unless it is already an
// application or context error.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if docindex.ErrorCode(err) != docindex.EINTERNAL {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return docindex.Errorf(docindex.ENOTFOUND, "%s: not found", op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return docindex.Errorf(docindex.ESTORAGE, "%s: %s (%s)", op, pqErr.Message, pqErr.Code.Name())
	}
	return docindex.Errorf(docindex.ESTORAGE, "%s: %v", op, err)
}
