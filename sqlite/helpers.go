package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// timeFormat is the stored timestamp layout. It sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// parseTime parses a stored timestamp.
// Returns an error if parsing fails with a descriptive message including the field name.
func parseTime(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses to a query builder if values are > 0.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 || offset > 0 {
		if limit <= 0 {
			limit = -1
		}
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
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

// encodeVector stores a vector as little-endian float32 values.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// cosine returns the cosine similarity of a and b, or 0 when either has
// zero length or their sizes differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// quoteTerm makes a term safe to use as an FTS5 string.
func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// documentColumns selects the documents columns scanned by scanDocument.
// The alias d must refer to a documents table.
const documentColumns = "d.path, d.title, d.category, d.audience, d.tags, d.content_hash, d.created_at, d.updated_at"

type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans documentColumns plus any extra destinations.
func scanDocument(row scanner, extra ...any) (*docindex.Document, error) {
	var doc docindex.Document
	var tags, createdAt, updatedAt string
	dest := append([]any{&doc.Path, &doc.Title, &doc.Category, &doc.Audience, &tags, &doc.ContentHash, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	doc.Tags = decodeTags(tags)
	var err error
	if doc.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &doc, nil
}

// storageError wraps a database failure unless it is already an
// application error.
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
	return docindex.Errorf(docindex.ESTORAGE, "%s: %v", op, err)
}
