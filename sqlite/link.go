package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.LinkService = (*LinkService)(nil)

// LinkService implements docindex.LinkService using SQLite.
type LinkService struct {
	db *DB
}

// NewLinkService creates a new LinkService.
func NewLinkService(db *DB) *LinkService {
	return &LinkService{db: db}
}

// FindRelated returns the documents linked from and to path. Outgoing
// edges come first, each direction ordered by path.
func (s *LinkService) FindRelated(ctx context.Context, path string, relation string) ([]*docindex.Related, error) {
	out := fmt.Sprintf(`SELECT target_path, relation_type, 'outgoing' AS direction FROM %s WHERE source_path = ?`, s.db.linksTable)
	in := fmt.Sprintf(`SELECT source_path, relation_type, 'incoming' AS direction FROM %s WHERE target_path = ?`, s.db.linksTable)
	args := []any{path}
	if relation != "" {
		out += " AND relation_type = ?"
		args = append(args, relation)
	}
	args = append(args, path)
	if relation != "" {
		in += " AND relation_type = ?"
		args = append(args, relation)
	}

	rows, err := s.db.QueryContext(ctx, out+" UNION ALL "+in+" ORDER BY direction DESC, 1, 2", args...)
	if err != nil {
		return nil, storageError("find related", err)
	}
	defer rows.Close()

	related := []*docindex.Related{}
	for rows.Next() {
		var r docindex.Related
		if err := rows.Scan(&r.Path, &r.Relation, &r.Direction); err != nil {
			return nil, storageError("scan related", err)
		}
		related = append(related, &r)
	}
	return related, storageError("find related", rows.Err())
}

// FindLinks returns links matching the filter ordered by source, target
// and relation.
func (s *LinkService) FindLinks(ctx context.Context, filter docindex.LinkFilter) ([]*docindex.Link, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := filter.Source; v != nil {
		where, args = append(where, "source_path = ?"), append(args, *v)
	}
	if v := filter.Target; v != nil {
		where, args = append(where, "target_path = ?"), append(args, *v)
	}
	if v := filter.Relation; v != nil {
		where, args = append(where, "relation_type = ?"), append(args, *v)
	}

	var query strings.Builder
	fmt.Fprintf(&query, `SELECT source_path, target_path, relation_type FROM %s WHERE %s ORDER BY source_path, target_path, relation_type`,
		s.db.linksTable, strings.Join(where, " AND "))
	appendPagination(&query, &args, filter.Limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, storageError("find links", err)
	}
	defer rows.Close()

	links := []*docindex.Link{}
	for rows.Next() {
		var l docindex.Link
		if err := rows.Scan(&l.Source, &l.Target, &l.Relation); err != nil {
			return nil, storageError("scan link", err)
		}
		links = append(links, &l)
	}
	return links, storageError("find links", rows.Err())
}
