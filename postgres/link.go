package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
)

var _ docindex.LinkService = (*LinkService)(nil)

// LinkService implements docindex.LinkService using PostgreSQL.
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
	var q query
	p := q.arg(path)
	filter := ""
	if relation != "" {
		filter = " AND relation_type = " + q.arg(relation)
	}
	fmt.Fprintf(&q, `SELECT target_path AS path, relation_type, 'outgoing' AS direction FROM %[1]s WHERE source_path = %[2]s%[3]s
		UNION ALL
		SELECT source_path, relation_type, 'incoming' FROM %[1]s WHERE target_path = %[2]s%[3]s
		ORDER BY direction DESC, path, relation_type`, s.db.linksTable, p, filter)

	rows, err := s.db.db.QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, storageError("find related", err)
	}
	defer rows.Close()

	related := []*docindex.Related{}
	for rows.Next() {
		var r docindex.Related
		var direction string
		if err := rows.Scan(&r.Path, &r.Relation, &direction); err != nil {
			return nil, storageError("scan related", err)
		}
		r.Direction = docindex.Direction(direction)
		related = append(related, &r)
	}
	return related, storageError("find related", rows.Err())
}

// FindLinks returns links matching the filter ordered by source, target
// and relation.
func (s *LinkService) FindLinks(ctx context.Context, filter docindex.LinkFilter) ([]*docindex.Link, error) {
	var q query
	where := []string{"TRUE"}
	if v := filter.Source; v != nil {
		where = append(where, "source_path = "+q.arg(*v))
	}
	if v := filter.Target; v != nil {
		where = append(where, "target_path = "+q.arg(*v))
	}
	if v := filter.Relation; v != nil {
		where = append(where, "relation_type = "+q.arg(*v))
	}
	fmt.Fprintf(&q, `SELECT source_path, target_path, relation_type FROM %s WHERE %s ORDER BY source_path, target_path, relation_type`,
		s.db.linksTable, strings.Join(where, " AND "))
	q.paginate(filter.Limit, 0)

	rows, err := s.db.db.QueryContext(ctx, q.String(), q.args...)
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
