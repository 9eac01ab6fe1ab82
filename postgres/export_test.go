package postgres

import (
	"context"
	"database/sql"
)

var (
	EncodeVectorLiteral = encodeVectorLiteral
	DecodeVectorLiteral = decodeVectorLiteral
)

// Exec runs a raw statement on db.
func Exec(ctx context.Context, db *DB, stmt string) (sql.Result, error) {
	return db.db.ExecContext(ctx, stmt)
}
