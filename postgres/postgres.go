// Package postgres provides the client-server storage engine. Keyword
// search uses a weighted tsvector column and vector search uses pgvector
// when the extension is available.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
	_ "github.com/lib/pq"
)

// Defaults.
const (
	DefaultCollection = "documentation_chunks"
	DefaultLinksTable = "documentation_links"
	DefaultDimensions = 384
)

// DB represents a pooled PostgreSQL connection.
type DB struct {
	db  *sql.DB
	dsn string

	// Chunk tables. Reads span all of them; writes go to the first.
	collections []string
	linksTable  string

	dim     int
	poolMin int
	poolMax int

	// Set at open when the vector extension could be enabled.
	vector bool
}

// Option configures a DB.
type Option func(*DB)

// WithCollections sets the chunk tables. Names may be schema qualified.
// Each collection C also owns the table C_documents.
func WithCollections(names ...string) Option {
	return func(db *DB) {
		db.collections = names
	}
}

// WithLinksTable sets the table holding links between documents.
func WithLinksTable(name string) Option {
	return func(db *DB) {
		db.linksTable = name
	}
}

// WithDimensions sets the size of the embedding column.
func WithDimensions(n int) Option {
	return func(db *DB) {
		db.dim = n
	}
}

// WithPool bounds the connection pool.
func WithPool(min, max int) Option {
	return func(db *DB) {
		db.poolMin, db.poolMax = min, max
	}
}

// NewDB creates a DB for the given connection string.
func NewDB(dsn string, opts ...Option) *DB {
	db := &DB{
		dsn:         dsn,
		collections: []string{DefaultCollection},
		linksTable:  DefaultLinksTable,
		dim:         DefaultDimensions,
		poolMin:     1,
		poolMax:     3,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open validates the configuration, connects and creates the schema.
func (db *DB) Open(ctx context.Context) error {
	if err := db.validate(); err != nil {
		return err
	}
	if db.dsn == "" {
		return docindex.Errorf(docindex.ECONFIG, "postgres DSN required")
	}
	conn, err := sql.Open("postgres", db.dsn)
	if err != nil {
		return docindex.Errorf(docindex.ECONFIG, "open database: %v", err)
	}
	if err := db.Attach(ctx, conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// Attach uses an already opened connection pool and creates the schema.
func (db *DB) Attach(ctx context.Context, conn *sql.DB) error {
	if err := db.validate(); err != nil {
		return err
	}
	conn.SetMaxOpenConns(db.poolMax)
	conn.SetMaxIdleConns(db.poolMin)
	if err := conn.PingContext(ctx); err != nil {
		return storageError("connect to database", err)
	}
	db.db = conn

	if _, err := conn.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err == nil {
		db.vector = true
	} else if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, stmt := range db.schema() {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return storageError("create schema", err)
		}
	}
	return nil
}

func (db *DB) validate() error {
	if len(db.collections) == 0 {
		return docindex.Errorf(docindex.ECONFIG, "at least one collection is required")
	}
	for _, name := range append([]string{db.linksTable}, db.collections...) {
		if !docindex.ValidIdentifier(name) {
			return docindex.Errorf(docindex.ECONFIG, "invalid table identifier %q", name)
		}
	}
	if db.dim <= 0 {
		return docindex.Errorf(docindex.ECONFIG, "embedding dimensions must be positive")
	}
	if db.poolMax < 1 || db.poolMin < 0 || db.poolMin > db.poolMax {
		return docindex.Errorf(docindex.ECONFIG, "invalid pool bounds %d/%d", db.poolMin, db.poolMax)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// VectorEnabled reports whether the vector extension is in use.
func (db *DB) VectorEnabled() bool {
	return db.vector
}

func (db *DB) primary() string {
	return db.collections[0]
}

// indexName derives an unqualified index name from a possibly qualified
// table name.
func indexName(table, suffix string) string {
	return strings.ReplaceAll(table, ".", "_") + "_" + suffix
}

// schema returns the DDL for the links table and every collection.
func (db *DB) schema() []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source_path TEXT NOT NULL,
			target_path TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (source_path, target_path, relation_type)
		)`, db.linksTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (source_path)`, indexName(db.linksTable, "source"), db.linksTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (target_path)`, indexName(db.linksTable, "target"), db.linksTable),
	}
	for _, c := range db.collections {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s_documents (
				path TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				audience TEXT NOT NULL DEFAULT '',
				tags JSONB NOT NULL DEFAULT '[]',
				content_hash TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`, c),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s_documents (category)`, indexName(c, "documents_category"), c),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
				id BIGSERIAL PRIMARY KEY,
				file_path TEXT NOT NULL REFERENCES %[1]s_documents (path) ON DELETE CASCADE,
				chunk_index INTEGER NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				section_path TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL,
				tsv TSVECTOR GENERATED ALWAYS AS (
					setweight(to_tsvector('english', title), 'A') ||
					setweight(to_tsvector('english', content), 'B')
				) STORED,
				UNIQUE (file_path, chunk_index)
			)`, c),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (tsv)`, indexName(c, "tsv"), c),
		)
		if db.vector {
			stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS embedding vector(%d)`, c, db.dim))
		}
	}
	return stmts
}
