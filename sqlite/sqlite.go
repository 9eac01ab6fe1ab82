// Package sqlite provides the embedded storage engine. Keyword search uses
// FTS5 and vector search ranks stored embeddings by cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Default table names.
const (
	DefaultCollection = "documentation_chunks"
	DefaultLinksTable = "documentation_links"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string

	// Chunk tables. Reads span all of them; writes go to the first.
	collections []string
	linksTable  string
}

// Option configures a DB.
type Option func(*DB)

// WithCollections sets the chunk tables. Each collection C also owns the
// tables C_documents and C_fts.
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

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string, opts ...Option) *DB {
	db := &DB{
		path:        path,
		collections: []string{DefaultCollection},
		linksTable:  DefaultLinksTable,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open validates the table names, opens the database connection and
// creates the schema if needed.
func (db *DB) Open() error {
	if len(db.collections) == 0 {
		return docindex.Errorf(docindex.ECONFIG, "at least one collection is required")
	}
	for _, name := range append([]string{db.linksTable}, db.collections...) {
		if !docindex.ValidIdentifier(name) {
			return docindex.Errorf(docindex.ECONFIG, "invalid table identifier %q", name)
		}
		if strings.Contains(name, ".") {
			return docindex.Errorf(docindex.ECONFIG, "schema-qualified table %q is not supported by sqlite", name)
		}
	}

	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return docindex.Errorf(docindex.ESTORAGE, "open database: %v", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return docindex.Errorf(docindex.ESTORAGE, "connect to database: %v", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"}
	// WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return docindex.Errorf(docindex.ESTORAGE, "%s: %v", p, err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return docindex.Errorf(docindex.ESTORAGE, "create schema: %v", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// Collections returns the chunk tables in read order.
func (db *DB) Collections() []string {
	return db.collections
}

// primary is the collection that receives writes.
func (db *DB) primary() string {
	return db.collections[0]
}

// createSchema creates the tables, full-text indexes and triggers of every
// collection if they don't exist.
func (db *DB) createSchema() error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_path TEXT NOT NULL,
			target_path TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (source_path, target_path, relation_type)
		)`, db.linksTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_source ON %[1]s (source_path)`, db.linksTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_target ON %[1]s (target_path)`, db.linksTable),
	}
	for _, c := range db.collections {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s_documents (
				path TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				audience TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				content_hash TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`, c),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_documents_category ON %[1]s_documents (category)`, c),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_path TEXT NOT NULL REFERENCES %[1]s_documents (path) ON DELETE CASCADE,
				chunk_index INTEGER NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				section_path TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL,
				embedding BLOB,
				UNIQUE (file_path, chunk_index)
			)`, c),
			fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s_fts USING fts5(
				title,
				content,
				content='%[1]s',
				content_rowid='id',
				tokenize='porter unicode61'
			)`, c),
			fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[1]s BEGIN
				INSERT INTO %[1]s_fts (rowid, title, content) VALUES (new.id, new.title, new.content);
			END`, c),
			fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_ad AFTER DELETE ON %[1]s BEGIN
				INSERT INTO %[1]s_fts (%[1]s_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
			END`, c),
			fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_au AFTER UPDATE OF title, content ON %[1]s BEGIN
				INSERT INTO %[1]s_fts (%[1]s_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
				INSERT INTO %[1]s_fts (rowid, title, content) VALUES (new.id, new.title, new.content);
			END`, c),
		)
	}
	for _, s := range stmts {
		if _, err := db.db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
