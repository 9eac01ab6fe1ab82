package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/backendtest"
	"github.com/fwojciec/docindex/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T, opts ...sqlite.Option) *sqlite.DB {
	t.Helper()
	db := sqlite.NewDB(":memory:", opts...)
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBackend(t *testing.T) {
	t.Parallel()

	backendtest.Run(t, func(t *testing.T) docindex.Backend {
		return sqlite.NewBackend(openDB(t))
	})
}

func TestBackend_MultipleCollections(t *testing.T) {
	t.Parallel()

	backendtest.Run(t, func(t *testing.T) docindex.Backend {
		return sqlite.NewBackend(openDB(t, sqlite.WithCollections("primary_chunks", "archive_chunks")))
	})
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := openDB(t)
		ctx := context.Background()

		for _, table := range []string{
			sqlite.DefaultCollection,
			sqlite.DefaultCollection + "_documents",
			sqlite.DefaultCollection + "_fts",
			sqlite.DefaultLinksTable,
		} {
			var n int
			err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
			require.NoError(t, err, table)
		}
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		require.NoError(t, db.Open())
		ctx := context.Background()
		doc := &docindex.Document{Path: "kept.md", Title: "Kept"}
		require.NoError(t, sqlite.NewDocumentService(db).UpsertDocument(ctx, doc, []*docindex.Chunk{{Path: "kept.md", Content: "body"}}))
		require.NoError(t, db.Close())

		again := sqlite.NewDB(dbPath)
		require.NoError(t, again.Open())
		defer again.Close()
		got, err := sqlite.NewDocumentService(again).FindDocument(ctx, "kept.md")
		require.NoError(t, err)
		assert.Equal(t, "Kept", got.Title)
	})

	t.Run("rejects invalid identifiers", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			opt  sqlite.Option
		}{
			{"injection in collection", sqlite.WithCollections("chunks; DROP TABLE x")},
			{"leading digit", sqlite.WithCollections("1chunks")},
			{"schema qualified", sqlite.WithCollections("docs.chunks")},
			{"no collections", sqlite.WithCollections()},
			{"links table", sqlite.WithLinksTable("links-table")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				db := sqlite.NewDB(":memory:", tt.opt)
				err := db.Open()
				assert.Equal(t, docindex.ECONFIG, docindex.ErrorCode(err))
			})
		}
	})
}

func TestDocumentService_SecondaryCollection(t *testing.T) {
	t.Parallel()

	db := openDB(t, sqlite.WithCollections("live", "legacy"))
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO legacy_documents (path, title, category, created_at, updated_at)
		VALUES ('old.md', 'Old', 'archive', '2024-01-02T03:04:05.000000000Z', '2024-01-02T03:04:05.000000000Z')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO legacy (file_path, chunk_index, title, content)
		VALUES ('old.md', 0, 'Old', 'Legacy replication notes')`)
	require.NoError(t, err)

	backend := sqlite.NewBackend(db)
	require.NoError(t, backend.UpsertDocument(ctx, &docindex.Document{Path: "new.md", Category: "live"},
		[]*docindex.Chunk{{Path: "new.md", Content: "Fresh replication guide"}}))

	t.Run("reads span collections", func(t *testing.T) {
		docs, err := backend.FindDocuments(ctx, docindex.DocumentFilter{})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "new.md", docs[0].Path)
		assert.Equal(t, "old.md", docs[1].Path)
		assert.Equal(t, 1, docs[1].ChunkCount)

		results, err := backend.SearchKeyword(ctx, "replication", docindex.SearchOptions{Limit: 10})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("writes go to the first collection", func(t *testing.T) {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM live_documents WHERE path = 'new.md'").Scan(&n))
		assert.Equal(t, 1, n)
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM legacy_documents WHERE path = 'new.md'").Scan(&n))
		assert.Equal(t, 0, n)
	})

	t.Run("delete reaches every collection", func(t *testing.T) {
		require.NoError(t, backend.DeleteDocument(ctx, "old.md"))
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM legacy").Scan(&n))
		assert.Equal(t, 0, n)
	})
}

func TestChunkIndex_SearchKeyword(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	ctx := context.Background()
	docs := sqlite.NewDocumentService(db)
	require.NoError(t, docs.UpsertDocument(ctx, &docindex.Document{Path: "a.md"},
		[]*docindex.Chunk{{Path: "a.md", Title: "Replicas", Content: "Followers replicate the leader log."}}))

	index := sqlite.NewChunkIndex(db)

	t.Run("stems terms", func(t *testing.T) {
		results, err := index.SearchKeyword(ctx, "replicating", docindex.SearchOptions{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a.md", results[0].Chunk.Path)
	})

	t.Run("matches titles", func(t *testing.T) {
		results, err := index.SearchKeyword(ctx, "replica", docindex.SearchOptions{})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("stays in sync after replace", func(t *testing.T) {
		require.NoError(t, docs.UpsertDocument(ctx, &docindex.Document{Path: "b.md"},
			[]*docindex.Chunk{{Path: "b.md", Content: "Snapshots compact the log."}}))
		require.NoError(t, docs.UpsertDocument(ctx, &docindex.Document{Path: "b.md"},
			[]*docindex.Chunk{{Path: "b.md", Content: "Membership changes."}}))

		results, err := index.SearchKeyword(ctx, "snapshots", docindex.SearchOptions{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestChunkIndex_SearchVector_SkipsOtherDimensions(t *testing.T) {
	t.Parallel()

	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, sqlite.NewDocumentService(db).UpsertDocument(ctx, &docindex.Document{Path: "a.md"}, []*docindex.Chunk{
		{Path: "a.md", Index: 0, Content: "three", Embedding: []float32{1, 0, 0}},
		{Path: "a.md", Index: 1, Content: "two", Embedding: []float32{1, 0}},
	}))

	results, err := sqlite.NewChunkIndex(db).SearchVector(ctx, []float32{1, 0, 0}, docindex.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Chunk.Index)
}
