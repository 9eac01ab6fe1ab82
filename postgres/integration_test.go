//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/backendtest"
	"github.com/fwojciec/docindex/postgres"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a pgvector-enabled server and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "docindex",
				"POSTGRES_PASSWORD": "docindex",
				"POSTGRES_DB":       "docindex",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://docindex:docindex@%s:%s/docindex?sslmode=disable", host, port.Port())
}

func TestBackend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := startPostgres(t)

	// Each subtest gets its own tables on the shared server.
	var n atomic.Int64
	open := func(t *testing.T, collections ...string) docindex.Backend {
		id := n.Add(1)
		for i := range collections {
			collections[i] = fmt.Sprintf("%s_%d", collections[i], id)
		}
		db := postgres.NewDB(dsn,
			postgres.WithCollections(collections...),
			postgres.WithLinksTable(fmt.Sprintf("links_%d", id)),
			postgres.WithDimensions(backendtest.Dimensions),
		)
		require.NoError(t, db.Open(context.Background()))
		t.Cleanup(func() { db.Close() })
		require.True(t, db.VectorEnabled(), "pgvector image should provide the extension")
		return postgres.NewBackend(db)
	}

	t.Run("single collection", func(t *testing.T) {
		backendtest.Run(t, func(t *testing.T) docindex.Backend {
			return open(t, "chunks")
		})
	})

	t.Run("multiple collections", func(t *testing.T) {
		backendtest.Run(t, func(t *testing.T) docindex.Backend {
			return open(t, "live", "archive")
		})
	})

	t.Run("schema qualified tables", func(t *testing.T) {
		db := postgres.NewDB(dsn)
		require.NoError(t, db.Open(context.Background()))
		defer db.Close()

		backendtest.Run(t, func(t *testing.T) docindex.Backend {
			id := n.Add(1)
			schema := fmt.Sprintf("s%d", id)
			_, err := postgres.Exec(context.Background(), db, "CREATE SCHEMA "+schema)
			require.NoError(t, err)
			return open(t, strings.Join([]string{schema, "chunks"}, "."))
		})
	})
}
