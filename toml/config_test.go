package toml_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("overrides defaults", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
[storage]
backend = "postgres"
postgres_dsn = "postgres://localhost/docs"
collections = ["docs_a", "docs_b"]

[embed]
provider = "ollama"
model = "nomic-embed-text"

[crawl]
delay = "1s"
max_urls = 100
`)
		cfg := docindex.DefaultConfig("/data")
		require.NoError(t, toml.LoadConfig(path, &cfg))

		assert.Equal(t, docindex.BackendPostgres, cfg.Storage.Backend)
		assert.Equal(t, []string{"docs_a", "docs_b"}, cfg.Storage.Collections)
		assert.Equal(t, "documentation_links", cfg.Storage.LinksTable)
		assert.Equal(t, "ollama", cfg.Embed.Provider)
		assert.Equal(t, time.Second, cfg.Crawl.Delay.Duration)
		assert.Equal(t, 100, cfg.Crawl.MaxURLs)
		assert.Equal(t, 5, cfg.Crawl.Concurrency)
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing file keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig("/data")
		require.NoError(t, toml.LoadConfig(filepath.Join(t.TempDir(), "none.toml"), &cfg))
		assert.Equal(t, docindex.DefaultConfig("/data"), cfg)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig("/data")
		err := toml.LoadConfig(writeConfig(t, "[storage]\nbackedn = \"sqlite\"\n"), &cfg)
		assert.Equal(t, docindex.ECONFIG, docindex.ErrorCode(err))
	})

	t.Run("rejects malformed files", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig("/data")
		err := toml.LoadConfig(writeConfig(t, "[storage\n"), &cfg)
		assert.Equal(t, docindex.ECONFIG, docindex.ErrorCode(err))
	})

	t.Run("rejects bad durations", func(t *testing.T) {
		t.Parallel()

		cfg := docindex.DefaultConfig("/data")
		err := toml.LoadConfig(writeConfig(t, "[crawl]\ndelay = \"soon\"\n"), &cfg)
		assert.Equal(t, docindex.ECONFIG, docindex.ErrorCode(err))
	})
}
