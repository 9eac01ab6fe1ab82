package docindex

import (
	"regexp"
	"time"
)

// Storage engines.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Embedding providers. "custom" is any OpenAI-compatible endpoint.
const (
	EmbedOpenAI = "openai"
	EmbedOllama = "ollama"
	EmbedCustom = "custom"
	EmbedGemini = "gemini"
)

var identifierRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)

// ValidIdentifier reports whether s is safe to interpolate into SQL as a
// table name, optionally schema-qualified.
func ValidIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}

// Duration is a time.Duration read from text such as "200ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return Errorf(ECONFIG, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete runtime configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Search  SearchConfig  `toml:"search"`
	Embed   EmbedConfig   `toml:"embed"`
	Crawl   CrawlConfig   `toml:"crawl"`
}

// StorageConfig selects and configures the storage engine.
type StorageConfig struct {
	Backend     string   `toml:"backend"`
	SQLitePath  string   `toml:"sqlite_path"`
	PostgresDSN string   `toml:"postgres_dsn"`
	Collections []string `toml:"collections"`
	LinksTable  string   `toml:"links_table"`
	PoolMin     int      `toml:"pool_min"`
	PoolMax     int      `toml:"pool_max"`
	ChunkSize   int      `toml:"chunk_size"`
}

// SearchConfig bounds search results.
type SearchConfig struct {
	LimitMax     int `toml:"limit_max"`
	PreviewChars int `toml:"preview_chars"`
}

// EmbedConfig configures the optional embedding provider.
type EmbedConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	Dim       int    `toml:"dim"`
	BatchSize int    `toml:"batch_size"`
}

// CrawlConfig holds crawl defaults.
type CrawlConfig struct {
	CachePath   string   `toml:"cache_path"`
	Concurrency int      `toml:"concurrency"`
	Delay       Duration `toml:"delay"`
	Timeout     Duration `toml:"timeout"`
	MaxURLs     int      `toml:"max_urls"`
	UserAgent   string   `toml:"user_agent"`
}

// DefaultConfig returns the built-in configuration. Paths are relative to
// dataDir, normally ~/.docindex.
func DefaultConfig(dataDir string) Config {
	return Config{
		Storage: StorageConfig{
			Backend:     BackendSQLite,
			SQLitePath:  dataDir + "/docindex.db",
			Collections: []string{"documentation_chunks"},
			LinksTable:  "documentation_links",
			PoolMin:     1,
			PoolMax:     3,
			ChunkSize:   DefaultChunkSize,
		},
		Search: SearchConfig{
			LimitMax:     MaxSearchLimit,
			PreviewChars: 200,
		},
		Embed: EmbedConfig{
			Dim:       384,
			BatchSize: 50,
		},
		Crawl: CrawlConfig{
			CachePath:   dataDir + "/crawl-cache.json",
			Concurrency: 5,
			Delay:       Duration{200 * time.Millisecond},
			Timeout:     Duration{30 * time.Second},
			MaxURLs:     DefaultMaxURLs,
			UserAgent:   "docindex/1.0",
		},
	}
}

// Validate returns an ECONFIG error describing the first invalid setting.
func (c *Config) Validate() error {
	s := c.Storage
	switch s.Backend {
	case BackendSQLite:
		if s.SQLitePath == "" {
			return Errorf(ECONFIG, "sqlite backend requires a database path")
		}
	case BackendPostgres:
		if s.PostgresDSN == "" {
			return Errorf(ECONFIG, "postgres backend requires a DSN")
		}
	default:
		return Errorf(ECONFIG, "backend must be %q or %q, got %q", BackendSQLite, BackendPostgres, s.Backend)
	}
	if len(s.Collections) == 0 {
		return Errorf(ECONFIG, "at least one collection is required")
	}
	for _, name := range append([]string{s.LinksTable}, s.Collections...) {
		if !ValidIdentifier(name) {
			return Errorf(ECONFIG, "invalid table identifier %q", name)
		}
	}
	if s.PoolMin < 1 || s.PoolMax < s.PoolMin {
		return Errorf(ECONFIG, "pool size must satisfy 1 <= min <= max, got %d/%d", s.PoolMin, s.PoolMax)
	}
	if s.ChunkSize < 500 {
		return Errorf(ECONFIG, "chunk size must be >= 500, got %d", s.ChunkSize)
	}

	if c.Search.LimitMax < 1 {
		return Errorf(ECONFIG, "search limit max must be >= 1, got %d", c.Search.LimitMax)
	}
	if c.Search.PreviewChars < 50 {
		return Errorf(ECONFIG, "preview chars must be >= 50, got %d", c.Search.PreviewChars)
	}

	switch c.Embed.Provider {
	case "", EmbedOpenAI, EmbedOllama, EmbedCustom, EmbedGemini:
	default:
		return Errorf(ECONFIG, "unknown embed provider %q", c.Embed.Provider)
	}
	if c.Embed.Provider == EmbedCustom && c.Embed.URL == "" {
		return Errorf(ECONFIG, "custom embed provider requires a URL")
	}
	if c.Embed.BatchSize < 1 {
		return Errorf(ECONFIG, "embed batch size must be >= 1, got %d", c.Embed.BatchSize)
	}

	if c.Crawl.Concurrency < 1 {
		return Errorf(ECONFIG, "crawl concurrency must be >= 1, got %d", c.Crawl.Concurrency)
	}
	if c.Crawl.Delay.Duration < 0 || c.Crawl.Timeout.Duration <= 0 {
		return Errorf(ECONFIG, "crawl delay must be >= 0 and timeout > 0")
	}
	return nil
}
