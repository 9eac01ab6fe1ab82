package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/gemini"
	"github.com/fwojciec/docindex/goquery"
	"github.com/fwojciec/docindex/htmltomarkdown"
	dihttp "github.com/fwojciec/docindex/http"
	"github.com/fwojciec/docindex/ingest"
	"github.com/fwojciec/docindex/ollama"
	"github.com/fwojciec/docindex/openai"
	"github.com/fwojciec/docindex/postgres"
	"github.com/fwojciec/docindex/readability"
	"github.com/fwojciec/docindex/search"
	dislog "github.com/fwojciec/docindex/slog"
	"github.com/fwojciec/docindex/sqlite"
	"github.com/fwojciec/docindex/toml"
	"github.com/fwojciec/docindex/trafilatura"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Directory holding the default config, database and crawl cache.
	// Set before calling Run().
	DataDir string

	// Backend opened by Run.
	Backend docindex.Backend
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{DataDir: defaultDataDir()}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Backend != nil {
		return m.Backend.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docindex"),
		kong.Description("Index, crawl and search documentation."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
		kong.Vars{"config": filepath.Join(m.DataDir, "config.toml")},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docindex --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg := docindex.DefaultConfig(m.DataDir)
	if err := toml.LoadConfig(cli.Config, &cfg); err != nil {
		return err
	}
	cli.Globals.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Hint: check %s or the DOCINDEX_* environment variables\n", cli.Config)
		return err
	}
	deps.Config = cfg

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	deps.Logger = logger

	embedder, err := newEmbedder(ctx, cfg.Embed)
	if err != nil {
		return err
	}
	if embedder != nil {
		embedder = dislog.NewLoggingEmbedder(embedder, logger)
	}
	deps.Embedder = embedder

	backend, err := openBackend(ctx, cfg, m.DataDir)
	if err != nil {
		return err
	}
	m.Backend = backend
	defer m.Close()
	deps.Backend = dislog.NewLoggingBackend(backend, logger)

	svc := search.NewService(deps.Backend, embedder)
	svc.MaxLimit = cfg.Search.LimitMax
	svc.PreviewChars = cfg.Search.PreviewChars
	svc.Logger = logger
	deps.Search = dislog.NewLoggingSearchService(svc, logger)

	deps.Ingester = &ingest.Ingester{
		Documents: deps.Backend,
		Embedder:  embedder,
		ChunkSize: cfg.Storage.ChunkSize,
		Logger:    logger,
	}
	deps.Crawler = newCrawler(cfg, deps.Backend, embedder, logger)

	return kongCtx.Run(deps)
}

// openBackend opens the configured storage engine.
func openBackend(ctx context.Context, cfg docindex.Config, dataDir string) (docindex.Backend, error) {
	s := cfg.Storage
	switch s.Backend {
	case docindex.BackendPostgres:
		db := postgres.NewDB(s.PostgresDSN,
			postgres.WithCollections(s.Collections...),
			postgres.WithLinksTable(s.LinksTable),
			postgres.WithPool(s.PoolMin, s.PoolMax),
			postgres.WithDimensions(cfg.Embed.Dim),
		)
		if err := db.Open(ctx); err != nil {
			return nil, err
		}
		return postgres.NewBackend(db), nil
	default:
		if filepath.Dir(s.SQLitePath) == dataDir {
			_ = os.MkdirAll(dataDir, 0o755)
		}
		db := sqlite.NewDB(s.SQLitePath,
			sqlite.WithCollections(s.Collections...),
			sqlite.WithLinksTable(s.LinksTable),
		)
		if err := db.Open(); err != nil {
			return nil, err
		}
		return sqlite.NewBackend(db), nil
	}
}

// newEmbedder returns the configured embedding provider, or nil when
// none is configured.
func newEmbedder(ctx context.Context, cfg docindex.EmbedConfig) (docindex.Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case docindex.EmbedOllama, docindex.EmbedOpenAI, docindex.EmbedCustom:
		if cfg.Model == "" {
			return nil, docindex.Errorf(docindex.ECONFIG, "%s embed provider requires a model", cfg.Provider)
		}
	}

	switch cfg.Provider {
	case docindex.EmbedOllama:
		return ollama.NewEmbedder(cfg.URL, cfg.Model,
			ollama.WithDimensions(cfg.Dim),
			ollama.WithBatchSize(cfg.BatchSize),
		), nil
	case docindex.EmbedGemini:
		client, err := gemini.NewClient(ctx, cfg.APIKey, cfg.URL)
		if err != nil {
			return nil, err
		}
		opts := []gemini.Option{gemini.WithDimensions(cfg.Dim), gemini.WithBatchSize(cfg.BatchSize)}
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		return gemini.NewEmbedder(client, opts...), nil
	default:
		if cfg.Provider == docindex.EmbedOpenAI && cfg.APIKey == "" {
			return nil, docindex.Errorf(docindex.ECONFIG, "openai embed provider requires an API key")
		}
		return openai.NewEmbedder(cfg.URL, cfg.APIKey, cfg.Model,
			openai.WithDimensions(cfg.Dim),
			openai.WithBatchSize(cfg.BatchSize),
		), nil
	}
}

// newCrawler wires the guarded fetcher, discovery and extraction chain.
func newCrawler(cfg docindex.Config, docs docindex.DocumentService, embedder docindex.Embedder, logger *slog.Logger) *crawl.Crawler {
	c := cfg.Crawl
	guard := dihttp.NewGuard()
	opts := []dihttp.Option{
		dihttp.WithGuard(guard),
		dihttp.WithTimeout(c.Timeout.Duration),
		dihttp.WithUserAgent(c.UserAgent),
	}
	fetcher := dislog.NewLoggingFetcher(dihttp.NewFetcher(opts...), logger)

	var limiter docindex.DomainLimiter
	if c.Delay.Duration > 0 {
		limiter = crawl.NewDomainLimiter(float64(c.Concurrency)/c.Delay.Seconds(), c.Concurrency)
	}

	return &crawl.Crawler{
		Fetcher:   fetcher,
		Sitemaps:  dislog.NewLoggingSitemapService(dihttp.NewSitemapService(opts...), logger),
		Robots:    dihttp.NewRobotsService(fetcher, c.UserAgent),
		Guard:     guard,
		Extractor: docindex.ExtractorChain{trafilatura.NewExtractor(), readability.NewExtractor()},
		Converter: htmltomarkdown.NewConverter(),
		Links:     goquery.NewLinkExtractor(),
		Documents: docs,
		Embedder:  embedder,
		Limiter:   limiter,

		Concurrency: c.Concurrency,
		Delay:       c.Delay.Duration,
		ChunkSize:   cfg.Storage.ChunkSize,
		Logger:      logger,
	}
}

func defaultDataDir() string {
	if dir := os.Getenv("DOCINDEX_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docindex"
	}
	return filepath.Join(home, ".docindex")
}
