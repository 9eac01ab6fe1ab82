package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/docindex"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Config   docindex.Config
	Backend  docindex.Backend
	Search   docindex.SearchService
	Ingester docindex.IngestService
	Crawler  docindex.Crawler
	Embedder docindex.Embedder
}

// Globals are flags shared by every command. Set flags override the
// config file.
type Globals struct {
	Config  string `help:"Config file path." default:"${config}" env:"DOCINDEX_CONFIG" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging." env:"DOCINDEX_VERBOSE"`

	Backend     string   `help:"Storage backend (sqlite or postgres)." env:"DOCINDEX_BACKEND"`
	DB          string   `name:"db" help:"SQLite database path." env:"DOCINDEX_DB" type:"path"`
	PostgresDSN string   `name:"postgres-dsn" help:"PostgreSQL connection string." env:"DOCINDEX_POSTGRES_DSN"`
	Collections []string `help:"Chunk collections; the first receives writes." env:"DOCINDEX_COLLECTIONS"`

	EmbedProvider string `help:"Embedding provider (openai, ollama, custom, gemini)." env:"DOCINDEX_EMBED_PROVIDER"`
	EmbedModel    string `help:"Embedding model." env:"DOCINDEX_EMBED_MODEL"`
	EmbedURL      string `name:"embed-url" help:"Embedding endpoint base URL." env:"DOCINDEX_EMBED_URL"`
	EmbedAPIKey   string `name:"embed-api-key" help:"Embedding API key." env:"DOCINDEX_EMBED_API_KEY"`
	EmbedDim      int    `help:"Embedding dimensions." env:"DOCINDEX_EMBED_DIM"`
}

// apply copies every set flag over cfg.
func (g *Globals) apply(cfg *docindex.Config) {
	if g.Backend != "" {
		cfg.Storage.Backend = g.Backend
	}
	if g.DB != "" {
		cfg.Storage.SQLitePath = g.DB
	}
	if g.PostgresDSN != "" {
		cfg.Storage.PostgresDSN = g.PostgresDSN
	}
	if len(g.Collections) > 0 {
		cfg.Storage.Collections = g.Collections
	}
	if g.EmbedProvider != "" {
		cfg.Embed.Provider = g.EmbedProvider
	}
	if g.EmbedModel != "" {
		cfg.Embed.Model = g.EmbedModel
	}
	if g.EmbedURL != "" {
		cfg.Embed.URL = g.EmbedURL
	}
	if g.EmbedAPIKey != "" {
		cfg.Embed.APIKey = g.EmbedAPIKey
	}
	if g.EmbedDim > 0 {
		cfg.Embed.Dim = g.EmbedDim
	}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Globals

	Ingest     IngestCmd     `cmd:"" help:"Index local documentation files"`
	Diff       DiffCmd       `cmd:"" help:"Compare local files with the index"`
	Crawl      CrawlCmd      `cmd:"" help:"Crawl and index a documentation site"`
	Search     SearchCmd     `cmd:"" help:"Search indexed documentation"`
	Get        GetCmd        `cmd:"" help:"Show a stored document"`
	Delete     DeleteCmd     `cmd:"" help:"Delete a document, its chunks and links"`
	Update     UpdateCmd     `cmd:"" help:"Update document metadata"`
	Related    RelatedCmd    `cmd:"" help:"List documents linked to or from a document"`
	List       ListCmd       `cmd:"" help:"List stored documents"`
	Categories CategoriesCmd `cmd:"" help:"List categories with document counts"`
	Stats      StatsCmd      `cmd:"" help:"Show index statistics"`
	Embed      EmbedCmd      `cmd:"" help:"Embed chunks that have no embedding"`
}

// IngestCmd is the "ingest" subcommand.
type IngestCmd struct {
	Path   string `arg:"" help:"File or directory to ingest" type:"path"`
	Force  bool   `short:"f" help:"Re-index unchanged files"`
	DryRun bool   `name:"dry-run" help:"Report what would be indexed without writing"`
	Embed  bool   `help:"Embed chunks while indexing"`
}

// DiffCmd is the "diff" subcommand.
type DiffCmd struct {
	Path string `arg:"" help:"File or directory to compare" type:"path"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string   `arg:"" help:"Root URL to crawl"`
	Mode        string   `enum:"bfs,sitemap" default:"bfs" help:"URL discovery mode (bfs or sitemap)"`
	Depth       int      `short:"d" default:"1" help:"Maximum link depth for bfs mode"`
	MaxURLs     int      `name:"max-urls" help:"Maximum URLs to discover (default from config)"`
	Include     []string `short:"i" help:"Only crawl paths matching these globs (repeatable)"`
	Exclude     []string `short:"x" help:"Skip paths matching these globs (repeatable)"`
	Force       bool     `short:"f" help:"Ignore cached validators and content hashes"`
	DryRun      bool     `name:"dry-run" help:"Discover URLs without indexing"`
	Embed       bool     `help:"Embed chunks while indexing"`
	Concurrency int      `short:"c" help:"Concurrent fetch workers (default from config)"`
	Cache       string   `help:"Crawl cache file (default from config)" type:"path"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    string `arg:"" help:"Search query"`
	Limit    int    `short:"n" default:"5" help:"Maximum number of results"`
	Category string `help:"Restrict results to a category"`
	JSON     bool   `name:"json" help:"Print results as JSON"`
}

// GetCmd is the "get" subcommand.
type GetCmd struct {
	Path string `arg:"" help:"Document path"`
	JSON bool   `name:"json" help:"Print the document as JSON"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Path  string `arg:"" help:"Document path"`
	Force bool   `help:"Confirm deletion"`
}

// UpdateCmd is the "update" subcommand. Unset flags leave fields unchanged.
type UpdateCmd struct {
	Path     string   `arg:"" help:"Document path"`
	Title    string   `help:"New title"`
	Category string   `help:"New category"`
	Audience string   `help:"New audience"`
	Tags     []string `help:"Replace tags (comma separated)"`
}

// RelatedCmd is the "related" subcommand.
type RelatedCmd struct {
	Path     string `arg:"" help:"Document path"`
	Relation string `help:"Only follow links of this relation"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Category string `help:"Only list documents in this category"`
	Limit    int    `short:"n" help:"Maximum number of documents"`
	Offset   int    `help:"Number of documents to skip"`
}

// CategoriesCmd is the "categories" subcommand.
type CategoriesCmd struct{}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	JSON bool `name:"json" help:"Print statistics as JSON"`
}

// EmbedCmd is the "embed" subcommand.
type EmbedCmd struct {
	Max int `help:"Stop after embedding this many chunks (0 embeds all)"`
}
