// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// DefaultURL is the address of a local Ollama server.
const DefaultURL = "http://localhost:11434"

var _ docindex.Embedder = (*Embedder)(nil)

// Embedder implements docindex.Embedder over POST {url}/api/embed.
type Embedder struct {
	client    *http.Client
	url       string
	model     string
	dim       int
	batchSize int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedder) {
		e.client = c
	}
}

// WithBatchSize sets how many texts are sent per request.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		e.batchSize = n
	}
}

// WithDimensions sets the reported vector size.
func WithDimensions(n int) Option {
	return func(e *Embedder) {
		e.dim = n
	}
}

// NewEmbedder creates an Embedder. An empty url means DefaultURL.
func NewEmbedder(url, model string, opts ...Option) *Embedder {
	if url == "" {
		url = DefaultURL
	}
	e := &Embedder{
		client:    &http.Client{Timeout: 120 * time.Second},
		url:       strings.TrimSuffix(url, "/"),
		model:     model,
		batchSize: docindex.DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedder) Dimensions() int   { return e.dim }
func (e *Embedder) ModelName() string { return e.model }

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return docindex.EmbedBatches(ctx, texts, e.batchSize, e.embedBatch)
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{"model": e.model, "input": batch})
	if err != nil {
		return nil, docindex.Errorf(docindex.EINTERNAL, "encode embedding request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, docindex.Errorf(docindex.ECONFIG, "invalid ollama URL %q: %v", e.url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docindex.Errorf(docindex.EFETCH, "ollama embed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, docindex.Errorf(docindex.EFETCH, "ollama embed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "decode ollama response: %v", err)
	}
	return out.Embeddings, nil
}
