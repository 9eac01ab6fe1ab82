// Package openai embeds text with the OpenAI embeddings API or any
// service compatible with it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// DefaultURL is the OpenAI API base URL.
const DefaultURL = "https://api.openai.com/v1"

var _ docindex.Embedder = (*Embedder)(nil)

// Embedder implements docindex.Embedder over POST {url}/embeddings.
type Embedder struct {
	client    *http.Client
	url       string
	apiKey    string
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
func NewEmbedder(url, apiKey, model string, opts ...Option) *Embedder {
	if url == "" {
		url = DefaultURL
	}
	e := &Embedder{
		client:    &http.Client{Timeout: 60 * time.Second},
		url:       strings.TrimSuffix(url, "/"),
		apiKey:    apiKey,
		model:     model,
		batchSize: docindex.DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int { return e.dim }

// ModelName returns the embedding model.
func (e *Embedder) ModelName() string { return e.model }

// Embed returns one vector per text in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return docindex.EmbedBatches(ctx, texts, e.batchSize, e.embedBatch)
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: batch, Model: e.model})
	if err != nil {
		return nil, docindex.Errorf(docindex.EINTERNAL, "encode embedding request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, docindex.Errorf(docindex.ECONFIG, "invalid embedding URL %q: %v", e.url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docindex.Errorf(docindex.EFETCH, "embedding request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, docindex.Errorf(docindex.EFETCH, "embedding request: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, docindex.Errorf(docindex.EPARSE, "decode embedding response: %v", err)
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	if e.dim > 0 {
		for _, v := range vecs {
			if len(v) != e.dim {
				return nil, docindex.Errorf(docindex.EFETCH, "embedding has %d dimensions, expected %d", len(v), e.dim)
			}
		}
	}
	return vecs, nil
}
