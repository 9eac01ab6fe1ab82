// Package gemini implements docindex.Embedder using the Google Gemini API.
package gemini

import (
	"context"

	"github.com/fwojciec/docindex"
	"google.golang.org/genai"
)

// Embedder defaults.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Ensure Embedder implements docindex.Embedder at compile time.
var _ docindex.Embedder = (*Embedder)(nil)

// Embedder implements docindex.Embedder using Gemini embedding models.
type Embedder struct {
	client    *genai.Client
	model     string
	dim       int
	batchSize int
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *Embedder) {
		e.model = model
	}
}

// WithDimensions sets the requested output dimensionality.
func WithDimensions(dim int) Option {
	return func(e *Embedder) {
		e.dim = dim
	}
}

// WithBatchSize sets how many texts are sent per request.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		e.batchSize = n
	}
}

// NewEmbedder creates a new Embedder.
func NewEmbedder(client *genai.Client, opts ...Option) *Embedder {
	e := &Embedder{
		client:    client,
		model:     DefaultModel,
		dim:       DefaultDimensions,
		batchSize: docindex.DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewClient creates a Gemini API client. An empty baseURL uses the
// public endpoint.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, docindex.Errorf(docindex.ECONFIG, "gemini API key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, docindex.Errorf(docindex.ECONFIG, "gemini client: %v", err)
	}
	return client, nil
}

// Embed returns one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return docindex.EmbedBatches(ctx, texts, e.batchSize, e.embedBatch)
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	dim := int32(e.dim)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docindex.Errorf(docindex.EFETCH, "gemini embed: %v", err)
	}
	if result == nil {
		return nil, docindex.Errorf(docindex.EFETCH, "gemini returned no embeddings")
	}

	vecs := make([][]float32, 0, len(result.Embeddings))
	for _, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) != e.dim {
			return nil, docindex.Errorf(docindex.EFETCH, "gemini returned an embedding of unexpected size, want %d", e.dim)
		}
		vecs = append(vecs, emb.Values)
	}
	return vecs, nil
}

// Dimensions returns the configured output dimensionality.
func (e *Embedder) Dimensions() int { return e.dim }

// ModelName returns the model name.
func (e *Embedder) ModelName() string { return e.model }
