package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_Embed(t *testing.T) {
	t.Parallel()

	t.Run("posts to the embed endpoint", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embed", r.URL.Path)
			var req struct {
				Model string   `json:"model"`
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text", req.Model)

			out := make([][]float32, len(req.Input))
			for i := range req.Input {
				out[i] = []float32{float32(i), 1}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		}))
		defer srv.Close()

		e := ollama.NewEmbedder(srv.URL, "nomic-embed-text", ollama.WithDimensions(2))
		vecs, err := e.Embed(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, vecs)
		assert.Equal(t, 2, e.Dimensions())
		assert.Equal(t, "nomic-embed-text", e.ModelName())
	})

	t.Run("reports a missing model as a fetch error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := ollama.NewEmbedder(srv.URL, "missing").Embed(context.Background(), []string{"x"})
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
		assert.Contains(t, docindex.ErrorMessage(err), "model not found")
	})

	t.Run("rejects a short response", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
		}))
		defer srv.Close()

		_, err := ollama.NewEmbedder(srv.URL, "m").Embed(context.Background(), []string{"x", "y"})
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	})

	t.Run("passes cancellation through", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := ollama.NewEmbedder(srv.URL, "m").Embed(ctx, []string{"x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
