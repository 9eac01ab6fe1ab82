package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := gemini.NewClient(context.Background(), "", "")

	assert.Equal(t, docindex.ECONFIG, docindex.ErrorCode(err))
}

func TestEmbedder_Embed(t *testing.T) {
	t.Parallel()

	t.Run("empty input makes no request", func(t *testing.T) {
		t.Parallel()

		e := gemini.NewEmbedder(nil)
		vecs, err := e.Embed(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, vecs)
		assert.Equal(t, gemini.DefaultDimensions, e.Dimensions())
		assert.Equal(t, gemini.DefaultModel, e.ModelName())
	})

	t.Run("returns one vector per text", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.True(t, strings.Contains(r.URL.Path, "embedding-test"), r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": []map[string]any{
					{"values": []float32{1, 0}},
					{"values": []float32{0, 1}},
				},
			})
		}))
		defer srv.Close()

		client, err := gemini.NewClient(context.Background(), "test-key", srv.URL)
		require.NoError(t, err)

		e := gemini.NewEmbedder(client, gemini.WithModel("embedding-test"), gemini.WithDimensions(2))
		vecs, err := e.Embed(context.Background(), []string{"a", "b"})

		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	})

	t.Run("rejects vectors of the wrong size", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,2,3]}]}`))
		}))
		defer srv.Close()

		client, err := gemini.NewClient(context.Background(), "test-key", srv.URL)
		require.NoError(t, err)

		_, err = gemini.NewEmbedder(client, gemini.WithDimensions(2)).Embed(context.Background(), []string{"a"})

		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	})

	t.Run("reports API errors as fetch errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
		}))
		defer srv.Close()

		client, err := gemini.NewClient(context.Background(), "bad-key", srv.URL)
		require.NoError(t, err)

		_, err = gemini.NewEmbedder(client).Embed(context.Background(), []string{"a"})

		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	})
}
