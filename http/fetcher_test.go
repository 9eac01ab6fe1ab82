package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docindex"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns HTML body from server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			_, _ = w.Write([]byte("<html><body>Hello World</body></html>"))
		}))
		defer server.Close()

		fetcher := dochttp.NewFetcher()

		resp, err := fetcher.Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "<html><body>Hello World</body></html>", resp.Body)
		assert.Equal(t, "text/html", resp.ContentType)
		assert.Equal(t, `"v1"`, resp.ETag)
		assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", resp.LastModified)
	})

	t.Run("returns error statuses in the response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		resp, err := dochttp.NewFetcher().Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
	})

	t.Run("reports the final URL after redirects", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("moved"))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		resp, err := dochttp.NewFetcher().Fetch(context.Background(), docindex.FetchRequest{URL: server.URL + "/old"})
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/new", resp.URL)
		assert.Equal(t, "moved", resp.Body)
	})

	t.Run("sends conditional request headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("If-None-Match") == `"v1"` && r.Header.Get("If-Modified-Since") != "" {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			_, _ = w.Write([]byte("fresh"))
		}))
		defer server.Close()

		resp, err := dochttp.NewFetcher().Fetch(context.Background(), docindex.FetchRequest{
			URL:          server.URL,
			ETag:         `"v1"`,
			LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotModified, resp.Status)
	})

	t.Run("sets user agent", func(t *testing.T) {
		t.Parallel()

		var got atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got.Store(r.UserAgent())
		}))
		defer server.Close()

		_, err := dochttp.NewFetcher(dochttp.WithUserAgent("test-agent/2.0")).
			Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "test-agent/2.0", got.Load())
	})

	t.Run("rejects bodies over the size limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		}))
		defer server.Close()

		_, err := dochttp.NewFetcher(dochttp.WithMaxBodySize(1024)).
			Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.Error(t, err)
		assert.Equal(t, docindex.ETOOLARGE, docindex.ErrorCode(err))
	})

	t.Run("accepts bodies at the size limit", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
		}))
		defer server.Close()

		resp, err := dochttp.NewFetcher(dochttp.WithMaxBodySize(1024)).
			Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.NoError(t, err)
		assert.Len(t, resp.Body, 1024)
	})

	t.Run("respects custom timeout option", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		// Use a very short timeout that will expire before server responds
		fetcher := dochttp.NewFetcher(dochttp.WithTimeout(10 * time.Millisecond))

		_, err := fetcher.Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.Error(t, err)
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := dochttp.NewFetcher().Fetch(ctx, docindex.FetchRequest{URL: server.URL})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("returns EFETCH when the server is unreachable", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		_, err := dochttp.NewFetcher().Fetch(context.Background(), docindex.FetchRequest{URL: addr})
		require.Error(t, err)
		assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	})
}

func TestFetcher_Fetch_Guarded(t *testing.T) {
	t.Parallel()

	t.Run("blocks loopback targets without connecting", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		fetcher := dochttp.NewFetcher(dochttp.WithGuard(dochttp.NewGuard()))

		_, err := fetcher.Fetch(context.Background(), docindex.FetchRequest{URL: server.URL})
		require.Error(t, err)
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))
		assert.Zero(t, hits.Load())
	})

	t.Run("blocks names resolving to private addresses", func(t *testing.T) {
		t.Parallel()

		guard := &dochttp.Guard{Resolver: fakeResolver{"docs.example.com": {"10.1.2.3"}}}
		fetcher := dochttp.NewFetcher(dochttp.WithGuard(guard))

		_, err := fetcher.Fetch(context.Background(), docindex.FetchRequest{URL: "http://docs.example.com/"})
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))
	})

	t.Run("blocks the metadata endpoint", func(t *testing.T) {
		t.Parallel()

		fetcher := dochttp.NewFetcher(dochttp.WithGuard(dochttp.NewGuard()))

		_, err := fetcher.Fetch(context.Background(), docindex.FetchRequest{URL: "http://169.254.169.254/latest/meta-data/"})
		assert.Equal(t, docindex.EBLOCKED, docindex.ErrorCode(err))
	})
}
