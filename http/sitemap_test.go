package http_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapService_DiscoverURLs_FromHints(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/docs/intro</loc></url>
  <url><loc>{{BASE}}/docs/guide/</loc></url>
  <url><loc>{{BASE}}/docs/intro#top</loc></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/custom-sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL, []string{srv.URL + "/custom-sitemap.xml"})

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, urls)
}

func TestSitemapService_DiscoverURLs_FallbackToSitemapXML(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/page1</loc></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/page1"}, urls)
}

func TestSitemapService_DiscoverURLs_SitemapIndex(t *testing.T) {
	t.Parallel()

	sitemapIndex := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap-docs.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-missing.xml</loc></sitemap>
</sitemapindex>`
	sitemapDocs := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/docs/intro</loc></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml":      sitemapIndex,
		"/sitemap-docs.xml": sitemapDocs,
	})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/intro"}, urls, "a failing child sitemap is skipped")
}

func TestSitemapService_DiscoverURLs_StopsAtNestingLimit(t *testing.T) {
	t.Parallel()

	content := map[string]string{}
	for i := 0; i < 8; i++ {
		content[fmt.Sprintf("/index%d.xml", i)] = fmt.Sprintf(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/index%d.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/urls%d.xml</loc></sitemap>
</sitemapindex>`, i+1, i)
		content[fmt.Sprintf("/urls%d.xml", i)] = fmt.Sprintf(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/page%d</loc></url>
</urlset>`, i)
	}
	srv := newTestServer(t, content)
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL, []string{srv.URL + "/index0.xml"})

	require.NoError(t, err)
	assert.Contains(t, urls, srv.URL+"/page0")
	assert.Contains(t, urls, srv.URL+"/page4")
	assert.NotContains(t, urls, srv.URL+"/page5")
}

func TestSitemapService_DiscoverURLs_ScopesToBasePath(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/docs</loc></url>
  <url><loc>{{BASE}}/docs/intro</loc></url>
  <url><loc>{{BASE}}/documentation</loc></url>
  <url><loc>{{BASE}}/blog/post</loc></url>
  <url><loc>https://elsewhere.example.com/docs/intro</loc></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL+"/docs/", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs", srv.URL + "/docs/intro"}, urls)
}

func TestSitemapService_DiscoverURLs_RejectsOversizedSitemap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><urlset>`))
		chunk := []byte(strings.Repeat("<!-- padding -->", 1024))
		for written := 0; written <= docindex.MaxSitemapSize; written += len(chunk) {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	_, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

	require.Error(t, err)
	assert.Equal(t, docindex.ETOOLARGE, docindex.ErrorCode(err))
}

func TestSitemapService_DiscoverURLs_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{"/sitemap.xml": `<urlset/>`})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := dochttp.NewSitemapService()
	_, err := svc.DiscoverURLs(ctx, srv.URL, nil)

	require.ErrorIs(t, err, context.Canceled)
}

func TestSitemapService_DiscoverURLs_NoSitemapFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	urls, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

	require.Error(t, err)
	assert.Equal(t, docindex.EFETCH, docindex.ErrorCode(err))
	assert.Empty(t, urls)
}

func TestSitemapService_DiscoverURLs_MalformedXML(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{"/sitemap.xml": `<urlset><url>`})
	defer srv.Close()

	svc := dochttp.NewSitemapService()
	_, err := svc.DiscoverURLs(context.Background(), srv.URL, nil)

	assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
}

// newTestServer creates a test HTTP server with the given path->content mapping.
// Content strings may contain {{BASE}} which is replaced with the server URL.
func newTestServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "{{BASE}}", srv.URL)))
	}))
	return srv
}
