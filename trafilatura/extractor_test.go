package trafilatura_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Installation - Acme Docs</title></head>
<body>
<nav><a href="/">Home</a> <a href="/docs">Docs</a> <a href="/blog">Blog</a></nav>
<article>
<h1>Installation</h1>
<p>Acme ships as a single static binary. Download the archive for your platform and put the binary somewhere on your PATH.</p>
<p>Package managers are supported too. The Homebrew formula and the Debian package are updated with every release.</p>
<pre><code>brew install acme</code></pre>
<p>After installing, run the version command to confirm the binary works and prints the release you expect.</p>
</article>
<footer>Copyright 2026 Acme Inc.</footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("returns main content and title", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().Extract(page)
		require.NoError(t, err)

		assert.NotEmpty(t, result.Title)
		assert.Contains(t, result.ContentHTML, "single static binary")
		assert.Contains(t, result.ContentHTML, "brew install acme")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().Extract("  \n")
		assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
	})

	t.Run("works in a chain with a fallback", func(t *testing.T) {
		t.Parallel()

		chain := docindex.ExtractorChain{trafilatura.NewExtractor()}
		result, err := chain.Extract(page)
		require.NoError(t, err)
		assert.True(t, strings.Contains(result.ContentHTML, "Package managers"))
	})
}
