package htmltomarkdown_test

import (
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	conv := htmltomarkdown.NewConverter()

	tests := []struct {
		name string
		html string
		want []string
	}{
		{"headings", `<h1>Title</h1><h2>Subtitle</h2><h3>Section</h3>`, []string{"# Title", "## Subtitle", "### Section"}},
		{"links", `<p>Visit <a href="https://example.com">Example</a> now.</p>`, []string{"[Example](https://example.com)"}},
		{"lists", `<ul><li>First</li><li>Second</li></ul>`, []string{"- First", "- Second"}},
		{"code blocks", `<pre><code class="language-go">fmt.Println("hi")</code></pre>`, []string{"```", `fmt.Println("hi")`}},
		{"tables", `<table><thead><tr><th>Key</th><th>Default</th></tr></thead><tbody><tr><td>port</td><td>8080</td></tr></tbody></table>`, []string{"| Key", "| port"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			md, err := conv.Convert(tt.html)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, md, w)
			}
		})
	}

	t.Run("drops permalinks and scripts", func(t *testing.T) {
		t.Parallel()

		md, err := conv.Convert(`<h2>Usage<a class="headerlink" href="#usage">¶</a></h2><script>track()</script><p>Run it.</p>`)
		require.NoError(t, err)
		assert.Contains(t, md, "## Usage")
		assert.NotContains(t, md, "¶")
		assert.NotContains(t, md, "track()")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := conv.Convert("   ")
		assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
	})
}
