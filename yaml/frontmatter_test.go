package yaml_test

import (
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontMatter(t *testing.T) {
	t.Parallel()

	t.Run("parses fields and strips the block", func(t *testing.T) {
		t.Parallel()

		text := "---\ntitle: Setup Guide\ncategory: guides\naudience: developers\ntags: install, quickstart\n---\n\n# Setup\n\nBody text.\n"

		fm, body, err := yaml.ParseFrontMatter(text)
		require.NoError(t, err)
		assert.Equal(t, "Setup Guide", fm.Title)
		assert.Equal(t, "guides", fm.Category)
		assert.Equal(t, "developers", fm.Audience)
		assert.Equal(t, yaml.StringList{"install", "quickstart"}, fm.Tags)
		assert.Equal(t, "# Setup\n\nBody text.\n", body)
	})

	t.Run("accepts lists", func(t *testing.T) {
		t.Parallel()

		text := "---\ntags:\n  - a\n  - b\nrelates_to:\n  - guides/setup.md\n  - \"arch/*.md\"\n  - arch/overview.md\n---\nbody"

		fm, body, err := yaml.ParseFrontMatter(text)
		require.NoError(t, err)
		assert.Equal(t, yaml.StringList{"a", "b"}, fm.Tags)
		assert.Equal(t, "body", body)
		assert.Equal(t, []docindex.Link{
			{Source: "docs/a.md", Target: "guides/setup.md", Relation: docindex.RelationRelatesTo},
			{Source: "docs/a.md", Target: "arch/overview.md", Relation: docindex.RelationRelatesTo},
		}, fm.Links("docs/a.md"))
	})

	t.Run("accepts comma separated relates_to", func(t *testing.T) {
		t.Parallel()

		fm, _, err := yaml.ParseFrontMatter("---\nrelates_to: guides/setup.md, faq?.md\n---\n")
		require.NoError(t, err)
		links := fm.Links("x.md")
		require.Len(t, links, 1)
		assert.Equal(t, "guides/setup.md", links[0].Target)
	})

	t.Run("returns text unchanged without front matter", func(t *testing.T) {
		t.Parallel()

		for _, text := range []string{"# Title\n\nNo front matter.", "---\ntitle: never closed\n", ""} {
			fm, body, err := yaml.ParseFrontMatter(text)
			require.NoError(t, err)
			assert.Equal(t, text, body)
			assert.Empty(t, fm.Title)
		}
	})

	t.Run("reports malformed YAML", func(t *testing.T) {
		t.Parallel()

		_, _, err := yaml.ParseFrontMatter("---\ntitle: [unclosed\n---\nbody")
		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
	})

	t.Run("rejects mappings for list fields", func(t *testing.T) {
		t.Parallel()

		_, _, err := yaml.ParseFrontMatter("---\ntags:\n  a: b\n---\nbody")
		assert.Equal(t, docindex.EPARSE, docindex.ErrorCode(err))
	})
}
