// Package backendtest holds the behavioral suite every docindex.Backend
// must pass.
package backendtest

import (
	"context"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dimensions is the embedding size used by the suite's vectors. Engines
// with fixed-width vector columns must be opened with it.
const Dimensions = 3

// NewBackend returns an empty, open backend. It registers its own cleanup.
type NewBackend func(t *testing.T) docindex.Backend

// Run runs the suite. Every subtest gets a fresh backend.
func Run(t *testing.T, newBackend NewBackend) {
	t.Run("UpsertAndFind", func(t *testing.T) { testUpsertAndFind(t, newBackend(t)) })
	t.Run("UpsertReplacesChunksAndLinks", func(t *testing.T) { testUpsertReplaces(t, newBackend(t)) })
	t.Run("UpsertInvalidKeepsPriorSet", func(t *testing.T) { testUpsertInvalid(t, newBackend(t)) })
	t.Run("UpsertRejectsIndexGaps", func(t *testing.T) { testUpsertIndexGaps(t, newBackend(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newBackend(t)) })
	t.Run("FindDocuments", func(t *testing.T) { testFindDocuments(t, newBackend(t)) })
	t.Run("UpdateDocument", func(t *testing.T) { testUpdateDocument(t, newBackend(t)) })
	t.Run("DeleteDocument", func(t *testing.T) { testDeleteDocument(t, newBackend(t)) })
	t.Run("FindRelated", func(t *testing.T) { testFindRelated(t, newBackend(t)) })
	t.Run("ListCategories", func(t *testing.T) { testListCategories(t, newBackend(t)) })
	t.Run("SearchKeyword", func(t *testing.T) { testSearchKeyword(t, newBackend(t)) })
	t.Run("SearchVector", func(t *testing.T) { testSearchVector(t, newBackend(t)) })
	t.Run("Embeddings", func(t *testing.T) { testEmbeddings(t, newBackend(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newBackend(t)) })
}

func doc(path, category string, links ...docindex.Link) *docindex.Document {
	return &docindex.Document{
		Path:        path,
		Title:       "Title of " + path,
		Category:    category,
		Audience:    docindex.DefaultAudience,
		ContentHash: "hash-" + path,
		Links:       links,
	}
}

func chunks(path string, contents ...string) []*docindex.Chunk {
	out := make([]*docindex.Chunk, len(contents))
	for i, c := range contents {
		out[i] = &docindex.Chunk{Path: path, Index: i, Title: "Part", SectionPath: "Doc > Part", Content: c}
	}
	return out
}

func upsert(t *testing.T, b docindex.Backend, d *docindex.Document, c []*docindex.Chunk) {
	t.Helper()
	require.NoError(t, b.UpsertDocument(context.Background(), d, c))
}

func testUpsertAndFind(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	d := doc("guides/setup.md", "guides", docindex.Link{Target: "guides/intro.md", Relation: docindex.RelationRelatesTo})
	d.Tags = []string{"setup", "install"}
	upsert(t, b, d, chunks(d.Path, "# Setup\n\nInstall the tool.", "## Verify\n\nRun the check."))
	assert.Equal(t, 2, d.ChunkCount)

	got, err := b.FindDocument(ctx, d.Path)
	require.NoError(t, err)
	assert.Equal(t, "Title of guides/setup.md", got.Title)
	assert.Equal(t, "guides", got.Category)
	assert.Equal(t, docindex.DefaultAudience, got.Audience)
	assert.Equal(t, []string{"setup", "install"}, got.Tags)
	assert.Equal(t, "hash-guides/setup.md", got.ContentHash)
	assert.Equal(t, 2, got.ChunkCount)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
	assert.Equal(t, []docindex.Link{{Source: d.Path, Target: "guides/intro.md", Relation: docindex.RelationRelatesTo}}, got.Links)

	cs, err := b.FindChunks(ctx, d.Path)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	for i, c := range cs {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, d.Path, c.Path)
		assert.Equal(t, "Doc > Part", c.SectionPath)
		assert.Nil(t, c.Embedding)
	}
	assert.Equal(t, "# Setup\n\nInstall the tool.", cs[0].Content)
}

func testUpsertReplaces(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	path := "api.md"
	upsert(t, b, doc(path, "ref", docindex.Link{Target: "old.md"}), chunks(path, "one", "two", "three"))
	first, err := b.FindDocument(ctx, path)
	require.NoError(t, err)

	upsert(t, b, doc(path, "ref", docindex.Link{Target: "new.md", Relation: docindex.RelationLinksTo}), chunks(path, "only"))

	got, err := b.FindDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ChunkCount)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt), "created_at survives re-upsert")
	assert.Equal(t, []docindex.Link{{Source: path, Target: "new.md", Relation: docindex.RelationLinksTo}}, got.Links)

	cs, err := b.FindChunks(ctx, path)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "only", cs[0].Content)
}

func testUpsertInvalid(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	path := "keep.md"
	upsert(t, b, doc(path, "c"), chunks(path, "first", "second"))

	bad := chunks(path, "replacement", "")
	err := b.UpsertDocument(ctx, doc(path, "c"), bad)
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))

	err = b.UpsertDocument(ctx, &docindex.Document{}, nil)
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))

	cs, err := b.FindChunks(ctx, path)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "first", cs[0].Content)
}

func testUpsertIndexGaps(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	path := "gaps.md"

	gap := chunks(path, "first", "second")
	gap[1].Index = 7
	err := b.UpsertDocument(ctx, doc(path, "c"), gap)
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))

	offset := chunks(path, "first")
	offset[0].Index = 1
	err = b.UpsertDocument(ctx, doc(path, "c"), offset)
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))

	_, err = b.FindDocument(ctx, path)
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
}

func testFindMissing(t *testing.T, b docindex.Backend) {
	ctx := context.Background()

	_, err := b.FindDocument(ctx, "missing.md")
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))

	_, err = b.FindChunks(ctx, "missing.md")
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))

	_, err = b.UpdateDocument(ctx, "missing.md", docindex.DocumentUpdate{})
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))

	err = b.DeleteDocument(ctx, "missing.md")
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
}

func testFindDocuments(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("c.md", "x"), chunks("c.md", "c"))
	upsert(t, b, doc("a.md", "x"), chunks("a.md", "a1", "a2"))
	upsert(t, b, doc("b.md", "y"), chunks("b.md", "b"))

	all, err := b.FindDocuments(ctx, docindex.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.md", all[0].Path)
	assert.Equal(t, 2, all[0].ChunkCount)
	assert.Equal(t, "b.md", all[1].Path)
	assert.Equal(t, "c.md", all[2].Path)

	x := "x"
	filtered, err := b.FindDocuments(ctx, docindex.DocumentFilter{Category: &x})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "a.md", filtered[0].Path)
	assert.Equal(t, "c.md", filtered[1].Path)

	page, err := b.FindDocuments(ctx, docindex.DocumentFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b.md", page[0].Path)

	tail, err := b.FindDocuments(ctx, docindex.DocumentFilter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "c.md", tail[0].Path)
}

func testUpdateDocument(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("u.md", "before"), chunks("u.md", "body"))

	title, category := "Renamed", "after"
	tags := []string{"t1"}
	got, err := b.UpdateDocument(ctx, "u.md", docindex.DocumentUpdate{Title: &title, Category: &category, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "after", got.Category)
	assert.Equal(t, docindex.DefaultAudience, got.Audience)
	assert.Equal(t, []string{"t1"}, got.Tags)
	assert.Equal(t, 1, got.ChunkCount)
}

func testDeleteDocument(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("a.md", "x", docindex.Link{Target: "b.md"}), chunks("a.md", "alpha"))
	upsert(t, b, doc("b.md", "x", docindex.Link{Target: "a.md"}, docindex.Link{Target: "c.md"}), chunks("b.md", "beta"))

	require.NoError(t, b.DeleteDocument(ctx, "a.md"))

	_, err := b.FindDocument(ctx, "a.md")
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	_, err = b.FindChunks(ctx, "a.md")
	assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))

	source, target := "a.md", "a.md"
	out, err := b.FindLinks(ctx, docindex.LinkFilter{Source: &source})
	require.NoError(t, err)
	assert.Empty(t, out)
	in, err := b.FindLinks(ctx, docindex.LinkFilter{Target: &target})
	require.NoError(t, err)
	assert.Empty(t, in)

	rest, err := b.FindLinks(ctx, docindex.LinkFilter{})
	require.NoError(t, err)
	assert.Equal(t, []*docindex.Link{{Source: "b.md", Target: "c.md", Relation: docindex.RelationRelatesTo}}, rest)

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
}

func testFindRelated(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("hub.md", "x",
		docindex.Link{Target: "z.md", Relation: docindex.RelationLinksTo},
		docindex.Link{Target: "a.md", Relation: docindex.RelationRelatesTo},
	), chunks("hub.md", "hub"))
	upsert(t, b, doc("in.md", "x", docindex.Link{Target: "hub.md", Relation: docindex.RelationLinksTo}), chunks("in.md", "in"))

	related, err := b.FindRelated(ctx, "hub.md", "")
	require.NoError(t, err)
	assert.Equal(t, []*docindex.Related{
		{Path: "a.md", Relation: docindex.RelationRelatesTo, Direction: docindex.DirectionOutgoing},
		{Path: "z.md", Relation: docindex.RelationLinksTo, Direction: docindex.DirectionOutgoing},
		{Path: "in.md", Relation: docindex.RelationLinksTo, Direction: docindex.DirectionIncoming},
	}, related)

	linksTo, err := b.FindRelated(ctx, "hub.md", docindex.RelationLinksTo)
	require.NoError(t, err)
	assert.Equal(t, []*docindex.Related{
		{Path: "z.md", Relation: docindex.RelationLinksTo, Direction: docindex.DirectionOutgoing},
		{Path: "in.md", Relation: docindex.RelationLinksTo, Direction: docindex.DirectionIncoming},
	}, linksTo)

	none, err := b.FindRelated(ctx, "nowhere.md", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListCategories(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("1.md", "guides"), chunks("1.md", "x"))
	upsert(t, b, doc("2.md", "api"), chunks("2.md", "x"))
	upsert(t, b, doc("3.md", "guides"), chunks("3.md", "x"))

	got, err := b.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*docindex.CategoryCount{
		{Category: "api", Documents: 1},
		{Category: "guides", Documents: 2},
	}, got)
}

func testSearchKeyword(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("both.md", "dist"), chunks("both.md", "Raft consensus keeps replicas in agreement."))
	upsert(t, b, doc("many.md", "dist"), chunks("many.md", "Raft raft raft raft raft elects a leader by raft votes."))
	upsert(t, b, doc("other.md", "misc"), chunks("other.md", "Nothing relevant lives here."))

	results, err := b.SearchKeyword(ctx, "raft consensus", docindex.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "both.md", results[0].Chunk.Path, "more distinct terms rank first")
	assert.Equal(t, "many.md", results[1].Chunk.Path)
	assert.Equal(t, 1, results[0].KeywordRank)
	assert.Equal(t, 2, results[1].KeywordRank)
	assert.Equal(t, "dist", results[0].Document.Category)
	assert.Greater(t, results[0].Score, results[1].Score)

	limited, err := b.SearchKeyword(ctx, "raft", docindex.SearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	misc, err := b.SearchKeyword(ctx, "raft relevant", docindex.SearchOptions{Category: "misc", Limit: 10})
	require.NoError(t, err)
	require.Len(t, misc, 1)
	assert.Equal(t, "other.md", misc[0].Chunk.Path)

	empty, err := b.SearchKeyword(ctx, "  ?! ", docindex.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	quoted, err := b.SearchKeyword(ctx, `"raft" OR NOT`, docindex.SearchOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, quoted, 2)
}

func testSearchVector(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	if !b.VectorSearchEnabled() {
		_, err := b.SearchVector(ctx, []float32{1, 0, 0}, docindex.SearchOptions{})
		assert.Equal(t, docindex.ENOTIMPLEMENTED, docindex.ErrorCode(err))
		return
	}

	near := chunks("near.md", "near")
	near[0].Embedding = []float32{1, 0, 0}
	mid := chunks("mid.md", "mid")
	mid[0].Embedding = []float32{1, 1, 0}
	far := chunks("far.md", "far")
	far[0].Embedding = []float32{0, 0, 1}
	upsert(t, b, doc("near.md", "a"), near)
	upsert(t, b, doc("mid.md", "b"), mid)
	upsert(t, b, doc("far.md", "a"), far)
	upsert(t, b, doc("none.md", "a"), chunks("none.md", "no embedding"))

	results, err := b.SearchVector(ctx, []float32{1, 0, 0}, docindex.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near.md", results[0].Chunk.Path)
	assert.Equal(t, "mid.md", results[1].Chunk.Path)
	assert.Equal(t, "far.md", results[2].Chunk.Path)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, 1, results[0].VectorRank)
	assert.Equal(t, 3, results[2].VectorRank)

	filtered, err := b.SearchVector(ctx, []float32{1, 0, 0}, docindex.SearchOptions{Category: "a", Limit: 1})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "near.md", filtered[0].Chunk.Path)

	_, err = b.SearchVector(ctx, nil, docindex.SearchOptions{})
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
}

func testEmbeddings(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	upsert(t, b, doc("b.md", "x"), chunks("b.md", "b0", "b1"))
	upsert(t, b, doc("a.md", "x"), chunks("a.md", "a0"))

	pending, err := b.PendingEmbeddings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a.md", pending[0].Path)
	assert.Equal(t, "b.md", pending[1].Path)
	assert.Equal(t, 0, pending[1].Index)
	assert.Equal(t, 1, pending[2].Index)

	first, err := b.PendingEmbeddings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	if !b.VectorSearchEnabled() {
		return
	}

	for _, c := range first {
		c.Embedding = []float32{0.5, 0.5, 0}
	}
	require.NoError(t, b.SetEmbeddings(ctx, first))

	rest, err := b.PendingEmbeddings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "b.md", rest[0].Path)
	assert.Equal(t, 1, rest[0].Index)

	cs, err := b.FindChunks(ctx, "a.md")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0}, cs[0].Embedding, 1e-6)

	err = b.SetEmbeddings(ctx, []*docindex.Chunk{{Path: "a.md", Index: 0}})
	assert.Equal(t, docindex.EINVALID, docindex.ErrorCode(err))
}

func testStats(t *testing.T, b docindex.Backend) {
	ctx := context.Background()
	empty, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &docindex.Stats{}, empty)

	cs := chunks("a.md", "one", "two")
	if b.VectorSearchEnabled() {
		cs[0].Embedding = []float32{1, 0, 0}
	}
	upsert(t, b, doc("a.md", "x", docindex.Link{Target: "b.md"}), cs)
	upsert(t, b, doc("b.md", "y"), chunks("b.md", "three"))

	got, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Documents)
	assert.Equal(t, 3, got.Chunks)
	assert.Equal(t, 1, got.Links)
	assert.Equal(t, 2, got.Categories)
	if b.VectorSearchEnabled() {
		assert.Equal(t, 1, got.Embedded)
	}
}
