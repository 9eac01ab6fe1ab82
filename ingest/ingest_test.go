package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/ingest"
	"github.com/fwojciec/docindex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// store is an in-memory DocumentService built on the mock.
type store struct {
	mu      sync.Mutex
	docs    map[string]*docindex.Document
	chunks  map[string][]*docindex.Chunk
	upserts int
}

func newStore() *store {
	return &store{docs: map[string]*docindex.Document{}, chunks: map[string][]*docindex.Chunk{}}
}

func (s *store) service() *mock.DocumentService {
	return &mock.DocumentService{
		UpsertDocumentFn: func(_ context.Context, doc *docindex.Document, chunks []*docindex.Chunk) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			d := *doc
			d.ChunkCount = len(chunks)
			s.docs[doc.Path] = &d
			s.chunks[doc.Path] = chunks
			s.upserts++
			return nil
		},
		FindDocumentFn: func(_ context.Context, path string) (*docindex.Document, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			d, ok := s.docs[path]
			if !ok {
				return nil, docindex.Errorf(docindex.ENOTFOUND, "document not found")
			}
			return d, nil
		},
		FindDocumentsFn: func(_ context.Context, filter docindex.DocumentFilter) ([]*docindex.Document, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if filter.Offset > 0 {
				return nil, nil
			}
			var out []*docindex.Document
			for _, d := range s.docs {
				out = append(out, d)
			}
			return out, nil
		},
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

const guide = `---
title: Ignored Because H1 Wins
category: tutorials
tags: [setup, install]
relates_to: reference/api.md, "*.md"
---

# Setup Guide

Install the tool with your package manager and run the init command once.

## Configure

Edit the configuration file and set the data directory before first use.
`

func outcomesByPath(outcomes []*docindex.IngestOutcome) map[string]*docindex.IngestOutcome {
	m := map[string]*docindex.IngestOutcome{}
	for _, o := range outcomes {
		m[o.Path] = o
	}
	return m
}

func TestIngester_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("ingests files with metadata and links", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{
			"guides/setup.md":  guide,
			"reference/api.md": "# API\n\n" + strings.Repeat("The API accepts JSON requests. ", 5),
			"notes.txt":        strings.Repeat("plain text notes about the release process. ", 3),
			"tiny.md":          "# Tiny",
			"image.png":        "not indexed",
			".git/HEAD.md":     strings.Repeat("hidden ", 20),
		})
		s := newStore()
		in := &ingest.Ingester{Documents: s.service(), Concurrency: 2}

		outcomes, err := in.Ingest(context.Background(), root, docindex.IngestOptions{})
		require.NoError(t, err)

		paths := make([]string, len(outcomes))
		for i, o := range outcomes {
			paths[i] = o.Path
		}
		assert.Equal(t, []string{"guides/setup.md", "notes.txt", "reference/api.md", "tiny.md"}, paths)

		byPath := outcomesByPath(outcomes)
		assert.Equal(t, docindex.OutcomeIngested, byPath["guides/setup.md"].Outcome)
		assert.Equal(t, docindex.OutcomeSkipped, byPath["tiny.md"].Outcome)

		doc := s.docs["guides/setup.md"]
		require.NotNil(t, doc)
		assert.Equal(t, "Setup Guide", doc.Title)
		assert.Equal(t, "tutorials", doc.Category)
		assert.Equal(t, docindex.DefaultAudience, doc.Audience)
		assert.Equal(t, []string{"setup", "install"}, doc.Tags)
		assert.Equal(t, []docindex.Link{{Source: "guides/setup.md", Target: "reference/api.md", Relation: docindex.RelationRelatesTo}}, doc.Links)
		assert.NotContains(t, s.chunks["guides/setup.md"][0].Content, "relates_to")

		assert.Equal(t, "reference", s.docs["reference/api.md"].Category)
		assert.Equal(t, docindex.DefaultCategory, s.docs["notes.txt"].Category)
		assert.Equal(t, "Notes", s.docs["notes.txt"].Title)
	})

	t.Run("skips unchanged files unless forced", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{"guide.md": guide})
		s := newStore()
		in := &ingest.Ingester{Documents: s.service()}

		_, err := in.Ingest(context.Background(), root, docindex.IngestOptions{})
		require.NoError(t, err)

		outcomes, err := in.Ingest(context.Background(), root, docindex.IngestOptions{})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, docindex.OutcomeUnchanged, outcomes[0].Outcome)
		assert.Equal(t, 1, s.upserts)

		outcomes, err = in.Ingest(context.Background(), root, docindex.IngestOptions{Force: true})
		require.NoError(t, err)
		assert.Equal(t, docindex.OutcomeIngested, outcomes[0].Outcome)
		assert.Equal(t, 2, s.upserts)
	})

	t.Run("dry run reports chunk counts without writing", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{"guide.md": guide})
		s := newStore()
		in := &ingest.Ingester{Documents: s.service()}

		outcomes, err := in.Ingest(context.Background(), root, docindex.IngestOptions{DryRun: true})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, docindex.OutcomeDryRun, outcomes[0].Outcome)
		assert.Positive(t, outcomes[0].Chunks)
		assert.Zero(t, s.upserts)
	})

	t.Run("embeds chunks and tolerates embed failure", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{
			"a.md": guide,
			"b.md": "# FAIL\n\n" + strings.Repeat("This document cannot be embedded. ", 3),
		})
		s := newStore()
		embedder := &mock.Embedder{EmbedFn: func(_ context.Context, texts []string) ([][]float32, error) {
			if strings.Contains(texts[0], "FAIL") {
				return nil, errors.New("boom")
			}
			vecs := make([][]float32, len(texts))
			for i := range vecs {
				vecs[i] = []float32{1, 0}
			}
			return vecs, nil
		}}
		in := &ingest.Ingester{Documents: s.service(), Embedder: embedder}

		outcomes, err := in.Ingest(context.Background(), root, docindex.IngestOptions{Embed: true})
		require.NoError(t, err)
		for _, o := range outcomes {
			assert.Equal(t, docindex.OutcomeIngested, o.Outcome, o.Path)
		}
		for _, ch := range s.chunks["a.md"] {
			assert.Equal(t, []float32{1, 0}, ch.Embedding)
		}
		for _, ch := range s.chunks["b.md"] {
			assert.Nil(t, ch.Embedding)
		}
	})

	t.Run("records storage errors per file", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{"guide.md": guide})
		svc := newStore().service()
		svc.UpsertDocumentFn = func(context.Context, *docindex.Document, []*docindex.Chunk) error {
			return docindex.Errorf(docindex.ESTORAGE, "disk full")
		}
		in := &ingest.Ingester{Documents: svc}

		outcomes, err := in.Ingest(context.Background(), root, docindex.IngestOptions{})
		require.NoError(t, err)
		assert.Equal(t, docindex.OutcomeError, outcomes[0].Outcome)
		assert.Equal(t, "disk full", outcomes[0].Detail)
	})

	t.Run("ingests a single file", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{"docs/guide.md": guide})
		s := newStore()
		in := &ingest.Ingester{Documents: s.service()}

		outcomes, err := in.Ingest(context.Background(), filepath.Join(root, "docs", "guide.md"), docindex.IngestOptions{})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, "guide.md", outcomes[0].Path)
	})

	t.Run("missing root is not found", func(t *testing.T) {
		t.Parallel()

		in := &ingest.Ingester{Documents: newStore().service()}
		_, err := in.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing"), docindex.IngestOptions{})
		assert.Equal(t, docindex.ENOTFOUND, docindex.ErrorCode(err))
	})

	t.Run("canceled context stops the run", func(t *testing.T) {
		t.Parallel()

		root := writeFiles(t, map[string]string{"guide.md": guide})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		in := &ingest.Ingester{Documents: newStore().service()}
		_, err := in.Ingest(ctx, root, docindex.IngestOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIngester_Diff(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{
		"same.md":    guide,
		"changed.md": guide,
	})
	s := newStore()
	in := &ingest.Ingester{Documents: s.service()}
	_, err := in.Ingest(context.Background(), root, docindex.IngestOptions{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "changed.md"), []byte(guide+"\nMore text.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "new.md"), []byte(guide), 0o644))
	s.docs["gone.md"] = &docindex.Document{Path: "gone.md", ContentHash: "x"}
	s.docs["https://example.com/page"] = &docindex.Document{Path: "https://example.com/page"}

	report, err := in.Diff(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.md"}, report.New)
	assert.Equal(t, []string{"changed.md"}, report.Modified)
	assert.Equal(t, []string{"gone.md"}, report.Deleted)
	assert.Equal(t, []string{"same.md"}, report.Unchanged)
}
