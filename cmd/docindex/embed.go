package main

import (
	"fmt"

	"github.com/fwojciec/docindex"
)

// Run executes the embed command. It backfills embeddings batch by batch
// until no chunk is pending.
func (c *EmbedCmd) Run(deps *Dependencies) error {
	if deps.Embedder == nil {
		fmt.Fprintln(deps.Stderr, "error: no embedding provider configured. Set embed.provider in the config file.")
		return docindex.Errorf(docindex.ECONFIG, "no embedding provider configured")
	}
	if !deps.Backend.VectorSearchEnabled() {
		fmt.Fprintln(deps.Stderr, "error: the storage backend has no vector support. Install the pgvector extension.")
		return docindex.Errorf(docindex.ENOTIMPLEMENTED, "vector search unavailable")
	}

	type key struct {
		path  string
		index int
	}
	seen := make(map[key]bool)
	batch := deps.Config.Embed.BatchSize
	var done int
	for c.Max <= 0 || done < c.Max {
		limit := batch
		if c.Max > 0 {
			limit = min(limit, c.Max-done)
		}
		chunks, err := deps.Backend.PendingEmbeddings(deps.Ctx, limit)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
			return err
		}
		if len(chunks) == 0 {
			break
		}

		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			k := key{ch.Path, ch.Index}
			if seen[k] {
				return docindex.Errorf(docindex.EINTERNAL, "chunk %s#%d is still pending after being embedded", ch.Path, ch.Index)
			}
			seen[k] = true
			texts[i] = ch.EmbeddingText()
		}
		vecs, err := deps.Embedder.Embed(deps.Ctx, texts)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
			return err
		}
		if len(vecs) != len(chunks) {
			return docindex.Errorf(docindex.EFETCH, "embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
		}
		for i, ch := range chunks {
			ch.Embedding = vecs[i]
		}
		if err := deps.Backend.SetEmbeddings(deps.Ctx, chunks); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
			return err
		}
		done += len(chunks)
		fmt.Fprintf(deps.Stderr, "embedded %d chunks\n", done)
	}

	fmt.Fprintf(deps.Stdout, "Embedded %d chunks with %s\n", done, deps.Embedder.ModelName())
	return nil
}
