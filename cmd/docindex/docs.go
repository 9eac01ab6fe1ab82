package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/docindex"
)

// Run executes the get command.
func (c *GetCmd) Run(deps *Dependencies) error {
	doc, err := deps.Backend.FindDocument(deps.Ctx, c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	chunks, err := deps.Backend.FindChunks(deps.Ctx, c.Path)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	if c.JSON {
		return writeJSON(deps, struct {
			*docindex.Document
			Chunks []*docindex.Chunk `json:"chunks"`
		}{doc, chunks})
	}
	fmt.Fprintln(deps.Stdout, docindex.FormatDocument(doc, chunks))
	return nil
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return docindex.Errorf(docindex.EINVALID, "use --force to confirm deletion")
	}
	if err := deps.Backend.DeleteDocument(deps.Ctx, c.Path); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Deleted document %q\n", c.Path)
	return nil
}

// Run executes the update command.
func (c *UpdateCmd) Run(deps *Dependencies) error {
	var upd docindex.DocumentUpdate
	if c.Title != "" {
		upd.Title = &c.Title
	}
	if c.Category != "" {
		upd.Category = &c.Category
	}
	if c.Audience != "" {
		upd.Audience = &c.Audience
	}
	if c.Tags != nil {
		upd.Tags = &c.Tags
	}
	if upd == (docindex.DocumentUpdate{}) {
		fmt.Fprintln(deps.Stderr, "error: nothing to update. Set --title, --category, --audience or --tags.")
		return docindex.Errorf(docindex.EINVALID, "no fields to update")
	}

	doc, err := deps.Backend.UpdateDocument(deps.Ctx, c.Path, upd)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Updated %s: title=%q category=%q audience=%q tags=[%s]\n",
		doc.Path, doc.Title, doc.Category, doc.Audience, strings.Join(doc.Tags, ", "))
	return nil
}

// Run executes the related command.
func (c *RelatedCmd) Run(deps *Dependencies) error {
	related, err := deps.Backend.FindRelated(deps.Ctx, c.Path, c.Relation)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	if len(related) == 0 {
		fmt.Fprintf(deps.Stdout, "No documents linked to or from %q.\n", c.Path)
		return nil
	}
	for _, r := range related {
		arrow := "->"
		if r.Direction == docindex.DirectionIncoming {
			arrow = "<-"
		}
		fmt.Fprintf(deps.Stdout, "%s %s  %s\n", arrow, r.Path, r.Relation)
	}
	return nil
}

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := docindex.DocumentFilter{Limit: c.Limit, Offset: c.Offset}
	if c.Category != "" {
		filter.Category = &c.Category
	}
	docs, err := deps.Backend.FindDocuments(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	if len(docs) == 0 {
		fmt.Fprintln(deps.Stdout, "No documents found. Use 'docindex ingest' or 'docindex crawl' to add some.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(deps.Stdout, "%s  %s  [%s] %d chunks\n", d.Path, d.Title, d.Category, d.ChunkCount)
	}
	return nil
}

// Run executes the categories command.
func (c *CategoriesCmd) Run(deps *Dependencies) error {
	cats, err := deps.Backend.ListCategories(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	for _, cat := range cats {
		fmt.Fprintf(deps.Stdout, "%s  %d\n", cat.Category, cat.Documents)
	}
	return nil
}

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Backend.Stats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}
	if c.JSON {
		return writeJSON(deps, stats)
	}
	fmt.Fprintf(deps.Stdout, "documents:  %d\nchunks:     %d\nembedded:   %d\nlinks:      %d\ncategories: %d\nvector search: %t\n",
		stats.Documents, stats.Chunks, stats.Embedded, stats.Links, stats.Categories,
		deps.Backend.VectorSearchEnabled())
	return nil
}
