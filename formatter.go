package docindex

import (
	"fmt"
	"strings"
)

// FormatDocument renders a stored document by reassembling its chunks in
// order under a short metadata header.
func FormatDocument(doc *Document, chunks []*Chunk) string {
	var sb strings.Builder
	header := doc.Title
	if header == "" {
		header = doc.Path
	}
	sb.WriteString("## Document: " + header + "\n")
	fmt.Fprintf(&sb, "path: %s\ncategory: %s\naudience: %s\n", doc.Path, doc.Category, doc.Audience)
	if len(doc.Tags) > 0 {
		sb.WriteString("tags: " + strings.Join(doc.Tags, ", ") + "\n")
	}

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	if len(parts) > 0 {
		sb.WriteString("\n" + strings.Join(parts, "\n\n"))
	}
	return sb.String()
}

// FormatResults renders search results as a numbered list with previews.
// Results are separated by blank lines.
func FormatResults(results []*SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for i, r := range results {
		title := r.Chunk.Title
		if r.Document != nil && r.Document.Title != "" && title != r.Document.Title {
			title = r.Document.Title + " > " + title
		}
		parts = append(parts, fmt.Sprintf("%d. %s (%s) [%.4f]\n%s", i+1, title, r.Chunk.Path, r.Score, r.Preview))
	}
	return strings.Join(parts, "\n\n")
}
