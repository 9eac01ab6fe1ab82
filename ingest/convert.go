package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/docindex/toml"
)

// Convert renders a supported file as markdown for chunking. Markdown is
// returned unchanged and unknown extensions pass through.
func Convert(text, name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt":
		return convertText(text, name)
	case ".ipynb":
		return convertNotebook(text)
	case ".toml":
		return toml.ConvertToMarkdown(text, path.Base(name))
	case ".csv":
		return convertCSV(text, name)
	case ".json":
		return convertJSON(text, name)
	}
	return text
}

// convertText adds an H1 built from the file name.
func convertText(text, name string) string {
	words := strings.FieldsFunc(stem(name), func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return "# " + strings.Join(words, " ") + "\n\n" + text
}

type notebook struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
	Metadata struct {
		Kernelspec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
}

// convertNotebook keeps markdown and raw cells and fences code cells with
// the kernel language. Unparseable notebooks pass through.
func convertNotebook(text string) string {
	var nb notebook
	if err := json.Unmarshal([]byte(text), &nb); err != nil || len(nb.Cells) == 0 {
		return text
	}
	lang := nb.Metadata.Kernelspec.Language
	if lang == "" {
		lang = nb.Metadata.LanguageInfo.Name
	}

	var parts []string
	for _, cell := range nb.Cells {
		src := strings.TrimSpace(cellSource(cell.Source))
		if src == "" {
			continue
		}
		switch cell.CellType {
		case "markdown", "raw":
			parts = append(parts, src)
		case "code":
			parts = append(parts, "```"+lang+"\n"+src+"\n```")
		}
	}
	if len(parts) == 0 {
		return text
	}
	return strings.Join(parts, "\n\n")
}

// cellSource accepts both the list-of-lines and the single string form.
func cellSource(raw json.RawMessage) string {
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

// convertCSV renders a header row and at least one record as a markdown
// table. Short rows are padded and long rows truncated to the header.
func convertCSV(text, name string) string {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil || len(rows) < 2 {
		return text
	}

	header := rows[0]
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", stem(name))
	writeRow(&b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, row := range rows[1:] {
		cells := make([]string, len(header))
		copy(cells, row)
		writeRow(&b, cells)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

// convertJSON renders top-level object keys as sections. Other documents
// become a single fenced block.
func convertJSON(text, name string) string {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return text
	}
	title := "# " + path.Base(name)

	obj, ok := data.(map[string]any)
	if !ok || len(obj) == 0 {
		return title + "\n\n```json\n" + indent(data) + "\n```"
	}

	parts := []string{title}
	for _, key := range orderedKeys(text, obj) {
		switch v := obj[key].(type) {
		case map[string]any, []any:
			parts = append(parts, "## "+key+"\n\n```json\n"+indent(v)+"\n```")
		default:
			parts = append(parts, fmt.Sprintf("- **%s**: %v", key, v))
		}
	}
	return strings.Join(parts, "\n\n")
}

// orderedKeys returns the keys of the top-level object in document order.
func orderedKeys(text string, obj map[string]any) []string {
	dec := json.NewDecoder(strings.NewReader(text))
	keys := make([]string, 0, len(obj))
	if _, err := dec.Token(); err != nil {
		return keys
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			break
		}
		if _, ok := obj[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func indent(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
