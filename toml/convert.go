package toml

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ConvertToMarkdown renders a TOML document as markdown. Top-level tables
// and arrays become H2 sections; top-level scalars become list items.
// Keys are emitted in sorted order. Text that does not parse is wrapped in
// a fenced block under the file name.
func ConvertToMarkdown(text, name string) string {
	var data map[string]any
	if err := toml.Unmarshal([]byte(text), &data); err != nil {
		return fmt.Sprintf("# %s\n\n```toml\n%s\n```", name, strings.TrimRight(text, "\n"))
	}

	parts := []string{"# " + name}
	for _, key := range sortedKeys(data) {
		switch v := data[key].(type) {
		case map[string]any:
			parts = append(parts, "## "+key)
			for _, k := range sortedKeys(v) {
				switch inner := v[k].(type) {
				case map[string]any, []any:
					parts = append(parts, fmt.Sprintf("**%s**:\n```\n%s\n```", k, indentJSON(inner)))
				default:
					parts = append(parts, fmt.Sprintf("- **%s**: %v", k, inner))
				}
			}
		case []any:
			parts = append(parts, "## "+key)
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					pairs := make([]string, 0, len(m))
					for _, k := range sortedKeys(m) {
						pairs = append(pairs, fmt.Sprintf("%s=%v", k, m[k]))
					}
					parts = append(parts, "- "+strings.Join(pairs, ", "))
				} else {
					parts = append(parts, fmt.Sprintf("- %v", item))
				}
			}
		default:
			parts = append(parts, fmt.Sprintf("- **%s**: %v", key, v))
		}
	}
	return strings.Join(parts, "\n\n")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
