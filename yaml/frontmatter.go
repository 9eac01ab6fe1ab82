// Package yaml parses YAML front matter at the head of markdown documents.
package yaml

import (
	"strings"

	"github.com/fwojciec/docindex"
	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// FrontMatter holds the recognized front matter fields.
type FrontMatter struct {
	Title     string     `yaml:"title"`
	Category  string     `yaml:"category"`
	Audience  string     `yaml:"audience"`
	Tags      StringList `yaml:"tags"`
	RelatesTo StringList `yaml:"relates_to"`
}

// Links returns the relates_to edges from source. Glob patterns are
// dropped since they name no single document.
func (fm FrontMatter) Links(source string) []docindex.Link {
	var links []docindex.Link
	for _, target := range fm.RelatesTo {
		if strings.ContainsAny(target, "*?") {
			continue
		}
		links = append(links, docindex.Link{Source: source, Target: target, Relation: docindex.RelationRelatesTo})
	}
	return links
}

// StringList decodes either a YAML sequence or a comma-delimited scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	var items []string
	switch value.Kind {
	case yaml.ScalarNode:
		items = strings.Split(value.Value, ",")
	case yaml.SequenceNode:
		if err := value.Decode(&items); err != nil {
			return err
		}
	default:
		return docindex.Errorf(docindex.EPARSE, "line %d: expected a list or a comma-separated string", value.Line)
	}

	var out StringList
	for _, it := range items {
		it = strings.Trim(strings.TrimSpace(it), `"'`)
		if it != "" {
			out = append(out, it)
		}
	}
	*l = out
	return nil
}

// ParseFrontMatter splits text into its front matter and body. Text without
// a leading "---" block, or whose block is never closed, has no front
// matter and is returned unchanged.
func ParseFrontMatter(text string) (FrontMatter, string, error) {
	var fm FrontMatter

	first, rest, ok := cutLine(text)
	if !ok || strings.TrimRight(first, " \t\r") != delimiter {
		return fm, text, nil
	}

	var block strings.Builder
	for {
		line, next, found := cutLine(rest)
		if strings.TrimRight(line, " \t\r") == delimiter {
			rest = next
			break
		}
		if !found {
			return fm, text, nil
		}
		block.WriteString(line)
		block.WriteByte('\n')
		rest = next
	}

	if err := yaml.Unmarshal([]byte(block.String()), &fm); err != nil {
		if _, ok := err.(*docindex.Error); ok {
			return fm, text, err
		}
		return fm, text, docindex.Errorf(docindex.EPARSE, "front matter: %v", err)
	}
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Category = strings.TrimSpace(fm.Category)
	fm.Audience = strings.TrimSpace(fm.Audience)
	return fm, strings.TrimLeft(rest, "\r\n"), nil
}

// cutLine splits off the first line of s without its newline. found is
// false when s has no newline.
func cutLine(s string) (line, rest string, found bool) {
	line, rest, found = strings.Cut(s, "\n")
	return line, rest, found
}
