package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/go-porterstemmer"
	"github.com/fwojciec/docindex"
)

// Highlighter builds result previews. Keyword matches are wrapped in
// docindex.HighlightOpen and docindex.HighlightClose. A word matches when
// it equals a query term or shares its Porter stem, the same folding the
// keyword index applies.
type Highlighter struct {
	PreviewChars int
}

// Apply sets the Preview of every result. Results with a keyword rank get
// a window around the first matching word with every match marked; the
// rest get a plain prefix.
func (h Highlighter) Apply(results []*docindex.SearchResult, query string) {
	m := newMatcher(docindex.QueryTerms(query))
	for _, r := range results {
		text := strings.Join(strings.Fields(r.Chunk.Content), " ")
		if r.KeywordRank == 0 || m == nil {
			r.Preview = h.window(text, 0)
			continue
		}
		at := 0
		if spans := m.spans(text); len(spans) > 0 {
			at = spans[0][0]
		}
		r.Preview = m.mark(h.window(text, at))
	}
}

func (h Highlighter) size() int {
	if h.PreviewChars <= 0 {
		return DefaultPreviewChars
	}
	return h.PreviewChars
}

// window returns up to size runes of text starting a little before the
// byte offset at. Elided text is shown as "...".
func (h Highlighter) window(text string, at int) string {
	size := h.size()
	if utf8.RuneCountInString(text) <= size {
		return text
	}

	start := 0
	if at > 0 {
		lead := size / 4
		start = at
		for i := 0; i < lead && start > 0; i++ {
			_, n := utf8.DecodeLastRuneInString(text[:start])
			start -= n
		}
	}
	end := start
	for i := 0; i < size && end < len(text); i++ {
		_, n := utf8.DecodeRuneInString(text[end:])
		end += n
	}

	out := strings.TrimSpace(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// matcher recognizes words matching a set of lower-cased query terms.
type matcher struct {
	terms map[string]bool
	stems map[string]bool
}

func newMatcher(terms []string) *matcher {
	if len(terms) == 0 {
		return nil
	}
	m := &matcher{
		terms: make(map[string]bool, len(terms)),
		stems: make(map[string]bool, len(terms)),
	}
	for _, t := range terms {
		m.terms[t] = true
		m.stems[porterstemmer.StemString(t)] = true
	}
	return m
}

func (m *matcher) matches(word string) bool {
	w := strings.ToLower(word)
	return m.terms[w] || m.stems[porterstemmer.StemString(w)]
}

// spans returns the byte ranges of the matching words in text.
func (m *matcher) spans(text string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range text {
		switch {
		case isWordRune(r) && start < 0:
			start = i
		case !isWordRune(r) && start >= 0:
			if m.matches(text[start:i]) {
				spans = append(spans, [2]int{start, i})
			}
			start = -1
		}
	}
	if start >= 0 && m.matches(text[start:]) {
		spans = append(spans, [2]int{start, len(text)})
	}
	return spans
}

func (m *matcher) mark(text string) string {
	spans := m.spans(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		b.WriteString(text[prev:s[0]])
		b.WriteString(docindex.HighlightOpen)
		b.WriteString(text[s[0]:s[1]])
		b.WriteString(docindex.HighlightClose)
		prev = s[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
