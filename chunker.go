package docindex

import "strings"

// maxHeadingLevel is the deepest heading level used as a split point.
// Sections still too large below it are split at paragraph boundaries.
const maxHeadingLevel = 4

// Section is a contiguous slice of a markdown document.
type Section struct {
	Title   string `json:"title"`
	Path    string `json:"path"` // "Doc > Heading > Subheading"
	Content string `json:"content"`
}

// SplitMarkdown splits a markdown body into sections along its heading
// structure. It splits at level-2 headings first; sections larger than
// maxSize are re-split at level 3, then level 4, then at blank lines.
// Fenced code blocks and tables are never cut, so a section may exceed
// maxSize when no safe boundary exists.
//
// Every section's Content is a slice of body trimmed only at its ends,
// so joining sections in order reproduces body up to boundary whitespace.
func SplitMarkdown(body, docTitle string, maxSize int) []Section {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	s := &splitter{
		text:    body,
		max:     maxSize,
		regions: protectedRegions(body),
	}
	if len(s.headingStarts(0, len(body), 2)) == 0 && len(body) <= maxSize {
		return []Section{{Title: docTitle, Path: docTitle, Content: strings.TrimSpace(body)}}
	}
	return s.split(0, len(body), 2, docTitle, []string{docTitle})
}

// ExtractTitle returns the text of the first level-1 heading outside code
// blocks, or "" if there is none.
func ExtractTitle(body string) string {
	regions := protectedRegions(body)
	for pos := 0; pos < len(body); pos = nextLine(body, pos) {
		if !strings.HasPrefix(body[pos:], "# ") || insideRegion(regions, pos) {
			continue
		}
		return headingText(body, pos, 1)
	}
	return ""
}

// region is a byte range [start, end) that must not be cut.
type region struct {
	start, end int
}

type splitter struct {
	text    string
	max     int
	regions []region
}

// split cuts text[lo:hi] at headings of the given level and recursively
// re-splits oversized parts.
func (s *splitter) split(lo, hi, level int, title string, trail []string) []Section {
	if level > maxHeadingLevel {
		return s.paragraphs(lo, hi, title, trail)
	}

	starts := s.headingStarts(lo, hi, level)
	if len(starts) == 0 {
		return s.split(lo, hi, level+1, title, trail)
	}

	var out []Section
	for i, start := range starts {
		end := hi
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		segStart := start
		if i == 0 && lo < start && strings.TrimSpace(s.text[lo:start]) != "" {
			// Text before the first heading joins the first section when
			// both fit, otherwise it stands alone under the parent title.
			if end-lo <= s.max {
				segStart = lo
			} else {
				out = append(out, s.fit(lo, start, level+1, title, trail)...)
			}
		}

		heading := headingText(s.text, start, level)
		out = append(out, s.fit(segStart, end, level+1, heading, appendTrail(trail, heading))...)
	}
	return out
}

// fit emits text[lo:hi] as one section if it is small enough and splits
// it further otherwise.
func (s *splitter) fit(lo, hi, nextLevel int, title string, trail []string) []Section {
	content := strings.TrimSpace(s.text[lo:hi])
	if content == "" {
		return nil
	}
	if hi-lo <= s.max {
		return []Section{{Title: title, Path: strings.Join(trail, " > "), Content: content}}
	}
	return s.split(lo, hi, nextLevel, title, trail)
}

// paragraphs greedily packs blank-line separated blocks of text[lo:hi]
// into sections of at most max bytes.
func (s *splitter) paragraphs(lo, hi int, title string, trail []string) []Section {
	var cuts []int
	for idx := lo; idx < hi; {
		j := strings.Index(s.text[idx:hi], "\n\n")
		if j < 0 {
			break
		}
		cut := idx + j + 2
		if cut < hi && !insideRegion(s.regions, cut) {
			cuts = append(cuts, cut)
		}
		idx = cut
	}

	path := strings.Join(trail, " > ")
	var out []Section
	emit := func(a, b int) {
		content := strings.TrimSpace(s.text[a:b])
		if content == "" {
			return
		}
		t := title
		if len(out) > 0 {
			t = title + " (cont.)"
		}
		out = append(out, Section{Title: t, Path: path, Content: content})
	}

	bounds := make([]int, 0, len(cuts)+2)
	bounds = append(bounds, lo)
	bounds = append(bounds, cuts...)
	bounds = append(bounds, hi)

	// Close the current piece at bounds[i] when extending it to the next
	// boundary would exceed max.
	start := lo
	for i := 1; i < len(bounds)-1; i++ {
		if bounds[i+1]-start > s.max && s.hasContent(start, bounds[i]) {
			emit(start, bounds[i])
			start = bounds[i]
		}
	}
	emit(start, hi)
	return out
}

func (s *splitter) hasContent(a, b int) bool {
	return b > a && strings.TrimSpace(s.text[a:b]) != ""
}

// headingStarts returns the line offsets of level headings in text[lo:hi]
// that are not inside a protected region.
func (s *splitter) headingStarts(lo, hi, level int) []int {
	prefix := strings.Repeat("#", level) + " "
	var starts []int
	for pos := lo; pos < hi; pos = nextLine(s.text, pos) {
		if strings.HasPrefix(s.text[pos:hi], prefix) && !insideRegion(s.regions, pos) {
			starts = append(starts, pos)
		}
	}
	return starts
}

// protectedRegions finds fenced code blocks and tables. An unclosed fence
// protects everything to the end of the text.
func protectedRegions(text string) []region {
	var regions []region

	inFence := false
	var fenceStart int
	var fenceChar byte
	tableStart := -1
	for pos := 0; pos < len(text); {
		next := nextLine(text, pos)
		line := strings.TrimRight(text[pos:next], "\r\n")

		if c, ok := fenceMarker(line); ok {
			if !inFence {
				inFence, fenceStart, fenceChar = true, pos, c
			} else if c == fenceChar {
				regions = append(regions, region{fenceStart, next})
				inFence = false
			}
		}

		trimmed := strings.TrimSpace(line)
		isTable := strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
		if isTable && tableStart == -1 {
			tableStart = pos
		} else if !isTable && tableStart != -1 {
			regions = append(regions, region{tableStart, pos})
			tableStart = -1
		}

		pos = next
	}
	if inFence {
		regions = append(regions, region{fenceStart, len(text)})
	}
	if tableStart != -1 {
		regions = append(regions, region{tableStart, len(text)})
	}
	return regions
}

// insideRegion reports whether cutting at pos would split a region.
func insideRegion(regions []region, pos int) bool {
	for _, r := range regions {
		if r.start < pos && pos < r.end {
			return true
		}
	}
	return false
}

func fenceMarker(line string) (byte, bool) {
	switch {
	case strings.HasPrefix(line, "```"):
		return '`', true
	case strings.HasPrefix(line, "~~~"):
		return '~', true
	}
	return 0, false
}

// nextLine returns the offset just past the newline ending the line at pos.
func nextLine(text string, pos int) int {
	if i := strings.IndexByte(text[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(text)
}

func headingText(text string, pos, level int) string {
	line := text[pos:nextLine(text, pos)]
	return strings.TrimSpace(line[level+1:])
}

func appendTrail(trail []string, title string) []string {
	out := make([]string, len(trail), len(trail)+1)
	copy(out, trail)
	return append(out, title)
}
