package crawl

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docindex"
)

// ComputeHash computes a hash of the content using xxhash.
func ComputeHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// TruncateURL shortens a URL for display, keeping the end which is more informative.
func TruncateURL(url string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if maxLen < 4 {
		return url[:min(len(url), maxLen)]
	}
	if len(url) <= maxLen {
		return url
	}
	return "..." + url[len(url)-maxLen+3:]
}

// summaryOrder is the order in which outcome counts are printed.
var summaryOrder = []docindex.Outcome{
	docindex.OutcomeCrawled,
	docindex.OutcomeUnchanged,
	docindex.OutcomeSkipped,
	docindex.OutcomeBlocked,
	docindex.OutcomeError,
	docindex.OutcomeDryRun,
}

// FormatSummary renders the non-zero outcome counts of a report, for
// example "3 crawled, 1 error".
func FormatSummary(report *docindex.CrawlReport) string {
	var parts []string
	for _, o := range summaryOrder {
		if n := report.Count(o); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(parts) == 0 {
		return "nothing crawled"
	}
	s := strings.Join(parts, ", ")
	if report.Canceled {
		s += " (canceled)"
	}
	return s
}
