package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/crawl"
	"github.com/fwojciec/docindex/fs"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	if c.Embed && deps.Embedder == nil {
		fmt.Fprintln(deps.Stderr, "error: --embed requires an embedding provider. Set embed.provider in the config file.")
		return docindex.Errorf(docindex.ECONFIG, "no embedding provider configured")
	}

	cachePath := c.Cache
	if cachePath == "" {
		cachePath = deps.Config.Crawl.CachePath
	}
	cache, err := fs.LoadCrawlCache(cachePath, deps.Logger)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		return err
	}

	maxURLs := c.MaxURLs
	if maxURLs <= 0 {
		maxURLs = deps.Config.Crawl.MaxURLs
	}
	if cr, ok := deps.Crawler.(*crawl.Crawler); ok {
		if c.Concurrency > 0 {
			cr.Concurrency = c.Concurrency
		}
		cr.Progress = func(e crawl.ProgressEvent) {
			fmt.Fprintf(deps.Stderr, "[%d done, %d queued] %s %s\n",
				e.Completed, e.Queued, e.Outcome.Outcome, crawl.TruncateURL(e.Outcome.URL, 80))
		}
	}

	report, err := deps.Crawler.Crawl(deps.Ctx, c.URL, docindex.CrawlOptions{
		Mode:     docindex.CrawlMode(c.Mode),
		MaxDepth: c.Depth,
		MaxURLs:  maxURLs,
		Include:  c.Include,
		Exclude:  c.Exclude,
		Force:    c.Force,
		DryRun:   c.DryRun,
		Embed:    c.Embed,
	}, cache)
	if report != nil {
		printCrawlReport(deps, report)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(deps.Stderr, "crawl interrupted; partial results were saved")
		} else {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docindex.ErrorMessage(err))
		}
		return err
	}
	return nil
}

func printCrawlReport(deps *Dependencies, report *docindex.CrawlReport) {
	for _, o := range report.Outcomes {
		switch o.Outcome {
		case docindex.OutcomeCrawled:
			fmt.Fprintf(deps.Stdout, "crawled  %s (%d chunks)\n", o.URL, o.Chunks)
		case docindex.OutcomeDryRun:
			fmt.Fprintf(deps.Stdout, "found    %s\n", o.URL)
		case docindex.OutcomeError, docindex.OutcomeBlocked, docindex.OutcomeSkipped:
			fmt.Fprintf(deps.Stdout, "%-8s %s: %s\n", o.Outcome, o.URL, o.Detail)
		}
	}
	fmt.Fprintf(deps.Stdout, "%s: %s\n", report.Root, crawl.FormatSummary(report))
}
