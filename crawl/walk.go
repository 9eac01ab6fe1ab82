package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/docindex"
)

// walk holds the state of a single crawl. Everything except the worker
// side of visit is owned by the coordinating goroutine.
type walk struct {
	crawler  *Crawler
	opts     docindex.CrawlOptions
	cache    docindex.CrawlCache
	policy   docindex.RobotsPolicy
	filter   *docindex.URLFilter
	scope    scope
	root     string
	logger   *slog.Logger
	report   *docindex.CrawlReport
	frontier *Frontier

	bfs   bool
	depth int

	capWarned       bool
	completed       int
	rootUnreachable string
}

// offer pushes an in-scope link onto the frontier. Links rejected by the
// include/exclude filter count as discovered and are reported as skipped
// once, never fetched.
func (w *walk) offer(link docindex.DiscoveredLink) {
	u, err := docindex.NormalizeURL(link.URL)
	if err != nil || !w.scope.contains(u) {
		return
	}
	link.URL = u

	if !w.filter.Match(u) {
		if w.frontier.Mark(u) {
			w.record(&docindex.CrawlOutcome{URL: u, Outcome: docindex.OutcomeSkipped, Detail: "filtered"})
			return
		}
	} else if w.frontier.Push(link) {
		return
	}
	if w.frontier.Seen(u) || !w.frontier.Full() {
		return
	}
	if !w.capWarned {
		w.capWarned = true
		w.logger.Warn("URL cap reached, no longer discovering new URLs",
			"cap", w.opts.URLCap(), "discovered", w.frontier.EstimatedSeen())
	}
}

// run dispatches frontier links to a pool of workers until the frontier
// is exhausted and no work is pending, or ctx ends.
func (w *walk) run(ctx context.Context) error {
	concurrency := w.crawler.concurrency()

	workCh := make(chan docindex.DiscoveredLink, concurrency)
	resultCh := make(chan visitResult)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range workCh {
				if ctx.Err() != nil {
					continue
				}
				// The coordinator drains resultCh until it is closed, so a
				// finished visit is always delivered.
				resultCh <- w.visit(ctx, link)
				w.pause(ctx)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	pending := 0
	var nextLink *docindex.DiscoveredLink
	if link, ok := w.frontier.Pop(); ok {
		nextLink = &link
	}

coordinatorLoop:
	for {
		if nextLink == nil && pending == 0 {
			break coordinatorLoop
		}
		if ctx.Err() != nil {
			break coordinatorLoop
		}

		if nextLink != nil {
			select {
			case <-ctx.Done():
				break coordinatorLoop
			case workCh <- *nextLink:
				pending++
				nextLink = nil
			case res := <-resultCh:
				pending--
				w.handle(res)
			}
		} else {
			select {
			case <-ctx.Done():
				break coordinatorLoop
			case res := <-resultCh:
				pending--
				w.handle(res)
			}
		}

		if nextLink == nil {
			if link, ok := w.frontier.Pop(); ok {
				nextLink = &link
			}
		}
	}

	close(workCh)

	// Results finished before cancellation are still recorded.
	for res := range resultCh {
		w.handle(res)
	}

	return ctx.Err()
}

// handle records a worker result and enqueues its links.
func (w *walk) handle(res visitResult) {
	if res.canceled {
		return
	}
	if res.entry != nil {
		w.cache.Put(res.outcome.URL, *res.entry)
	}
	if res.rootErr != "" {
		w.rootUnreachable = res.rootErr
	}
	for _, link := range res.next {
		w.offer(link)
	}

	w.record(res.outcome)

	w.completed++
	if w.completed%w.crawler.batchSize() == 0 {
		if err := w.cache.Flush(); err != nil {
			w.logger.Error("flush crawl cache", "err", err)
		}
	}
}

func (w *walk) record(out *docindex.CrawlOutcome) {
	w.report.Outcomes = append(w.report.Outcomes, out)
	if w.crawler.Progress != nil {
		w.crawler.Progress(ProgressEvent{
			Completed: len(w.report.Outcomes),
			Queued:    w.frontier.Len(),
			Outcome:   out,
		})
	}
}

// pause waits Delay between requests made by one worker.
func (w *walk) pause(ctx context.Context) {
	if w.crawler.Delay <= 0 {
		return
	}
	t := time.NewTimer(w.crawler.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
