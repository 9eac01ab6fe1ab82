package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingFetcher implements docindex.Fetcher.
var _ docindex.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   docindex.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next docindex.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, req docindex.FetchRequest) (resp *docindex.FetchResponse, err error) {
	defer func(begin time.Time) {
		var status, size int
		if resp != nil {
			status, size = resp.Status, len(resp.Body)
		}
		f.logger.Info("fetch",
			"url", req.URL,
			"conditional", req.ETag != "" || req.LastModified != "",
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, req)
}
