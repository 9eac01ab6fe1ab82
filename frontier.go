package docindex

import "context"

// URLFrontier manages a bounded crawl queue with deduplication.
type URLFrontier interface {
	// Push adds a link to the frontier. Returns false if the URL has
	// already been seen or the frontier has reached its capacity.
	Push(link DiscoveredLink) bool

	// Pop returns the next link, shallowest first.
	// Returns false if the frontier is empty.
	Pop() (DiscoveredLink, bool)

	// Len returns the number of URLs in the queue.
	Len() int

	// Seen returns true if the URL has been processed or queued.
	Seen(url string) bool

	// Full reports whether the capacity has been reached. A full frontier
	// stops accepting new URLs but never evicts queued ones.
	Full() bool
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
