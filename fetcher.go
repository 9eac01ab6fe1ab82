package docindex

import "context"

// FetchRequest describes a single, optionally conditional, page fetch.
type FetchRequest struct {
	URL string

	// Validators from a previous fetch. When set, the request is
	// conditional and an unchanged page yields http.StatusNotModified.
	ETag         string
	LastModified string
}

// FetchResponse is the result of a fetch that reached the server.
type FetchResponse struct {
	// URL is the final URL after redirects.
	URL          string
	Status       int
	ContentType  string
	Body         string
	ETag         string
	LastModified string
}

// Fetcher retrieves pages over the network.
type Fetcher interface {
	// Fetch performs the request. Transport failures return EFETCH,
	// private or internal targets return EBLOCKED without connecting, and
	// oversized bodies return ETOOLARGE. HTTP error statuses are returned
	// in the response, not as errors.
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// HostGuard rejects hosts that resolve to private or internal addresses.
type HostGuard interface {
	// CheckHost returns EBLOCKED if host must not be contacted.
	CheckHost(ctx context.Context, host string) error
}
