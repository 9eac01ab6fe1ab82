// Package http provides the network side of crawling: a guarded,
// size-capped page fetcher, sitemap discovery and robots.txt policies.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"syscall"
	"time"

	"github.com/fwojciec/docindex"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "docindex/1.0"

	maxRedirects = 10
)

// Ensure Fetcher implements docindex.Fetcher at compile time.
var _ docindex.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages with plain HTTP requests. When a Guard is set,
// every host is checked before a request is made, every redirect target is
// checked again, and every address the dialer connects to is re-checked so
// DNS rebinding cannot reach a private network.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
	guard     *Guard
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize caps the response body size.
// Defaults to docindex.MaxResponseSize.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBody = n
	}
}

// WithGuard enables SSRF protection.
func WithGuard(g *Guard) Option {
	return func(f *Fetcher) {
		f.guard = g
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
		maxBody:   docindex.MaxResponseSize,
	}
	for _, opt := range opts {
		opt(f)
	}

	dialer := &net.Dialer{Timeout: f.timeout}
	if f.guard != nil {
		dialer.Control = dialControl
	}
	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	f.client = &http.Client{
		Timeout:       f.timeout,
		Transport:     transport,
		CheckRedirect: f.checkRedirect,
	}
	return f
}

// Fetch retrieves the page at req.URL. HTTP error statuses are returned in
// the response rather than as errors.
func (f *Fetcher) Fetch(ctx context.Context, req docindex.FetchRequest) (*docindex.FetchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid URL %q: %v", req.URL, err)
	}
	if f.guard != nil {
		if err := f.guard.CheckHost(ctx, httpReq.URL.Hostname()); err != nil {
			return nil, err
		}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.LastModified)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.transportError(ctx, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > f.maxBody {
		return nil, docindex.Errorf(docindex.ETOOLARGE, "%s declares %d bytes, limit is %d", req.URL, resp.ContentLength, f.maxBody)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, f.transportError(ctx, req.URL, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, docindex.Errorf(docindex.ETOOLARGE, "%s exceeds %d bytes", req.URL, f.maxBody)
	}

	return &docindex.FetchResponse{
		URL:          resp.Request.URL.String(),
		Status:       resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         string(body),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return docindex.Errorf(docindex.EFETCH, "stopped after %d redirects", maxRedirects)
	}
	if f.guard == nil {
		return nil
	}
	return f.guard.CheckHost(req.Context(), req.URL.Hostname())
}

// transportError keeps application errors raised by the guard, passes
// context errors through and reports everything else as EFETCH.
func (f *Fetcher) transportError(ctx context.Context, url string, err error) error {
	var appErr *docindex.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return docindex.Errorf(docindex.EFETCH, "fetch %s: %v", url, err)
}

// dialControl rejects connections to blocked addresses after resolution.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return docindex.Errorf(docindex.EBLOCKED, "invalid dial address %s", address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return docindex.Errorf(docindex.EBLOCKED, "invalid dial address %s", address)
	}
	return CheckAddr(addr)
}

// statusText renders a status code for error details.
func statusText(code int) string {
	return "HTTP " + strconv.Itoa(code)
}
