package crawl

import (
	"container/heap"
	"sync"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/bloom"
)

// Compile-time interface verification.
var _ docindex.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory URL frontier bounded by a discovery cap.
// Links are popped shallowest first, then by priority, then in the order
// they were pushed. It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Set
	queue *linkHeap
	seq   int
}

// NewFrontier creates a Frontier that accepts at most capacity distinct URLs
// over its lifetime.
func NewFrontier(capacity int) *Frontier {
	h := &linkHeap{}
	heap.Init(h)
	return &Frontier{
		seen:  bloom.NewSet(capacity, 0.01),
		queue: h,
	}
}

// Push adds a link to the frontier. URLs are normalized before
// deduplication. Returns false for duplicates, invalid URLs, and any
// URL offered after the cap is reached.
func (f *Frontier) Push(link docindex.DiscoveredLink) bool {
	url, err := docindex.NormalizeURL(link.URL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.seen.Add(url) {
		return false
	}

	link.URL = url
	heap.Push(f.queue, queued{link: link, seq: f.seq})
	f.seq++
	return true
}

// Mark records a URL as discovered without queuing it. It counts against
// the cap like Push and returns false for duplicates, invalid URLs, and
// any URL offered after the cap is reached.
func (f *Frontier) Mark(rawURL string) bool {
	url, err := docindex.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Add(url)
}

// Pop returns the next link.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (docindex.DiscoveredLink, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queue.Len() == 0 {
		return docindex.DiscoveredLink{}, false
	}
	q, _ := heap.Pop(f.queue).(queued)
	return q.link, true
}

// Len returns the number of URLs in the queue.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Len()
}

// Seen returns true if the URL has been processed or queued.
func (f *Frontier) Seen(rawURL string) bool {
	url, err := docindex.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Has(url)
}

// Full reports whether the discovery cap has been reached.
func (f *Frontier) Full() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Full()
}

// EstimatedSeen returns the approximate number of discovered URLs.
func (f *Frontier) EstimatedSeen() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.EstimatedCount()
}

type queued struct {
	link docindex.DiscoveredLink
	seq  int
}

// linkHeap implements heap.Interface ordered by depth, priority, then seq.
type linkHeap []queued

func (h linkHeap) Len() int { return len(h) }

func (h linkHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.link.Depth != b.link.Depth {
		return a.link.Depth < b.link.Depth
	}
	if a.link.Priority != b.link.Priority {
		return a.link.Priority > b.link.Priority
	}
	return a.seq < b.seq
}

func (h linkHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *linkHeap) Push(x any) {
	q, _ := x.(queued)
	*h = append(*h, q)
}

func (h *linkHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
