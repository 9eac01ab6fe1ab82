// Package bloom provides a bounded URL set backed by a Bloom filter.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// minItems is the smallest item count a filter is sized for, so tiny sets
// do not saturate their bits.
const minItems = 1024

// Set records URLs up to a fixed capacity. Memory is fixed by the filter
// size, not by the URLs added. False positives are possible: a new URL
// may be reported as present with roughly the configured probability.
// False negatives are not.
//
// Set is not safe for concurrent use.
type Set struct {
	f   *bloom.BloomFilter
	n   int
	cap int
}

// NewSet creates a Set holding at most capacity URLs, with the filter sized
// for capacity items, or minItems if larger, at the given false positive
// rate.
func NewSet(capacity int, fpRate float64) *Set {
	return &Set{
		f:   bloom.NewWithEstimates(uint(max(capacity, minItems)), fpRate),
		cap: capacity,
	}
}

// Add records url. It returns false if url is, or may be, already present,
// or if the set is full. A full set never drops existing members.
func (s *Set) Add(url string) bool {
	if s.Full() || s.f.TestString(url) {
		return false
	}
	s.f.AddString(url)
	s.n++
	return true
}

// Has reports whether url may have been added.
func (s *Set) Has(url string) bool {
	return s.f.TestString(url)
}

// Len returns the number of URLs accepted by Add.
func (s *Set) Len() int {
	return s.n
}

// Full reports whether the set has reached its capacity.
func (s *Set) Full() bool {
	return s.n >= s.cap
}

// EstimatedCount returns the filter's approximation of its item count.
func (s *Set) EstimatedCount() uint {
	return uint(s.f.ApproximatedSize())
}
