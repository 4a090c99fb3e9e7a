package system

import "sync"

// Ring is a fixed-size buffer keeping the most recent entries.
type Ring[T any] struct {
	mu      sync.RWMutex
	entries []T
	head    int
	size    int
}

// NewRing creates a ring holding up to n entries.
func NewRing[T any](n int) *Ring[T] {
	if n <= 0 {
		n = 1
	}
	return &Ring[T]{entries: make([]T, n)}
}

// Add appends v, overwriting the oldest entry when full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.head] = v
	r.head = (r.head + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// Recent returns up to limit entries accepted by keep, newest first.
func (r *Ring[T]) Recent(limit int, keep func(T) bool) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, min(limit, r.size))
	for i := 0; i < r.size && len(out) < limit; i++ {
		v := r.entries[(r.head-1-i+len(r.entries))%len(r.entries)]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of entries held.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
