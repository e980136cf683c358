package telemetry

import "time"

// ring keeps at most max items, dropping the oldest on overflow.
type ring[T any] struct {
	items []T
	max   int
	stamp func(T) time.Time
}

func newRing[T any](limit int, stamp func(T) time.Time) *ring[T] {
	if limit <= 0 {
		limit = 1
	}
	return &ring[T]{items: make([]T, 0, min(limit, 256)), max: limit, stamp: stamp}
}

// push appends v and reports whether an old item was displaced.
func (r *ring[T]) push(v T) bool {
	dropped := false
	if len(r.items) >= r.max {
		n := len(r.items) - r.max + 1
		copy(r.items, r.items[n:])
		r.items = r.items[:len(r.items)-n]
		dropped = true
	}
	r.items = append(r.items, v)
	return dropped
}

// pruneBefore removes items stamped before cutoff and returns how many.
func (r *ring[T]) pruneBefore(cutoff time.Time) int {
	writeIdx := 0
	for _, it := range r.items {
		if !r.stamp(it).Before(cutoff) {
			r.items[writeIdx] = it
			writeIdx++
		}
	}
	removed := len(r.items) - writeIdx
	clear(r.items[writeIdx:])
	r.items = r.items[:writeIdx]
	return removed
}

// since copies items stamped at or after cutoff.
func (r *ring[T]) since(cutoff time.Time) []T {
	var out []T
	for _, it := range r.items {
		if !r.stamp(it).Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

func (r *ring[T]) len() int { return len(r.items) }

func (r *ring[T]) last() (T, bool) {
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	return r.items[len(r.items)-1], true
}
