package herdcache

import (
	"sync/atomic"
	"time"
)

// Entry is a cache slot holding pending or resolved result of a computation.
type Entry[V any] struct {
	future         *Future[V]
	createdAt      atomic.Int64
	lastAccessedAt atomic.Int64
}

// NewEntry creates an entry for a future, both timestamps are set to now.
func NewEntry[V any](f *Future[V], now time.Time) *Entry[V] {
	e := &Entry[V]{future: f}
	e.stamp(now)

	return e
}

// Future returns result handle of the entry.
func (e *Entry[V]) Future() *Future[V] {
	return e.future
}

// CreatedAt returns time of value creation.
func (e *Entry[V]) CreatedAt() time.Time {
	return time.Unix(0, e.createdAt.Load())
}

// LastAccessedAt returns time of last read hit.
func (e *Entry[V]) LastAccessedAt() time.Time {
	return time.Unix(0, e.lastAccessedAt.Load())
}

// Touch updates last access time.
func (e *Entry[V]) Touch(now time.Time) {
	e.lastAccessedAt.Store(now.UnixNano())
}

// InFlight is true while computation of the entry is not complete.
func (e *Entry[V]) InFlight() bool {
	return !e.future.Resolved()
}

// stamp resets both timestamps, it is called when value becomes available.
func (e *Entry[V]) stamp(now time.Time) {
	ts := now.UnixNano()
	e.createdAt.Store(ts)
	e.lastAccessedAt.Store(ts)
}

// State returns expiration state, entries in flight are always fresh.
func (e *Entry[V]) State(et ExpiryTimes, now time.Time) State {
	if e.InFlight() {
		return Fresh
	}

	return et.Classify(e.CreatedAt(), e.LastAccessedAt(), now)
}
