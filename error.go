package herdcache

import "github.com/bool64/cache"

// SentinelError is an error.
type SentinelError string

const (
	// ErrClosed indicates the cache was shut down.
	ErrClosed = SentinelError("cache is closed")

	// ErrInvalidConfig indicates configuration that can not be used to build a cache.
	ErrInvalidConfig = SentinelError("invalid cache config")

	// ErrNothingToInvalidate indicates no callbacks were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates recent invalidation.
	ErrAlreadyInvalidated = SentinelError("already invalidated")
)

// ErrNotFound indicates missing cache entry, it matches errors of bool64/cache backends.
var ErrNotFound = cache.ErrNotFound

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}
