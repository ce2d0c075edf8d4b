package herdcache

import (
	"context"
	"time"
)

// RemoteStore is a shared key-value storage, it may be unavailable at times.
type RemoteStore interface {
	// Get returns stored value, found is false for a missing or expired key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value with time to live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) error

	// Available is false when storage is known to be unreachable.
	Available(ctx context.Context) bool
}
