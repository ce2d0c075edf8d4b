package herdcache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process RemoteStore, it can be shared by caches of a single process.
type MemoryStore struct {
	data *gocache.Cache
	down atomic.Bool
}

var _ RemoteStore = &MemoryStore{}

// NewMemoryStore creates in-process storage, expired items are purged every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		data: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get returns a copy of stored value.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.data.Get(key)
	if !found {
		return nil, false, nil
	}

	b := v.([]byte)

	return append([]byte(nil), b...), true, nil
}

// Set stores a copy of value.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	m.data.Set(key, append([]byte(nil), value...), ttl)

	return nil
}

// Delete removes keys.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.data.Delete(k)
	}

	return nil
}

// Flush removes all items.
func (m *MemoryStore) Flush() {
	m.data.Flush()
}

// SetAvailable toggles reported availability, it allows simulation of outages.
func (m *MemoryStore) SetAvailable(available bool) {
	m.down.Store(!available)
}

// Available is true unless disabled with SetAvailable.
func (m *MemoryStore) Available(_ context.Context) bool {
	return !m.down.Load()
}
