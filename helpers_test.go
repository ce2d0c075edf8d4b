package herdcache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vearutop/herdcache"
)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestCache[V any](t *testing.T, cfg herdcache.Config) *herdcache.Cache[V] {
	t.Helper()

	c, err := herdcache.NewCache[V](cfg)
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	return c
}

func value[V any](v V) herdcache.Computation[V] {
	return func(ctx context.Context) (V, error) {
		return v, nil
	}
}

func wait[V any](t *testing.T, f *herdcache.Future[V]) (V, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return f.Wait(ctx)
}
