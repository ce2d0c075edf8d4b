package herdcache

import "context"

// FailureHandler reacts to failed computation of an entry.
type FailureHandler[V any] func(ctx context.Context, key string, e *Entry[V], err error)

// OnFailure adds a handler called after the failed entry is removed and before waiters receive the error.
//
// It must be called before the cache is used.
func (c *Cache[V]) OnFailure(h FailureHandler[V]) {
	prev := c.onFailure

	c.onFailure = func(ctx context.Context, key string, e *Entry[V], err error) {
		prev(ctx, key, e, err)
		h(ctx, key, e, err)
	}
}

// evictOnFailure frees the slot of failed entry, so that next Apply starts a new computation.
//
// Entry is only removed if it still occupies the key, a newer entry is kept.
func (c *Cache[V]) evictOnFailure(ctx context.Context, key string, e *Entry[V], err error) {
	removed := c.store.CompareAndDelete(key, e)

	c.stat.Add(ctx, MetricFailed, 1, "name", c.config.Name)
	c.log.Warn(ctx, "failed to compute cache value",
		"error", err,
		"name", c.config.Name,
		"key", key,
		"removed", removed)
}
