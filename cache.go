package herdcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// Computation produces a value for a cache key.
//
// Context of computation is detached from the caller, it keeps values, but is never canceled.
type Computation[V any] func(ctx context.Context) (V, error)

// Cache computes values once per key and serves them until expiration.
//
// Concurrent callers of the same key share a single computation and its result.
// Please use NewCache to create instance.
type Cache[V any] struct {
	config    Config
	expiry    ExpiryTimes
	store     *BoundedStore[V]
	log       ctxd.Logger
	stat      stats.Tracker
	onFailure FailureHandler[V]

	closed   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	janitor  sync.WaitGroup
}

// NewCache creates a single-flight cache instance.
//
// Invalid configuration, e.g. non-positive TimeToLive, is reported with ErrInvalidConfig.
func NewCache[V any](config Config) (*Cache[V], error) {
	config = config.withDefaults()

	expiry, err := NewExpiryTimes(config.TimeToLive, config.TimeToIdle)
	if err != nil {
		return nil, err
	}

	if config.InitialCapacity < 0 || config.CleanupInterval < 0 {
		return nil, fmt.Errorf("%w: negative initial capacity or cleanup interval", ErrInvalidConfig)
	}

	c := &Cache[V]{
		config: config,
		expiry: expiry,
		log:    config.Logger,
		stat:   config.Stats,
		stop:   make(chan struct{}),
	}

	c.store, err = NewBoundedStore[V](config.MaxCapacity, config.InitialCapacity, c.evicted)
	if err != nil {
		return nil, err
	}

	c.onFailure = c.evictOnFailure

	if config.CleanupInterval > 0 {
		c.janitor.Add(1)

		go c.cleaner()
	}

	return c, nil
}

func (c *Cache[V]) storageKey(key string) string {
	if c.config.KeyHasher == nil {
		return key
	}

	return c.config.KeyHasher.Hash(key)
}

// usable is true for entries that can be shared instead of a new computation.
func (c *Cache[V]) usable(ctx context.Context, e *Entry[V], now time.Time) bool {
	if e.InFlight() {
		return true
	}

	if refresh(ctx) {
		return false
	}

	return e.State(c.expiry, now) == Fresh
}

// Apply returns a future of cached value or of a computation started with default executor.
func (c *Cache[V]) Apply(ctx context.Context, key string, fn Computation[V]) *Future[V] {
	return c.ApplyOn(ctx, key, fn, c.config.Executor)
}

// ApplyOn returns a future of cached value or of a computation started with exec.
//
// At most one computation per key is in flight, concurrent callers receive the same future.
// Failed computation is not cached, next call starts a new one.
func (c *Cache[V]) ApplyOn(ctx context.Context, key string, fn Computation[V], exec Executor) *Future[V] {
	return c.apply(ctx, c.storageKey(key), fn, exec, nil)
}

// apply implements ApplyOn for a storage key, optional onValue is called with successful result
// before it is published, as long as the entry still occupies the key.
func (c *Cache[V]) apply(
	ctx context.Context,
	key string,
	fn Computation[V],
	exec Executor,
	onValue func(ctx context.Context, key string, e *Entry[V], v V),
) *Future[V] {
	if c.closed.Load() {
		return Failed[V](ErrClosed)
	}

	now := c.config.Now()

	if e, found := c.store.Get(key); found && c.usable(ctx, e, now) {
		return c.shared(ctx, key, e, now, MetricHit)
	}

	e := NewEntry(NewFuture[V](), now)

	for {
		prev, loaded := c.store.PutIfAbsent(key, e)
		if !loaded {
			break
		}

		if c.usable(ctx, prev, now) {
			return c.shared(ctx, key, prev, now, MetricCoalesced)
		}

		if c.store.CompareAndSwap(key, prev, e) {
			c.stat.Add(ctx, MetricExpired, 1, "name", c.config.Name)

			break
		}
		// Slot was changed concurrently, checking again.
	}

	c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)
	c.log.Debug(ctx, "cache miss, computing value", "name", c.config.Name, "key", key)

	c.schedule(ctx, key, e, fn, exec, onValue)

	return e.future
}

func (c *Cache[V]) shared(ctx context.Context, key string, e *Entry[V], now time.Time, metric string) *Future[V] {
	e.Touch(now)

	c.stat.Add(ctx, metric, 1, "name", c.config.Name)
	c.log.Debug(ctx, "cache hit", "name", c.config.Name, "key", key, "inFlight", e.InFlight())

	return e.future
}

func (c *Cache[V]) schedule(
	ctx context.Context,
	key string,
	e *Entry[V],
	fn Computation[V],
	exec Executor,
	onValue func(ctx context.Context, key string, e *Entry[V], v V),
) {
	if exec == nil {
		exec = c.config.Executor
	}

	ctx = detach(ctx)

	err := exec.Submit(func() {
		defer c.stat.Add(ctx, MetricBuild, 1, "name", c.config.Name)

		v, err := compute(ctx, fn)
		if err != nil {
			c.fail(ctx, key, e, err)

			return
		}

		if onValue != nil && c.occupies(key, e) {
			onValue(ctx, key, e, v)
		}

		e.stamp(c.config.Now())
		e.future.resolve(v, nil)
	})
	if err != nil {
		c.fail(ctx, key, e, fmt.Errorf("scheduling computation: %w", err))
	}
}

// fail frees the slot before the failure is published to waiters.
func (c *Cache[V]) fail(ctx context.Context, key string, e *Entry[V], err error) {
	c.onFailure(ctx, key, e, err)

	var zero V

	e.future.resolve(zero, err)
}

func compute[V any](ctx context.Context, fn Computation[V]) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computation panicked: %v", r)
		}
	}()

	return fn(ctx)
}

func (c *Cache[V]) occupies(key string, e *Entry[V]) bool {
	cur, found := c.store.Peek(key)

	return found && cur == e
}

// Get returns future of a usable entry without starting a computation.
func (c *Cache[V]) Get(ctx context.Context, key string) (*Future[V], bool) {
	return c.get(ctx, c.storageKey(key))
}

// Read returns usable value without starting a computation, it waits for a computation in flight.
//
// ErrNotFound is returned for missing or expired entry.
func (c *Cache[V]) Read(ctx context.Context, key string) (V, error) {
	f, found := c.Get(ctx, key)

	return await(ctx, f, found)
}

func await[V any](ctx context.Context, f *Future[V], found bool) (V, error) {
	if !found {
		var zero V

		return zero, ErrNotFound
	}

	return f.Wait(ctx)
}

func (c *Cache[V]) get(ctx context.Context, key string) (*Future[V], bool) {
	if c.closed.Load() {
		return nil, false
	}

	e, found := c.store.Get(key)
	if !found {
		return nil, false
	}

	now := c.config.Now()
	if e.InFlight() || e.State(c.expiry, now) == Fresh {
		e.Touch(now)

		return e.future, true
	}

	return nil, false
}

// peek returns entry by storage key without affecting its state.
func (c *Cache[V]) peek(key string) (*Entry[V], bool) {
	return c.store.Peek(key)
}

// Clear removes entry, next Apply starts a new computation.
//
// Computation in flight is not canceled, its waiters still receive the result.
func (c *Cache[V]) Clear(ctx context.Context, key string) {
	c.clear(ctx, c.storageKey(key))
}

func (c *Cache[V]) clear(ctx context.Context, key string) {
	if c.store.Delete(key) {
		c.log.Debug(ctx, "cleared cache entry", "name", c.config.Name, "key", key)
	}
}

// ClearAll removes all entries.
func (c *Cache[V]) ClearAll(ctx context.Context) {
	cnt := c.store.DeleteAll()

	c.log.Debug(ctx, "cleared all cache entries", "name", c.config.Name, "count", cnt)
}

// Len returns number of entries, including expired and in flight.
func (c *Cache[V]) Len() int {
	return c.store.Len()
}

// Shutdown stops background cleanup and executor, no operations are valid afterwards.
//
// Executor is shut down if it has Shutdown method.
func (c *Cache[V]) Shutdown() {
	c.stopOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		c.janitor.Wait()

		if s, ok := c.config.Executor.(interface{ Shutdown() }); ok {
			s.Shutdown()
		}
	})
}

func (c *Cache[V]) evicted(key string, e *Entry[V]) {
	ctx := context.Background()

	c.stat.Add(ctx, MetricEvict, 1, "name", c.config.Name)
	c.log.Debug(ctx, "evicted cache entry", "name", c.config.Name, "key", key, "inFlight", e.InFlight())
}

func (c *Cache[V]) cleaner() {
	defer c.janitor.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// deleteExpired removes expired entries and reports items count.
func (c *Cache[V]) deleteExpired() {
	ctx := context.Background()
	now := c.config.Now()
	cnt := 0

	c.store.Range(func(key string, e *Entry[V]) bool {
		if e.State(c.expiry, now) != Fresh && c.store.CompareAndDelete(key, e) {
			cnt++
		}

		return true
	})

	items := c.store.Len()

	c.log.Debug(ctx, "deleted expired cache entries",
		"name", c.config.Name,
		"deleted", cnt,
		"count", items)
	c.stat.Set(ctx, MetricItems, float64(items), "name", c.config.Name)
}
