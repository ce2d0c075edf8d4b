package herdcache

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
)

// RemoteCache is a two-tier cache with local single-flight computations and remote storage.
//
// With UseStale enabled every value is also stored under a shadow key (StalePrefix + key)
// with a longer time to live. When primary value is missing, but shadow value is available,
// shadow value is served while a single background computation refreshes both copies.
//
// When remote storage is unavailable, RemoteCache works as Cache.
// Please use NewRemoteCache to create instance.
type RemoteCache[V any] struct {
	local  *Cache[V]
	config RemoteConfig
	remote RemoteStore
	codec  Codec
	prefix string
	log    ctxd.Logger
	stat   stats.Tracker

	mu      sync.Mutex
	closed  bool
	pending map[string][]*pendingWrite
	writes  sync.WaitGroup
}

// pendingWrite is a remote write of a computed value, Clear of its key cancels it.
type pendingWrite struct {
	canceled atomic.Bool
	done     chan struct{}
}

// NewRemoteCache creates a two-tier cache instance.
func NewRemoteCache[V any](config RemoteConfig) (*RemoteCache[V], error) {
	config = config.withDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	local, err := NewCache[V](config.Config)
	if err != nil {
		return nil, err
	}

	rc := &RemoteCache[V]{
		local:  local,
		config: config,
		remote: config.Remote,
		codec:  config.Codec,
		log:    config.Logger,
		stat:   config.Stats,

		pending: make(map[string][]*pendingWrite),
	}

	if kp, ok := config.Codec.(KeyPrefixer); ok {
		rc.prefix = kp.KeyPrefix()
	}

	return rc, nil
}

// remoteKey returns key in remote store, it is prefixed with codec version if available.
func (rc *RemoteCache[V]) remoteKey(key string) string {
	return rc.prefix + key
}

func (rc *RemoteCache[V]) staleKey(key string) string {
	return rc.config.StalePrefix + key
}

// Apply returns a future of cached value or of a computation started with default executor.
func (rc *RemoteCache[V]) Apply(ctx context.Context, key string, fn Computation[V]) *Future[V] {
	return rc.ApplyOn(ctx, key, fn, rc.config.Executor)
}

// ApplyOn returns a future of cached value or of a computation started with exec.
//
// Remote failures are not returned to the caller, they degrade to a local computation.
func (rc *RemoteCache[V]) ApplyOn(ctx context.Context, key string, fn Computation[V], exec Executor) *Future[V] {
	if rc.local.closed.Load() {
		return Failed[V](ErrClosed)
	}

	k := rc.local.storageKey(key)

	if !rc.remote.Available(ctx) {
		rc.log.Debug(ctx, "remote store is unavailable, using local tier", "name", rc.config.Name, "key", k)

		return rc.local.apply(ctx, k, fn, exec, nil)
	}

	// Refresh is in flight, serving stale value instead of waiting.
	if e, found := rc.local.peek(k); found && e.InFlight() {
		if v, ok := rc.readStale(ctx, k); ok {
			return Resolved(v)
		}

		return rc.local.apply(ctx, k, fn, exec, rc.write)
	}

	if refresh(ctx) {
		return rc.local.apply(ctx, k, fn, exec, rc.write)
	}

	if v, ok := rc.read(ctx, k); ok {
		return Resolved(v)
	}

	if v, ok := rc.readStale(ctx, k); ok {
		f := rc.local.apply(ctx, k, fn, exec, rc.write)

		// Local tier may already have a fresh value.
		if rc.config.WaitForRefresh || f.Resolved() {
			return f
		}

		return Resolved(v)
	}

	return rc.local.apply(ctx, k, fn, exec, rc.write)
}

// Get returns future of available value without starting a computation.
func (rc *RemoteCache[V]) Get(ctx context.Context, key string) (*Future[V], bool) {
	if rc.local.closed.Load() {
		return nil, false
	}

	k := rc.local.storageKey(key)

	if !rc.remote.Available(ctx) {
		return rc.local.get(ctx, k)
	}

	if e, found := rc.local.peek(k); found && e.InFlight() {
		if v, ok := rc.readStale(ctx, k); ok {
			return Resolved(v), true
		}

		return e.future, true
	}

	if v, ok := rc.read(ctx, k); ok {
		return Resolved(v), true
	}

	if f, ok := rc.local.get(ctx, k); ok {
		return f, true
	}

	if v, ok := rc.readStale(ctx, k); ok {
		return Resolved(v), true
	}

	return nil, false
}

// Read returns available value without starting a computation.
//
// ErrNotFound is returned when neither local nor remote tiers have the value.
func (rc *RemoteCache[V]) Read(ctx context.Context, key string) (V, error) {
	f, found := rc.Get(ctx, key)

	return await(ctx, f, found)
}

// Clear removes primary and shadow values and local state, next Apply is a miss.
//
// Remote writes of the key that are in progress are canceled and awaited before removal.
func (rc *RemoteCache[V]) Clear(ctx context.Context, key string) {
	k := rc.local.storageKey(key)

	rc.local.clear(ctx, k)

	// Writes that are not done yet would bring the value back.
	rc.mu.Lock()
	pending := append([]*pendingWrite(nil), rc.pending[k]...)
	rc.mu.Unlock()

	for _, w := range pending {
		w.canceled.Store(true)
	}

	for _, w := range pending {
		<-w.done
	}

	if !rc.remote.Available(ctx) {
		return
	}

	rc.deleteTiers(ctx, k)
}

func (rc *RemoteCache[V]) deleteTiers(ctx context.Context, key string) {
	keys := []string{rc.remoteKey(key)}
	if rc.config.UseStale {
		keys = append(keys, rc.remoteKey(rc.staleKey(key)))
	}

	tctx, cancel := context.WithTimeout(ctx, rc.config.RemoteTimeout)
	defer cancel()

	if err := rc.remote.Delete(tctx, keys...); err != nil {
		rc.remoteFailed(ctx, "failed to delete remote value", key, err)
	}
}

// Shutdown stops local tier, waits for started writes and closes remote store if it is an io.Closer.
//
// Values of computations that complete after Shutdown are not written.
func (rc *RemoteCache[V]) Shutdown() {
	rc.mu.Lock()
	if rc.closed {
		rc.mu.Unlock()

		return
	}

	rc.closed = true
	rc.mu.Unlock()

	rc.local.Shutdown()
	rc.writes.Wait()

	if c, ok := rc.remote.(io.Closer); ok {
		if err := c.Close(); err != nil {
			rc.log.Error(context.Background(), "failed to close remote store", "name", rc.config.Name, "error", err)
		}
	}
}

func (rc *RemoteCache[V]) read(ctx context.Context, key string) (V, bool) {
	v, ok := rc.readKey(ctx, key)
	if ok {
		rc.stat.Add(ctx, MetricRemoteHit, 1, "name", rc.config.Name)
	} else {
		rc.stat.Add(ctx, MetricRemoteMiss, 1, "name", rc.config.Name)
	}

	return v, ok
}

func (rc *RemoteCache[V]) readStale(ctx context.Context, key string) (V, bool) {
	if !rc.config.UseStale {
		var zero V

		return zero, false
	}

	v, ok := rc.readKey(ctx, rc.staleKey(key))
	if ok {
		rc.stat.Add(ctx, MetricStaleHit, 1, "name", rc.config.Name)
		rc.log.Debug(ctx, "serving stale value", "name", rc.config.Name, "key", key)
	}

	return v, ok
}

func (rc *RemoteCache[V]) readKey(ctx context.Context, key string) (V, bool) {
	var v V

	// Previous operation could have marked store unavailable.
	if !rc.remote.Available(ctx) {
		return v, false
	}

	tctx, cancel := context.WithTimeout(ctx, rc.config.RemoteTimeout)
	defer cancel()

	data, found, err := rc.remote.Get(tctx, rc.remoteKey(key))
	if err != nil {
		rc.remoteFailed(ctx, "failed to read remote value", key, err)

		return v, false
	}

	if !found {
		return v, false
	}

	if err := rc.codec.Unmarshal(data, &v); err != nil {
		rc.remoteFailed(ctx, "failed to decode remote value", key, err)

		return v, false
	}

	return v, true
}

// write stores computed value in remote tiers, it is called before value is published.
func (rc *RemoteCache[V]) write(ctx context.Context, key string, e *Entry[V], v V) {
	data, err := rc.codec.Marshal(v)
	if err != nil {
		rc.remoteFailed(ctx, "failed to encode value", key, err)

		return
	}

	w := rc.startWrite(key)
	if w == nil {
		return
	}

	// Entry could have been cleared before the write was registered.
	if !rc.local.occupies(key, e) {
		rc.finishWrite(key, w)

		return
	}

	if rc.config.WaitForRemoteWrite {
		rc.writeTiers(ctx, key, w, data)

		return
	}

	go rc.writeTiers(ctx, key, w, data)
}

// startWrite registers a write, nil is returned after Shutdown.
func (rc *RemoteCache[V]) startWrite(key string) *pendingWrite {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.closed {
		return nil
	}

	w := &pendingWrite{done: make(chan struct{})}
	rc.pending[key] = append(rc.pending[key], w)
	rc.writes.Add(1)

	return w
}

func (rc *RemoteCache[V]) finishWrite(key string, w *pendingWrite) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	ws := rc.pending[key]
	for i, p := range ws {
		if p == w {
			ws = append(ws[:i], ws[i+1:]...)

			break
		}
	}

	if len(ws) == 0 {
		delete(rc.pending, key)
	} else {
		rc.pending[key] = ws
	}

	close(w.done)
	rc.writes.Done()
}

func (rc *RemoteCache[V]) writeTiers(ctx context.Context, key string, w *pendingWrite, data []byte) {
	defer rc.finishWrite(key, w)

	if !rc.remote.Available(ctx) || w.canceled.Load() {
		return
	}

	rc.setTiers(ctx, key, w, data)
}

func (rc *RemoteCache[V]) setTiers(ctx context.Context, key string, w *pendingWrite, data []byte) {
	tctx, cancel := context.WithTimeout(ctx, rc.config.RemoteTimeout)
	defer cancel()

	if err := rc.remote.Set(tctx, rc.remoteKey(key), data, rc.config.TimeToLive); err != nil {
		rc.remoteFailed(ctx, "failed to write remote value", key, err)

		return
	}

	rc.stat.Add(ctx, MetricRemoteWrite, 1, "name", rc.config.Name)

	if !rc.config.UseStale || w.canceled.Load() {
		return
	}

	if err := rc.remote.Set(tctx, rc.remoteKey(rc.staleKey(key)), data, rc.config.TimeToLive+rc.config.StaleTTL); err != nil {
		rc.remoteFailed(ctx, "failed to write stale remote value", key, err)

		return
	}

	rc.stat.Add(ctx, MetricRemoteWrite, 1, "name", rc.config.Name)
	rc.log.Debug(ctx, "wrote remote values", "name", rc.config.Name, "key", key)
}

func (rc *RemoteCache[V]) remoteFailed(ctx context.Context, msg, key string, err error) {
	rc.stat.Add(ctx, MetricRemoteError, 1, "name", rc.config.Name)
	rc.log.Warn(ctx, msg, "name", rc.config.Name, "key", key, "error", err)
}
