package herdcache

import (
	"context"
	"sync"
	"time"
)

// Future is a single assignment result of a computation shared by many waiters.
type Future[V any] struct {
	once sync.Once
	done chan struct{}
	val  V
	err  error
}

// NewFuture creates a pending future.
func NewFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Resolved returns completed future with a value.
func Resolved[V any](v V) *Future[V] {
	f := NewFuture[V]()
	f.resolve(v, nil)

	return f
}

// Failed returns completed future with an error.
func Failed[V any](err error) *Future[V] {
	var zero V

	f := NewFuture[V]()
	f.resolve(zero, err)

	return f
}

// resolve completes the future, only the first call has effect.
func (f *Future[V]) resolve(v V, err error) bool {
	resolved := false

	f.once.Do(func() {
		f.val = v
		f.err = err
		resolved = true

		close(f.done)
	})

	return resolved
}

// Done is closed when result is available.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Resolved is true when the future is complete.
func (f *Future[V]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future is complete or context is done.
//
// Context cancellation does not affect computation and other waiters.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V

		return zero, ctx.Err()
	}
}

// AwaitOrElse waits for the result and returns fallback on failure or timeout.
//
// Zero or negative timeout waits until the future is complete. Nil future yields fallback.
func AwaitOrElse[V any](f *Future[V], fallback V, timeout time.Duration) V {
	if timeout <= 0 {
		return AwaitContextOrElse(context.Background(), f, fallback)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return AwaitContextOrElse(ctx, f, fallback)
}

// AwaitContextOrElse waits for the result and returns fallback on failure or context cancellation.
func AwaitContextOrElse[V any](ctx context.Context, f *Future[V], fallback V) V {
	if f == nil {
		return fallback
	}

	v, err := f.Wait(ctx)
	if err != nil {
		return fallback
	}

	return v
}
