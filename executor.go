package herdcache

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs computations off the calling goroutine.
type Executor interface {
	// Submit schedules task, it must not block until task is complete.
	Submit(task func()) error
}

// ExecutorFunc is a function adapter of Executor.
type ExecutorFunc func(task func()) error

// Submit calls f.
func (f ExecutorFunc) Submit(task func()) error {
	return f(task)
}

// GoExecutor runs every task in a new goroutine.
type GoExecutor struct{}

// Submit starts task.
func (GoExecutor) Submit(task func()) error {
	go task()

	return nil
}

// Pool runs tasks with limited concurrency.
//
// Submitted tasks beyond the limit wait for a free slot in their own goroutines,
// so Submit never blocks the caller.
type Pool struct {
	mu     sync.RWMutex
	closed bool
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

var _ Executor = &Pool{}

// NewPool creates a pool of size concurrent workers, size is at least 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}

	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit schedules task or fails with ErrClosed after Shutdown.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		// Acquire with background context never fails.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		task()
	}()

	return nil
}

// Shutdown rejects new tasks and waits for submitted ones to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
