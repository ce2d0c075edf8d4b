package herdcache

import (
	"context"
	"time"

	"github.com/bool64/cache"
)

// detachedContext keeps values of parent context, but ignores its cancellation.
//
// Computations are shared by many callers, so a single caller leaving must not abort them.
type detachedContext struct {
	ctx context.Context
}

func (dctx detachedContext) Deadline() (deadline time.Time, ok bool) {
	return time.Time{}, false
}

func (dctx detachedContext) Done() <-chan struct{} {
	return nil
}

func (dctx detachedContext) Err() error {
	return nil
}

func (dctx detachedContext) Value(key interface{}) interface{} {
	return dctx.ctx.Value(key)
}

func detach(ctx context.Context) context.Context {
	if _, ok := ctx.(detachedContext); ok {
		return ctx
	}

	return detachedContext{ctx: ctx}
}

// WithRefresh returns context that makes Apply ignore a resolved value and recompute it.
//
// Computation already in flight is still shared.
func WithRefresh(ctx context.Context) context.Context {
	return cache.WithSkipRead(ctx)
}

// refresh is true if context asks to bypass resolved values.
func refresh(ctx context.Context) bool {
	return cache.SkipRead(ctx)
}
