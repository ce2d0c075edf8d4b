package herdcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/herdcache"
)

func TestInvalidator_Invalidate(t *testing.T) {
	cache1 := newTestCache[int](t, herdcache.Config{TimeToLive: time.Minute})
	cache2 := newTestCache[int](t, herdcache.Config{TimeToLive: time.Minute})
	ctx := context.Background()

	i := &herdcache.Invalidator{}
	assert.ErrorIs(t, i.Invalidate(ctx), herdcache.ErrNothingToInvalidate)

	i.Callbacks = append(i.Callbacks, cache1.ClearAll, cache2.ClearAll)

	_, err := wait(t, cache1.Apply(ctx, "key", value(1)))
	require.NoError(t, err)

	_, err = wait(t, cache2.Apply(ctx, "key", value(2)))
	require.NoError(t, err)

	assert.NoError(t, i.Invalidate(ctx))
	assert.Equal(t, 0, cache1.Len())
	assert.Equal(t, 0, cache2.Len())

	v, err := wait(t, cache1.Apply(ctx, "key", value(3)))
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	assert.ErrorIs(t, i.Invalidate(ctx), herdcache.ErrAlreadyInvalidated)
	assert.Equal(t, 1, cache1.Len(), "skipped invalidation keeps values")
}
