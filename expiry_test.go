package herdcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/herdcache"
)

func TestExpiryTimes_Classify(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name      string
		ttl, tti  time.Duration
		age, idle time.Duration
		expected  herdcache.State
	}{
		{name: "fresh", ttl: 10 * time.Second, age: 9 * time.Second, idle: 9 * time.Second, expected: herdcache.Fresh},
		{name: "ttl boundary", ttl: 10 * time.Second, age: 10 * time.Second, expected: herdcache.TTLExpired},
		{name: "ttl only never idle", ttl: time.Hour, age: time.Minute, idle: time.Minute, expected: herdcache.Fresh},
		{name: "idle", ttl: time.Hour, tti: 5 * time.Second, age: 6 * time.Second, idle: 5 * time.Second, expected: herdcache.IdleExpired},
		{name: "idle not reached", ttl: time.Hour, tti: 5 * time.Second, age: time.Minute, idle: 4 * time.Second, expected: herdcache.Fresh},
		{name: "ttl takes precedence", ttl: 10 * time.Second, tti: 5 * time.Second, age: 10 * time.Second, idle: 10 * time.Second, expected: herdcache.TTLExpired},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			et, err := herdcache.NewExpiryTimes(tc.ttl, tc.tti)
			require.NoError(t, err)

			now := t0.Add(tc.age)
			lastAccess := now.Add(-tc.idle)

			assert.Equal(t, tc.expected, et.Classify(t0, lastAccess, now))
			assert.Equal(t, tc.expected == herdcache.Fresh, et.HasNotExpired(t0, lastAccess, now))
		})
	}
}

func TestNewExpiryTimes_invalid(t *testing.T) {
	_, err := herdcache.NewExpiryTimes(0, 0)
	assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)

	_, err = herdcache.NewExpiryTimes(-time.Second, 0)
	assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)

	_, err = herdcache.NewExpiryTimes(time.Second, -time.Second)
	assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fresh", herdcache.Fresh.String())
	assert.Equal(t, "idle_expired", herdcache.IdleExpired.String())
	assert.Equal(t, "ttl_expired", herdcache.TTLExpired.String())
	assert.Equal(t, "state(7)", herdcache.State(7).String())
}
