package herdcache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearutop/herdcache"
)

func TestParseFileConfig(t *testing.T) {
	fc, err := herdcache.ParseFileConfig([]byte(`
name: products
ttl: 1d
tti: 30m
max_capacity: 500
cleanup_interval: 1m
workers: 4
key_hashing: md5_lower
use_stale: true
stale_ttl: 1w
stale_prefix: "old:"
wait_for_remote_write: true
remote_timeout: 250ms
redis_url: redis://localhost:6379/0
`))
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", fc.RedisURL)

	rc, err := fc.RemoteConfig()
	require.NoError(t, err)

	assert.Equal(t, "products", rc.Name)
	assert.Equal(t, 24*time.Hour, rc.TimeToLive)
	assert.Equal(t, 30*time.Minute, rc.TimeToIdle)
	assert.Equal(t, 500, rc.MaxCapacity)
	assert.Equal(t, time.Minute, rc.CleanupInterval)
	assert.Equal(t, 7*24*time.Hour, rc.StaleTTL)
	assert.Equal(t, "old:", rc.StalePrefix)
	assert.Equal(t, 250*time.Millisecond, rc.RemoteTimeout)
	assert.True(t, rc.UseStale)
	assert.True(t, rc.WaitForRemoteWrite)
	assert.False(t, rc.WaitForRefresh)
	assert.IsType(t, &herdcache.Pool{}, rc.Executor)
	require.NotNil(t, rc.KeyHasher)
	assert.Equal(t, "f64f4f750f097b4421a050c9d11d9c14", rc.KeyHasher.Hash("Key1"))

	c, err := herdcache.NewRemoteCache[int](rc)
	require.NoError(t, err)
	c.Shutdown()
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ttl: 10s\n"), 0o600))

	fc, err := herdcache.LoadFileConfig(path)
	require.NoError(t, err)

	rc, err := fc.RemoteConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, rc.TimeToLive)
	assert.Nil(t, rc.KeyHasher)
	assert.Nil(t, rc.Executor)

	_, err = herdcache.LoadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFileConfig_invalid(t *testing.T) {
	_, err := herdcache.ParseFileConfig([]byte("ttl: [1"))
	assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)

	for _, fc := range []herdcache.FileConfig{
		{TimeToLive: "forever"},
		{TimeToLive: "1m", StaleTTL: "1x"},
		{TimeToLive: "1m", KeyHashing: "crc32"},
	} {
		_, err := fc.RemoteConfig()
		assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)
	}

	// Durations are parsed, but zero time to live is rejected by cache.
	rc, err := herdcache.FileConfig{}.RemoteConfig()
	require.NoError(t, err)

	_, err = herdcache.NewRemoteCache[int](rc)
	assert.ErrorIs(t, err, herdcache.ErrInvalidConfig)
}
