package herdcache

import (
	"fmt"
	"os"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultMaxCapacity     = 10000
	DefaultInitialCapacity = 16
	DefaultStalePrefix     = "stale"
	DefaultRemoteTimeout   = time.Second
)

// Config controls local single-flight cache instance.
type Config struct {
	// Name is cache instance name, used in stats and logging.
	Name string

	// Logger is an instance of contextualized logger, can be nil.
	Logger ctxd.Logger

	// Stats is metrics collector, can be nil.
	Stats stats.Tracker

	// TimeToLive is delay before entry expiration, required.
	// It is counted from completion of computation, pending entries do not expire.
	TimeToLive time.Duration

	// TimeToIdle is delay since last access before entry expiration, 0 disables idle expiration.
	TimeToIdle time.Duration

	// MaxCapacity is the maximum number of entries, default 10000.
	// Least recently used resolved entries are evicted on overflow.
	// Capacity of 2048 or more is split into shards of about 1024 entries,
	// recency order is then maintained per shard.
	MaxCapacity int

	// InitialCapacity is a hint to preallocate storage, default 16.
	InitialCapacity int

	// CleanupInterval is delay between removals of expired entries and items count reports,
	// 0 disables background cleanup.
	CleanupInterval time.Duration

	// Executor runs computations, new goroutine per computation by default.
	Executor Executor

	// KeyHasher transforms keys before storage, no transformation by default.
	KeyHasher KeyHasher

	// Now returns current time, time.Now by default.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = ctxd.NoOpLogger{}
	}

	if c.Stats == nil {
		c.Stats = stats.NoOp{}
	}

	if c.MaxCapacity == 0 {
		c.MaxCapacity = DefaultMaxCapacity
	}

	if c.InitialCapacity == 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}

	if c.Executor == nil {
		c.Executor = GoExecutor{}
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return c
}

// RemoteConfig controls two-tier cache with remote storage.
type RemoteConfig struct {
	Config

	// Remote is a remote storage, when nil cache works with local tier only.
	Remote RemoteStore

	// Codec serializes values for remote storage, MsgpackCodec by default.
	Codec Codec

	// UseStale enables stale-while-revalidate with a shadow copy of every value.
	UseStale bool

	// StaleTTL is additional time to live of shadow copy after primary expiration, default TimeToLive.
	StaleTTL time.Duration

	// StalePrefix is prepended to key of shadow copy, default "stale".
	StalePrefix string

	// WaitForRemoteWrite makes computed values available to callers only after remote write is done.
	WaitForRemoteWrite bool

	// WaitForRefresh makes the caller that triggered refresh of a stale value wait for the fresh one,
	// other callers still receive stale value during refresh.
	WaitForRefresh bool

	// RemoteTimeout limits duration of a remote operation, default 1s.
	RemoteTimeout time.Duration
}

func (c RemoteConfig) withDefaults() RemoteConfig {
	c.Config = c.Config.withDefaults()

	if c.Remote == nil {
		c.Remote = NoOp{}
	}

	if c.Codec == nil {
		c.Codec = MsgpackCodec{}
	}

	if c.StaleTTL == 0 {
		c.StaleTTL = c.TimeToLive
	}

	if c.StalePrefix == "" {
		c.StalePrefix = DefaultStalePrefix
	}

	if c.RemoteTimeout == 0 {
		c.RemoteTimeout = DefaultRemoteTimeout
	}

	return c
}

func (c RemoteConfig) validate() error {
	if c.StaleTTL < 0 {
		return fmt.Errorf("%w: stale time to live must not be negative, %s given", ErrInvalidConfig, c.StaleTTL)
	}

	if c.RemoteTimeout < 0 {
		return fmt.Errorf("%w: remote timeout must not be negative, %s given", ErrInvalidConfig, c.RemoteTimeout)
	}

	return nil
}

// FileConfig is a YAML representation of RemoteConfig.
//
// Durations accept time.ParseDuration format extended with days and weeks, e.g. "1d12h".
type FileConfig struct {
	Name               string `yaml:"name"`
	TimeToLive         string `yaml:"ttl"`
	TimeToIdle         string `yaml:"tti"`
	MaxCapacity        int    `yaml:"max_capacity"`
	InitialCapacity    int    `yaml:"initial_capacity"`
	CleanupInterval    string `yaml:"cleanup_interval"`
	Workers            int    `yaml:"workers"`
	KeyHashing         string `yaml:"key_hashing"`
	UseStale           bool   `yaml:"use_stale"`
	StaleTTL           string `yaml:"stale_ttl"`
	StalePrefix        string `yaml:"stale_prefix"`
	WaitForRemoteWrite bool   `yaml:"wait_for_remote_write"`
	WaitForRefresh     bool   `yaml:"wait_for_refresh"`
	RemoteTimeout      string `yaml:"remote_timeout"`
	RedisURL           string `yaml:"redis_url"`
}

// LoadFileConfig reads YAML configuration from file.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is provided by operator.
	if err != nil {
		return FileConfig{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	return ParseFileConfig(data)
}

// ParseFileConfig decodes YAML configuration.
func ParseFileConfig(data []byte) (FileConfig, error) {
	var fc FileConfig

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err) //nolint:errorlint // Config error is the cause.
	}

	return fc, nil
}

// RemoteConfig converts file configuration, Remote, Logger and Stats are left empty.
func (fc FileConfig) RemoteConfig() (RemoteConfig, error) {
	var (
		rc  RemoteConfig
		err error
	)

	rc.Name = fc.Name
	rc.MaxCapacity = fc.MaxCapacity
	rc.InitialCapacity = fc.InitialCapacity
	rc.UseStale = fc.UseStale
	rc.StalePrefix = fc.StalePrefix
	rc.WaitForRemoteWrite = fc.WaitForRemoteWrite
	rc.WaitForRefresh = fc.WaitForRefresh

	durations := []struct {
		name  string
		value string
		dest  *time.Duration
	}{
		{"ttl", fc.TimeToLive, &rc.TimeToLive},
		{"tti", fc.TimeToIdle, &rc.TimeToIdle},
		{"cleanup_interval", fc.CleanupInterval, &rc.CleanupInterval},
		{"stale_ttl", fc.StaleTTL, &rc.StaleTTL},
		{"remote_timeout", fc.RemoteTimeout, &rc.RemoteTimeout},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		if *d.dest, err = str2duration.ParseDuration(d.value); err != nil {
			return rc, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.name, err) //nolint:errorlint
		}
	}

	kh, err := ParseKeyHashing(fc.KeyHashing)
	if err != nil {
		return rc, err
	}

	rc.KeyHasher = kh.Hasher()

	if fc.Workers > 0 {
		rc.Executor = NewPool(fc.Workers)
	}

	return rc, nil
}
