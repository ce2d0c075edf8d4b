package herdcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bool64/ctxd"
	"github.com/redis/go-redis/v9"
)

// RedisConfig controls RedisStore.
type RedisConfig struct {
	// Name is added to logs.
	Name string

	// Logger receives connectivity changes, can be nil.
	Logger ctxd.Logger

	// Prefix is prepended to all keys with ":" separator.
	Prefix string

	// QueryTimeout limits every operation, default 1s.
	QueryTimeout time.Duration

	// RecheckInterval is a minimal delay before unavailable server is pinged again, default 5s.
	RecheckInterval time.Duration
}

// RedisStore is a RemoteStore backed by Redis.
//
// Operation errors mark the store unavailable until a successful PING after RecheckInterval.
type RedisStore struct {
	client redis.UniversalClient
	owned  bool
	config RedisConfig
	log    ctxd.Logger

	down      atomic.Bool
	checkedAt atomic.Int64
}

var _ RemoteStore = &RedisStore{}

// NewRedisStore creates RemoteStore with a client, the caller owns client lifecycle.
func NewRedisStore(client redis.UniversalClient, config RedisConfig) *RedisStore {
	if config.QueryTimeout == 0 {
		config.QueryTimeout = time.Second
	}

	if config.RecheckInterval == 0 {
		config.RecheckInterval = 5 * time.Second
	}

	s := &RedisStore{
		client: client,
		config: config,
		log:    config.Logger,
	}

	if s.log == nil {
		s.log = ctxd.NoOpLogger{}
	}

	return s
}

// NewRedisStoreFromURL creates RemoteStore with a new client, Close releases the client.
func NewRedisStoreFromURL(url string, config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	s := NewRedisStore(redis.NewClient(opts), config)
	s.owned = true

	return s, nil
}

func (s *RedisStore) key(k string) string {
	if s.config.Prefix == "" {
		return k
	}

	return s.config.Prefix + ":" + k
}

func (s *RedisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.config.QueryTimeout)
}

// Get returns stored value.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	b, err := s.client.Get(qctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		s.markDown(ctx, err)

		return nil, false, ctxd.WrapError(ctx, err, "redis get failed", "key", key)
	}

	return b, true, nil
}

// Set stores value with time to live.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.client.Set(qctx, s.key(key), value, ttl).Err(); err != nil {
		s.markDown(ctx, err)

		return ctxd.WrapError(ctx, err, "redis set failed", "key", key)
	}

	return nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, s.key(k))
	}

	if err := s.client.Del(qctx, prefixed...).Err(); err != nil {
		s.markDown(ctx, err)

		return ctxd.WrapError(ctx, err, "redis delete failed", "keys", keys)
	}

	return nil
}

// Available is false after a failed operation until server responds to PING.
func (s *RedisStore) Available(ctx context.Context) bool {
	if !s.down.Load() {
		return true
	}

	checkedAt := s.checkedAt.Load()
	if time.Since(time.Unix(0, checkedAt)) < s.config.RecheckInterval {
		return false
	}

	// Only one caller probes the server.
	if !s.checkedAt.CompareAndSwap(checkedAt, time.Now().UnixNano()) {
		return false
	}

	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.client.Ping(qctx).Err(); err != nil {
		s.log.Debug(ctx, "redis is still unavailable", "name", s.config.Name, "error", err)

		return false
	}

	s.down.Store(false)
	s.log.Warn(ctx, "redis is available again", "name", s.config.Name)

	return true
}

func (s *RedisStore) markDown(ctx context.Context, err error) {
	// Caller gave up, server state is unknown.
	if ctx.Err() != nil {
		return
	}

	s.checkedAt.Store(time.Now().UnixNano())

	if s.down.CompareAndSwap(false, true) {
		s.log.Warn(ctx, "redis is unavailable", "name", s.config.Name, "error", err)
	}
}

// Close releases client created by NewRedisStoreFromURL.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}

	return s.client.Close()
}
