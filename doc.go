// Package herdcache provides a stampede-safe cache of computation results.
//
// Features:
//
//   - Single-flight computations, concurrent callers of a key share one result.
//   - Time to live and time to idle expiration.
//   - Failed computations are never cached, next call retries.
//   - Bounded in-process storage with least recently used eviction.
//   - Remote storage tier (Redis, in-process) with stale-while-revalidate serving.
//   - Graceful degradation to local computations when remote storage is unavailable.
//   - Pluggable executors, key hashing, value codecs, logging and stats.
package herdcache
