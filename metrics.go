package herdcache

// Metric names reported to stats.Tracker, every metric is labeled with cache "name".
const (
	MetricHit       = "cache_hit"
	MetricMiss      = "cache_miss"
	MetricExpired   = "cache_expired"
	MetricCoalesced = "cache_coalesced"
	MetricBuild     = "cache_build"
	MetricFailed    = "cache_failed"
	MetricEvict     = "cache_evict"
	MetricItems     = "cache_items"

	MetricStaleHit    = "cache_stale_hit"
	MetricRemoteHit   = "cache_remote_hit"
	MetricRemoteMiss  = "cache_remote_miss"
	MetricRemoteWrite = "cache_remote_write"
	MetricRemoteError = "cache_remote_error"
)
