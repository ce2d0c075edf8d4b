package herdcache

import (
	"fmt"
	"time"
)

// State is an expiration state of a stored entry.
type State int

// Expiration states.
const (
	Fresh State = iota
	IdleExpired
	TTLExpired
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case IdleExpired:
		return "idle_expired"
	case TTLExpired:
		return "ttl_expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ExpiryTimes defines time to live and time to idle of cache entries.
type ExpiryTimes struct {
	// TTL is the maximum age of an entry since it was stored, must be positive.
	TTL time.Duration

	// TTI is the maximum duration since last access, zero disables idle expiration.
	TTI time.Duration
}

// NewExpiryTimes validates and creates ExpiryTimes.
func NewExpiryTimes(ttl, tti time.Duration) (ExpiryTimes, error) {
	if ttl <= 0 {
		return ExpiryTimes{}, fmt.Errorf("%w: time to live must be greater than 0, %s given", ErrInvalidConfig, ttl)
	}

	if tti < 0 {
		return ExpiryTimes{}, fmt.Errorf("%w: time to idle must not be negative, %s given", ErrInvalidConfig, tti)
	}

	return ExpiryTimes{TTL: ttl, TTI: tti}, nil
}

// Classify returns expiration state of an entry at a given time.
//
// TTL expiration takes precedence over idle expiration.
func (et ExpiryTimes) Classify(createdAt, lastAccessedAt, now time.Time) State {
	if now.Sub(createdAt) >= et.TTL {
		return TTLExpired
	}

	if et.TTI > 0 && now.Sub(lastAccessedAt) >= et.TTI {
		return IdleExpired
	}

	return Fresh
}

// HasNotExpired is true for entries in Fresh state.
func (et ExpiryTimes) HasNotExpired(createdAt, lastAccessedAt, now time.Time) bool {
	return et.Classify(createdAt, lastAccessedAt, now) == Fresh
}
