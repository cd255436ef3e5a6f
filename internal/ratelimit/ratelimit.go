// Package ratelimit gates leaderboard submissions to one per key per
// window. Best-effort abuse deterrent only: the key combines a spoofable
// client address with a user-supplied nickname, and the state is
// process-local. A multi-instance deployment would need this map in a
// shared store with compare-and-set to keep the one-per-window guarantee.
package ratelimit

import (
	"sync"
	"time"

	"mtmath-games/internal/constants"
)

type Limiter struct {
	mu      sync.Mutex
	last    map[string]time.Time
	window  time.Duration
	evictAt time.Duration
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock swaps the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		last:    make(map[string]time.Time),
		window:  constants.SubmitWindow,
		evictAt: constants.RateLimitEvictAfter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndRecord reports whether a submission under key is allowed. A prior
// accepted call inside the window rejects without any state change;
// otherwise the current time is recorded under the key. Each call also
// purges entries past the eviction horizon, bounding memory growth.
func (l *Limiter) CheckAndRecord(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	for k, t := range l.last {
		if now.Sub(t) > l.evictAt {
			delete(l.last, k)
		}
	}

	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.window {
		return false
	}

	l.last[key] = now
	return true
}

// Len reports the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
