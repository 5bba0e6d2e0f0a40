// Package ratelimit applies a per-API-key token bucket (§2.1.1, §4.11)
// in front of the gateway's request handlers, so a misbehaving caller
// cannot monopolize the child-process pool.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/digitallysavvy/claude-code-gateway/internal/gwerrors"
)

// Limiter holds one token bucket per key (the caller's bearer token, or
// the caller's remote address when the request carries none), created
// lazily on first use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	rps      float64
	burst    int
}

// New constructs a Limiter. rps <= 0 disables limiting entirely (Allow
// always succeeds), since a gateway operator may run with no rate limit.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}
}

// Allow reports whether key may proceed, consuming one token if so. It
// returns gwerrors.RateLimitedError when the bucket is empty.
func (l *Limiter) Allow(key string) error {
	if l.rps <= 0 {
		return nil
	}

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	if !b.Allow() {
		return &gwerrors.RateLimitedError{Key: key}
	}
	return nil
}
