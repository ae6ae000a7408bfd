// Package ratelimit implements per-identity sliding-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the sliding window.
const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 20
)

// Limiter admits at most max requests per identity within a trailing window.
// Timestamps older than the window are pruned lazily on each check. Safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	max      int
	now      func() time.Time
}

// New creates a sliding-window limiter. Non-positive arguments fall back to
// the defaults (60s window, 20 requests).
func New(window time.Duration, max int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Limiter{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
		now:      time.Now,
	}
}

// WithClock overrides the time source (tests).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CheckLimit prunes expired entries for the identity, then either records
// the request and returns true, or returns false without recording when the
// window is full.
func (l *Limiter) CheckLimit(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	valid := l.requests[identity][:0]
	for _, ts := range l.requests[identity] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.max {
		l.requests[identity] = valid
		return false
	}

	l.requests[identity] = append(valid, now)
	return true
}
