// Package ratelimit implements fixed-window request counting per client.
package ratelimit

import (
	"sync"
	"time"
)

// state tracks one client's current window.
type state struct {
	windowStart time.Time
	count       int
}

// Limiter counts requests per client identifier within a fixed window.
// The counter update is mutex-exclusive so concurrent requests from the
// same client cannot undercount.
type Limiter struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	clients   map[string]*state

	// now is swappable for tests.
	now func() time.Time
}

// NewLimiter creates a limiter allowing threshold requests per window.
func NewLimiter(threshold int, window time.Duration) *Limiter {
	return &Limiter{
		threshold: threshold,
		window:    window,
		clients:   make(map[string]*state),
		now:       time.Now,
	}
}

// Allow records a request for clientID and reports whether it is within
// the threshold. When rejected, retryAfter is the time remaining in the
// client's current window.
func (l *Limiter) Allow(clientID string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	s, ok := l.clients[clientID]
	if !ok || now.Sub(s.windowStart) >= l.window {
		l.clients[clientID] = &state{windowStart: now, count: 1}
		l.pruneLocked(now)
		return true, 0
	}

	s.count++
	if s.count > l.threshold {
		return false, s.windowStart.Add(l.window).Sub(now)
	}
	return true, 0
}

// pruneLocked drops expired windows so the map does not grow with
// one-shot clients. Called opportunistically while the lock is held.
func (l *Limiter) pruneLocked(now time.Time) {
	if len(l.clients) < 1024 {
		return
	}
	for id, s := range l.clients {
		if now.Sub(s.windowStart) >= l.window {
			delete(l.clients, id)
		}
	}
}
