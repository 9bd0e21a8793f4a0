// Package ratelimit provides a sliding-window limiter for outbound API calls.
//
// A [Limiter] is built once per external API and shared by every call made to it.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Limiter admits at most maxRequests acquisitions in any trailing window.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time
	clock       Clock
}

// New creates a limiter allowing maxRequests per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return NewWithClock(maxRequests, window, realClock{})
}

// NewWithClock creates a limiter driven by clock.
func NewWithClock(maxRequests int, window time.Duration, clock Clock) *Limiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &Limiter{maxRequests: maxRequests, window: window, clock: clock}
}

// Acquire blocks until a slot is free in the trailing window, then records the request.
//
// If ctx ends first, nothing is recorded and the context error is returned.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.clock.Now()
		l.prune(now)
		if len(l.stamps) < l.maxRequests {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(wait):
		}
	}
}

// Remaining reports how many acquisitions would succeed immediately.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.clock.Now())
	return l.maxRequests - len(l.stamps)
}

// ResetIn reports how long until the oldest recorded request leaves the window.
// It is zero when the window is empty.
func (l *Limiter) ResetIn() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.prune(now)
	if len(l.stamps) == 0 {
		return 0
	}
	return l.stamps[0].Add(l.window).Sub(now)
}

// prune drops timestamps that have left the window. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
