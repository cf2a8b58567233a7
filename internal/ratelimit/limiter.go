// Package ratelimit provides per-source admission control for channel
// traffic. The limiter uses an approximate sliding window one second wide:
// counts reset when the wall-clock second boundary is crossed, which allows
// brief bursts across a boundary but keeps state per source to a single
// counter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter bounds the number of messages a single source may raise per
// second. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window map[string]*sourceWindow
}

type sourceWindow struct {
	start time.Time
	count int
}

// New creates a Limiter admitting at most maxPerSecond messages per
// source per window. Values below 1 are clamped to 1.
func New(maxPerSecond int) *Limiter {
	if maxPerSecond < 1 {
		maxPerSecond = 1
	}
	return &Limiter{
		max:    maxPerSecond,
		window: make(map[string]*sourceWindow),
	}
}

// Allow reports whether a message from the given source is admitted at
// time now. The first sighting of a source always admits; within a window
// the source is admitted until the per-second maximum is reached; crossing
// a second boundary resets the count.
func (l *Limiter) Allow(source string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.window[source]
	if !ok {
		l.window[source] = &sourceWindow{start: now, count: 1}
		return true
	}

	if now.Sub(w.start) >= time.Second {
		w.start = now
		w.count = 1
		return true
	}

	w.count++
	return w.count <= l.max
}

// Reset clears all per-source state. Used by tests and operational
// recovery tooling.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.window = make(map[string]*sourceWindow)
}

// Sources returns the number of sources currently tracked.
func (l *Limiter) Sources() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.window)
}
