// Package ratelimit provides in-process, per-identifier request throttling
// for public API endpoints. State is local to one process instance; in a
// horizontally scaled deployment each instance counts independently.
package ratelimit

import (
	"sync"
	"time"
)

const (
	defaultWindow          = time.Minute
	defaultMaxRequests     = 60
	defaultCleanupInterval = time.Minute
)

// Config controls limiter construction.
type Config struct {
	// Window is the fixed counting window. A counter resets entirely once
	// its window elapses.
	Window time.Duration
	// MaxRequests is the ceiling per identifier per window.
	MaxRequests int
	// CleanupInterval is the cadence of the background sweep that evicts
	// expired entries. The sweep only bounds memory; Check and Peek treat
	// expired entries as absent regardless of sweep timing.
	CleanupInterval time.Duration
	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time
}

// Result reports the outcome of a limiter check.
type Result struct {
	// Allowed is false once the identifier has exhausted its window quota.
	Allowed bool
	// Remaining is the number of requests left in the current window.
	Remaining int
	// ResetAt is when the current window expires.
	ResetAt time.Time
	// Current is the number of requests counted in the current window.
	Current int
}

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter counts requests per identifier over a fixed window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	window time.Duration
	limit  int
	clock  func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a limiter and starts its background sweep.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaultMaxRequests
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	l := &Limiter{
		entries: make(map[string]*entry),
		window:  cfg.Window,
		limit:   cfg.MaxRequests,
		clock:   cfg.Clock,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.sweep(cfg.CleanupInterval)
	return l
}

// Limit returns the per-window request ceiling.
func (l *Limiter) Limit() int {
	return l.limit
}

// Check counts a request for identifier and reports whether it is allowed.
// Rejected requests do not increment the counter further.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	e, ok := l.entries[identifier]
	if !ok || now.Sub(e.windowStart) > l.window {
		l.entries[identifier] = &entry{count: 1, windowStart: now}
		return Result{
			Allowed:   true,
			Remaining: l.limit - 1,
			ResetAt:   now.Add(l.window),
			Current:   1,
		}
	}

	resetAt := e.windowStart.Add(l.window)
	if e.count >= l.limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   resetAt,
			Current:   e.count,
		}
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: l.limit - e.count,
		ResetAt:   resetAt,
		Current:   e.count,
	}
}

// Peek reports the current state for identifier without consuming a request
// slot. It returns ok=false when the identifier has no live window.
func (l *Limiter) Peek(identifier string) (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	e, ok := l.entries[identifier]
	if !ok || now.Sub(e.windowStart) > l.window {
		return Result{}, false
	}

	remaining := l.limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   e.count < l.limit,
		Remaining: remaining,
		ResetAt:   e.windowStart.Add(l.window),
		Current:   e.count,
	}, true
}

// Reset clears the counter for identifier. No-op if absent.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
}

// Destroy stops the background sweep and discards all state. Safe to call
// more than once.
func (l *Limiter) Destroy() {
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*entry)
}

func (l *Limiter) sweep(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

func (l *Limiter) evictExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for identifier, e := range l.entries {
		if now.Sub(e.windowStart) > l.window {
			delete(l.entries, identifier)
		}
	}
}
