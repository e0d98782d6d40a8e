// Package ratelimit provides a fixed-window in-memory request limiter and its
// HTTP middleware.
package ratelimit

import (
	"sync"
	"time"
)

// Result describes a single limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
func (r Result) RetryAfter() time.Duration {
	d := time.Until(r.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per identifier in fixed windows. Windows for idle
// identifiers are dropped lazily on the next check after expiry.
type Limiter struct {
	limit  int
	period time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewLimiter allows limit requests per identifier per period.
func NewLimiter(limit int, period time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check records one request for the identifier and reports whether it stays
// within the limit.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[identifier]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.windows[identifier] = w
	}

	if w.count >= l.limit {
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// Sweep drops expired windows. Called periodically by the server so a churn
// of one-off identifiers does not grow the map unbounded.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, id)
		}
	}
}
