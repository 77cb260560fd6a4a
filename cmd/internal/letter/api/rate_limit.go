package letterapi

import (
	"sync"
	"time"
)

// ipLimiter is a sliding-window limiter keyed by client IP.
// A nil *ipLimiter allows everything.
type ipLimiter struct {
	mu      sync.Mutex
	events  map[string][]time.Time
	limit   int
	window  time.Duration
	sweepAt time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &ipLimiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow records an event for key at now unless the window is full, in which
// case it returns false and how long until the oldest event expires.
func (l *ipLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cut := now.Add(-l.window)
	if now.After(l.sweepAt) {
		l.sweep(cut)
		l.sweepAt = now.Add(l.window)
	}

	kept := l.events[key][:0]
	for _, t := range l.events[key] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.events[key] = kept
		retry := kept[0].Add(l.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return false, retry
	}
	l.events[key] = append(kept, now)
	return true, 0
}

// sweep drops keys whose newest event is outside the window.
func (l *ipLimiter) sweep(cut time.Time) {
	for k, ts := range l.events {
		if len(ts) == 0 || !ts[len(ts)-1].After(cut) {
			delete(l.events, k)
		}
	}
}
