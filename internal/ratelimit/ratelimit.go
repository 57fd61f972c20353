package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Limiter is a fixed-window rate limiter keyed by actor ID. Each key gets
// its own window: the first Take opens it, subsequent Takes within the
// interval consume one of the allowed slots, and once the interval elapses
// the next Take resets the window.
type Limiter struct {
	amount   int
	interval time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func New(amount int, interval time.Duration) *Limiter {
	return &Limiter{
		amount:   amount,
		interval: interval,
		windows:  make(map[string]*window),
		now:      time.Now,
	}
}

// Amount returns the number of actions allowed per window.
func (l *Limiter) Amount() int { return l.amount }

// Interval returns the window length.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Take records one action for key and reports whether the key is currently
// limited. A return of true means the action should be rejected.
func (l *Limiter) Take(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.interval {
		l.windows[key] = &window{count: 1, start: now}
		return false
	}

	if w.count >= l.amount {
		return true
	}

	w.count++
	return false
}
