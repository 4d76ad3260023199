package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter bounds calls to limit per trailing period using a sliding window.
// A recorded call stops counting exactly period after it was recorded.
// Callers over the limit wait; they are never rejected.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu    sync.Mutex
	calls []time.Time
}

// New constructs a limiter. A non-positive limit or period disables limiting.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{limit: limit, period: period, now: time.Now}
}

// Disabled reports whether Acquire never blocks.
func (l *Limiter) Disabled() bool {
	return l == nil || l.limit <= 0 || l.period <= 0
}

// Acquire blocks until a call slot is free, then records the call.
// It only fails when ctx ends first.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.Disabled() {
		return nil
	}

	for {
		wait := l.tryRecord()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of calls currently counted against the limit.
func (l *Limiter) InWindow() int {
	if l.Disabled() {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}

// tryRecord records a call and returns 0, or returns how long until the
// oldest call leaves the window.
func (l *Limiter) tryRecord() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return 0
	}

	wait := l.calls[0].Add(l.period).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait
}

func (l *Limiter) prune(now time.Time) {
	cutoff := 0
	for cutoff < len(l.calls) && now.Sub(l.calls[cutoff]) >= l.period {
		cutoff++
	}
	if cutoff > 0 {
		l.calls = append(l.calls[:0], l.calls[cutoff:]...)
	}
}
