// Package scheduler runs a job on a fixed interval, optionally aligned to
// wall-clock multiples of the interval.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per interval with the scheduled tick time.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval time.Duration
	// Align fires on multiples of Interval (xx:00, xx:05, ...) instead of
	// Interval after start.
	Align        bool
	StartupDelay time.Duration
	// Immediate runs one tick right after the startup delay.
	Immediate bool
	// Now overrides the clock for tests.
	Now func() time.Time
}

// Scheduler drives periodic alert checks.
type Scheduler struct {
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Scheduler.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{opts: opts, now: now, logger: logger.With().Str("component", "scheduler").Logger()}, nil
}

// Run blocks, invoking tick until ctx is cancelled. Tick errors are logged and
// never stop the loop; ticks never overlap.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	failures := 0
	fire := func(at time.Time) {
		s.logger.Debug().Time("at", at).Msg("executing scheduled tick")
		if err := tick(ctx, at); err != nil {
			failures++
			s.logger.Error().Err(err).Time("at", at).Int("consecutive_failures", failures).Msg("tick failed")
			return
		}
		failures = 0
	}

	if s.opts.Immediate {
		fire(s.now())
	}

	next := s.Next(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			// a slow tick overran one or more slots; skip them
			next = s.Next(s.now())
			delay = next.Sub(s.now())
		}

		s.logger.Debug().Time("next", next).Dur("in", delay).Msg("waiting for next tick")
		if err := sleep(ctx, delay); err != nil {
			return err
		}

		fire(next)
		next = next.Add(s.opts.Interval)
	}
}

// Next returns the first tick strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	if !s.opts.Align {
		return now.Add(s.opts.Interval)
	}
	slot := now.Truncate(s.opts.Interval)
	if !slot.After(now) {
		slot = slot.Add(s.opts.Interval)
	}
	return slot
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
