package cache

import (
	"context"
	"fmt"
	"time"
)

// State classifies how a value was obtained.
type State int

const (
	// Absent means no usable value exists.
	Absent State = iota
	// Fresh means the value is within its TTL or was just fetched.
	Fresh
	// Stale means the upstream failed and an older cached value was served.
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Result is a typed cache lookup. Callers must look at State before Value.
type Result[T any] struct {
	Value T
	State State
	// Age is the value's age; zero for just-fetched values.
	Age time.Duration
	// Err holds the upstream error behind a Stale or Absent result.
	Err error
}

// OK reports whether Value is usable, fresh or stale.
func (r Result[T]) OK() bool {
	return r.State != Absent
}

// Policy binds a namespace to its refresh and fallback horizons.
type Policy struct {
	Namespace string
	TTL       time.Duration
	MaxStale  time.Duration
}

// FetchFunc retrieves a value from upstream.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Load serves a fresh cached value, otherwise fetches and stores a new one,
// otherwise falls back to a value no older than policy.MaxStale.
func Load[T any](ctx context.Context, c *Cache, policy Policy, key string, fetch FetchFunc[T]) Result[T] {
	var cached T
	if writtenAt, ok := c.Get(ctx, policy.Namespace, key, policy.TTL, &cached); ok {
		return Result[T]{Value: cached, State: Fresh, Age: c.Age(writtenAt)}
	}

	value, fetchErr := fetch(ctx)
	// the caller's deadline may have fired during fetch; the store must still be reachable
	bg := context.WithoutCancel(ctx)
	if fetchErr == nil {
		if err := c.Set(bg, policy.Namespace, key, value); err != nil {
			c.logger.Error().Err(err).Str("namespace", policy.Namespace).Str("key", key).Msg("cache write failed")
		}
		return Result[T]{Value: value, State: Fresh}
	}

	var stale T
	if writtenAt, ok := c.Get(bg, policy.Namespace, key, policy.MaxStale, &stale); ok {
		age := c.Age(writtenAt)
		c.logger.Warn().Err(fetchErr).
			Str("namespace", policy.Namespace).
			Str("key", key).
			Dur("age", age).
			Msg("upstream failed; serving stale value")
		return Result[T]{Value: stale, State: Stale, Age: age, Err: fetchErr}
	}

	c.logger.Warn().Err(fetchErr).Str("namespace", policy.Namespace).Str("key", key).Msg("upstream failed; no cached value")
	var zero T
	return Result[T]{Value: zero, State: Absent, Err: fmt.Errorf("%w: %v", ErrUpstreamUnavailable, fetchErr)}
}
