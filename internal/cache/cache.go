package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by backends when no entry exists for a key.
	ErrNotFound = errors.New("cache: entry not found")
	// ErrUpstreamUnavailable marks a lookup where the upstream fetch failed and
	// no cached value was young enough to fall back on.
	ErrUpstreamUnavailable = errors.New("cache: upstream unavailable")
)

// Entry is one persisted value. Writes replace the whole entry.
type Entry struct {
	Namespace string
	Key       string
	Value     json.RawMessage
	WrittenAt time.Time
}

// Backend persists entries, one logical store per namespace.
type Backend interface {
	Load(ctx context.Context, namespace, key string) (Entry, error)
	Store(ctx context.Context, entry Entry) error
	Close() error
}

// Options tune cache behaviour.
type Options struct {
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Cache is a durable namespaced key/value store with age-bounded reads.
type Cache struct {
	backend Backend
	now     func() time.Time
	logger  zerolog.Logger
}

// New wraps a backend into a Cache.
func New(backend Backend, opts Options, logger zerolog.Logger) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		backend: backend,
		now:     now,
		logger:  logger.With().Str("component", "cache").Logger(),
	}
}

// Get decodes the entry for (namespace, key) into dst when it was written no
// more than maxAge ago. Missing, expired, unreadable and undecodable entries all
// report ok=false; errors are logged and never returned.
func (c *Cache) Get(ctx context.Context, namespace, key string, maxAge time.Duration, dst any) (time.Time, bool) {
	entry, err := c.backend.Load(ctx, namespace, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn().Err(err).Str("namespace", namespace).Str("key", key).Msg("cache read failed; treating as empty")
		}
		return time.Time{}, false
	}

	if c.now().Sub(entry.WrittenAt) > maxAge {
		return entry.WrittenAt, false
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		c.logger.Warn().Err(err).Str("namespace", namespace).Str("key", key).Msg("cache entry corrupt; treating as empty")
		return time.Time{}, false
	}
	return entry.WrittenAt, true
}

// Set stores value under (namespace, key) stamped with the current time.
// It returns once the backend reports the write durable.
func (c *Cache) Set(ctx context.Context, namespace, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	entry := Entry{
		Namespace: namespace,
		Key:       key,
		Value:     payload,
		WrittenAt: c.now().UTC(),
	}
	if err := c.backend.Store(ctx, entry); err != nil {
		return fmt.Errorf("store cache entry %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	if c == nil || c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// Age reports how old a value written at t is.
func (c *Cache) Age(t time.Time) time.Duration {
	return c.now().Sub(t)
}
