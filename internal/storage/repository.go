package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finance-brief/internal/alerts"
	"finance-brief/internal/cache"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createCacheEntriesSQL = `CREATE TABLE IF NOT EXISTS cache_entries (
        namespace  TEXT        NOT NULL,
        key        TEXT        NOT NULL,
        value      JSONB       NOT NULL,
        written_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (namespace, key)
    );`

	createAlertEventsSQL = `CREATE TABLE IF NOT EXISTS alert_events (
        id                 BIGSERIAL   PRIMARY KEY,
        alert_id           INTEGER     NOT NULL,
        kind               TEXT        NOT NULL,
        symbol             TEXT        NOT NULL DEFAULT '',
        trigger_price      NUMERIC,
        trigger_change_pct NUMERIC,
        headlines          TEXT[]      NOT NULL DEFAULT '{}',
        triggered_at       TIMESTAMPTZ NOT NULL,
        detail             JSONB       NOT NULL,
        created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`

	loadCacheEntrySQL = `SELECT value, written_at
    FROM cache_entries
    WHERE namespace = $1 AND key = $2;`

	upsertCacheEntrySQL = `INSERT INTO cache_entries (namespace, key, value, written_at)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (namespace, key) DO UPDATE
    SET value      = EXCLUDED.value,
        written_at = EXCLUDED.written_at;`

	insertAlertEventSQL = `INSERT INTO alert_events (
        alert_id,
        kind,
        symbol,
        trigger_price,
        trigger_change_pct,
        headlines,
        triggered_at,
        detail
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    );`

	listRecentAlertEventsSQL = `SELECT
        id,
        alert_id,
        kind,
        symbol,
        trigger_price::TEXT,
        trigger_change_pct::TEXT,
        headlines,
        triggered_at,
        detail,
        created_at
    FROM alert_events
    ORDER BY triggered_at DESC, id DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// TriggerStore defines the trigger audit operations.
type TriggerStore interface {
	RecordTrigger(ctx context.Context, alert alerts.Alert) error
	ListRecentTriggers(ctx context.Context, limit int) ([]TriggerRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store serves cache entries and the trigger audit trail from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range []string{createCacheEntriesSQL, createAlertEventsSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Load returns a cache entry or cache.ErrNotFound.
func (s *Store) Load(ctx context.Context, namespace, key string) (cache.Entry, error) {
	pool, err := s.getPool()
	if err != nil {
		return cache.Entry{}, err
	}

	var (
		value     []byte
		writtenAt time.Time
	)
	if err := pool.QueryRow(ctx, loadCacheEntrySQL, namespace, key).Scan(&value, &writtenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cache.Entry{}, cache.ErrNotFound
		}
		return cache.Entry{}, fmt.Errorf("load cache entry: %w", err)
	}

	return cache.Entry{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		WrittenAt: writtenAt.UTC(),
	}, nil
}

// Store upserts a cache entry.
func (s *Store) Store(ctx context.Context, entry cache.Entry) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, upsertCacheEntrySQL,
		entry.Namespace,
		entry.Key,
		[]byte(entry.Value),
		entry.WrittenAt.UTC(),
	); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// RecordTrigger appends a triggered alert to the audit trail.
func (s *Store) RecordTrigger(ctx context.Context, alert alerts.Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	rec, err := triggerFromAlert(alert)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}

	if _, err := pool.Exec(ctx, insertAlertEventSQL,
		rec.AlertID,
		rec.Kind,
		rec.Symbol,
		decimalString(rec.TriggerPrice),
		decimalString(rec.TriggerChangePct),
		rec.Headlines,
		rec.TriggeredAt,
		[]byte(rec.Detail),
	); err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

// ListRecentTriggers lists the newest audit rows first.
func (s *Store) ListRecentTriggers(ctx context.Context, limit int) ([]TriggerRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertEventsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent triggers: %w", queryErr)
	}
	defer rows.Close()

	records := make([]TriggerRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanTrigger(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock dies with the connection anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func scanTrigger(rows pgx.Rows) (TriggerRecord, error) {
	var (
		rec       TriggerRecord
		priceStr  *string
		changeStr *string
		detail    []byte
	)
	if err := rows.Scan(
		&rec.ID,
		&rec.AlertID,
		&rec.Kind,
		&rec.Symbol,
		&priceStr,
		&changeStr,
		&rec.Headlines,
		&rec.TriggeredAt,
		&detail,
		&rec.CreatedAt,
	); err != nil {
		return TriggerRecord{}, err
	}

	var err error
	if rec.TriggerPrice, err = parseDecimal(priceStr); err != nil {
		return TriggerRecord{}, fmt.Errorf("parse trigger price: %w", err)
	}
	if rec.TriggerChangePct, err = parseDecimal(changeStr); err != nil {
		return TriggerRecord{}, fmt.Errorf("parse trigger change: %w", err)
	}
	rec.Detail = detail
	return rec, nil
}

var (
	_ cache.Backend   = (*Store)(nil)
	_ alerts.Recorder = (*Store)(nil)
	_ TriggerStore    = (*Store)(nil)
	_ AdvisoryLocker  = (*Store)(nil)
)
