package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	createEntriesSQL = `CREATE TABLE IF NOT EXISTS entries (
        key        TEXT PRIMARY KEY,
        value      BLOB NOT NULL,
        written_at INTEGER NOT NULL
    )`

	loadEntrySQL = `SELECT value, written_at FROM entries WHERE key = ?`

	upsertEntrySQL = `INSERT INTO entries (key, value, written_at) VALUES (?, ?, ?)
    ON CONFLICT(key) DO UPDATE SET
        value      = excluded.value,
        written_at = excluded.written_at`
)

// SQLiteBackend keeps one SQLite database file per namespace under a directory.
// synchronous=FULL makes every committed write durable before Store returns.
type SQLiteBackend struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB

	writeMu sync.Mutex
}

// NewSQLiteBackend prepares a backend rooted at dir.
func NewSQLiteBackend(dir string) (*SQLiteBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &SQLiteBackend{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

// Load returns the entry for key in namespace or ErrNotFound.
func (b *SQLiteBackend) Load(ctx context.Context, namespace, key string) (Entry, error) {
	db, err := b.open(ctx, namespace)
	if err != nil {
		return Entry{}, err
	}

	var (
		value     []byte
		writtenAt int64
	)
	if err := db.QueryRowContext(ctx, loadEntrySQL, key).Scan(&value, &writtenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("load %s/%s: %w", namespace, key, err)
	}

	return Entry{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		WrittenAt: time.Unix(0, writtenAt).UTC(),
	}, nil
}

// Store replaces the entry for (entry.Namespace, entry.Key).
func (b *SQLiteBackend) Store(ctx context.Context, entry Entry) error {
	db, err := b.open(ctx, entry.Namespace)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if _, err := db.ExecContext(ctx, upsertEntrySQL, entry.Key, []byte(entry.Value), entry.WrittenAt.UnixNano()); err != nil {
		return fmt.Errorf("store %s/%s: %w", entry.Namespace, entry.Key, err)
	}
	return nil
}

// Close closes every namespace database.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for ns, db := range b.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ns, err))
		}
		delete(b.dbs, ns)
	}
	return errors.Join(errs...)
}

func (b *SQLiteBackend) open(ctx context.Context, namespace string) (*sql.DB, error) {
	name, err := fileName(namespace)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if db, ok := b.dbs[name]; ok {
		return db, nil
	}

	path := filepath.Join(b.dir, name+".db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, createEntriesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare %s: %w", path, err)
	}

	b.dbs[name] = db
	return db, nil
}

func fileName(namespace string) (string, error) {
	ns := strings.ToLower(strings.TrimSpace(namespace))
	if ns == "" {
		return "", errors.New("cache namespace is required")
	}
	var sb strings.Builder
	for _, r := range ns {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String(), nil
}

var _ Backend = (*SQLiteBackend)(nil)
