package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/orgchart/pkg/metrics"
)

// SQLiteStore persists artifacts in a single SQLite table so caches
// survive restarts.
type SQLiteStore struct {
	db       *sql.DB
	capacity int
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized by SQLite anyway.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db, capacity: o.capacity}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	metrics.UpdateStoreEntries(s.Count(ctx))
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS artifacts (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);`)
	return err
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM artifacts WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return v, nil
}

// Put implements Store.Put. Rows keep their rowid on replace, so eviction
// order is first insertion.
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO artifacts (key, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	if s.capacity > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM artifacts WHERE rowid NOT IN (
				SELECT rowid FROM artifacts ORDER BY rowid DESC LIMIT ?
			)`, s.capacity); err != nil {
			return fmt.Errorf("evict artifacts: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	metrics.UpdateStoreEntries(s.Count(ctx))
	return nil
}

// Count implements Store.Count; it returns 0 when the count query fails.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
