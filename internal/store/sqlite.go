// Package store persists lumen's durable local state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arcanaland/lumen/internal/quota"
)

// ErrNotFound is returned for a missing blob
var ErrNotFound = errors.New("not found")

// SQLiteStore keeps JSON blobs and usage profiles in one SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Single writer; conditional updates must not race on SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id      TEXT PRIMARY KEY,
		usage_count  INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
		is_unlimited INTEGER NOT NULL DEFAULT 0,
		updated_at   TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetBlob returns the value stored under key, or ErrNotFound
func (s *SQLiteStore) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, nil
}

// PutBlob replaces the value stored under key
func (s *SQLiteStore) PutBlob(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// UpsertProfile creates or replaces a profile. Used for local administration only.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p quota.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, usage_count, is_unlimited, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			usage_count = excluded.usage_count,
			is_unlimited = excluded.is_unlimited,
			updated_at = excluded.updated_at`,
		p.UserID, p.UsageCount, p.Unlimited, now())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile implements quota.ProfileStore
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (quota.Profile, error) {
	p := quota.Profile{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT usage_count, is_unlimited FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UsageCount, &p.Unlimited)
	if errors.Is(err, sql.ErrNoRows) {
		return quota.Profile{}, quota.ErrProfileNotFound
	}
	if err != nil {
		return quota.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// TryIncrement implements quota.ProfileStore with a single conditional update
func (s *SQLiteStore) TryIncrement(ctx context.Context, userID string, limit int) (quota.Profile, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET usage_count = usage_count + 1, updated_at = ?
		 WHERE user_id = ? AND is_unlimited = 0 AND usage_count < ?`,
		now(), userID, limit)
	if err != nil {
		return quota.Profile{}, fmt.Errorf("increment usage: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return quota.Profile{}, fmt.Errorf("increment usage: %w", err)
	}

	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return quota.Profile{}, err
	}
	if n == 0 && !p.Unlimited {
		return p, quota.ErrUsageLimitExceeded
	}
	return p, nil
}

// Decrement implements quota.ProfileStore
func (s *SQLiteStore) Decrement(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET usage_count = MAX(usage_count - 1, 0), updated_at = ? WHERE user_id = ?`,
		now(), userID)
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quota.ErrProfileNotFound
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
