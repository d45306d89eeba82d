package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"pebfutar.app/internal/logging"
)

const createSettingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

const upsertSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore keeps settings in a single SQLite table.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// settings table exists. ":memory:" works for throwaway sessions.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite settings path is empty")
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db, logger)
	if err := s.Migrate(ctx); err != nil {
		logging.SafeCloseWithLogging(db, logger, "settings database")
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database. The schema is not touched.
func NewSQLiteStore(db *sqlx.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLiteStore{db: db, logger: logger.With(slog.String("component", "settings_sqlite")), now: time.Now}
}

// Migrate creates the settings table if it is missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSettingsTable); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReadString(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) WriteString(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertSetting, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	s.logger.Debug("setting written", slog.String("key", key), slog.Int("size_bytes", len(value)))
	return nil
}

// DB exposes the pool for stats collection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db.DB
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
