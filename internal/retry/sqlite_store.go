package retry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "dashcli/internal/errors"
)

// SQLiteStore persists retry state in the retry_state table. Records are
// stored as JSON so a corrupt value surfaces as a decode error on Get.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, apperrors.NewStorageError("failed to create store directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open retry store", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to migrate retry store", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS retry_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (State, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM retry_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, apperrors.NewStorageError("failed to read retry state", err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return State{}, false, apperrors.NewStorageError(fmt.Sprintf("corrupt retry state for %q", key), err)
	}
	if st.RetryCount < 0 {
		return State{}, false, apperrors.NewStorageError(fmt.Sprintf("corrupt retry state for %q: negative count", key), nil)
	}
	return st, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, state State) error {
	value, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewStorageError("failed to encode retry state", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO retry_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	if err != nil {
		return apperrors.NewStorageError("failed to write retry state", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM retry_state WHERE key = ?`, key); err != nil {
		return apperrors.NewStorageError("failed to remove retry state", err)
	}
	return nil
}
