package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/cricscore/internal/domain/model"
	"github.com/okian/cricscore/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const backendSQLite = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	saved_at   INTEGER NOT NULL,
	payload    TEXT    NOT NULL
)`

// SQLiteStore persists the history in a SQLite file, one JSON document per
// match.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*SQLiteStore, error) {
	const op = "repository.sqlite.open"
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: history path is required", op)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite db: %w", op, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping sqlite db: %w", op, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: create schema: %w", op, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save appends m to the history.
func (s *SQLiteStore) Save(ctx context.Context, m model.Match) error {
	const op = "repository.sqlite.save"
	start := time.Now()
	defer func() { metrics.RecordHistoryLatency(backendSQLite, "save", time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := checkSavable(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, created_at, saved_at, payload) VALUES (?, ?, ?, ?)`,
		m.ID, m.CreatedAt.UTC().UnixMilli(), time.Now().UTC().UnixMilli(), string(raw),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %q: %w", op, m.ID, ErrAlreadyExists)
		}
		metrics.RecordErrorByComponent("repository", "sqlite_insert")
		return fmt.Errorf("%s: insert: %w", op, err)
	}
	metrics.UpdateHistorySize(s.Count(ctx))
	return nil
}

// LoadAll returns every saved match, newest first.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.Match, error) {
	const op = "repository.sqlite.load_all"
	start := time.Now()
	defer func() { metrics.RecordHistoryLatency(backendSQLite, "load_all", time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM matches ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		var m model.Match
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out == nil {
		out = []model.Match{}
	}
	return out, nil
}

// Count returns the number of saved matches, or zero if the database
// cannot be read.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		metrics.RecordErrorByComponent("repository", "sqlite_count")
		return 0
	}
	return n
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
