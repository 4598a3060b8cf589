// Package storage is the ledger store: the only component that touches
// durable state. All queries are parameterized; writes are serialized
// through a single connection so bulk inserts never interleave.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports a read for an id that does not exist.
var ErrNotFound = errors.New("not found")

// ConstraintError reports a write whose parent reference does not
// exist. It is never retried; the caller gets it as-is.
type ConstraintError struct {
	Entity   string // entity being written
	Parent   string // referenced parent entity
	ParentID string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s references missing %s %q", e.Entity, e.Parent, e.ParentID)
}

// SQLiteStore is the durable ledger over a local SQLite database.
// Construct one at startup and hand it to every component that needs
// it; there is no global instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings the schema up to date.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Single connection: one logical writer at a time, no interleaved
	// partial writes during bulk transaction inserts.
	db.SetMaxOpenConns(1)

	// The worker process may hold the write lock while committing a
	// statement; wait out the lock instead of surfacing SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// epoch/nullable conversion helpers shared by the query files.

func toEpoch(t time.Time) int64 { return t.UTC().Unix() }

func fromEpoch(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func nullEpoch(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toEpoch(*t), Valid: true}
}

func epochPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromEpoch(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func decimalPtr(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored amount %q: %w", v.String, err)
	}
	return &d, nil
}
