// Package mirror provides the relational mirror of the content
// repository: typed CRUD over posts, categories, tags, slug aliases,
// the sync queue, and sync status, backed by libSQL/SQLite.
//
// The database runs either in embedded mode (local SQLite file via the
// ncruces driver, WAL for concurrent reads) or against a remote Turso
// instance (libsql:// URL). The mirror is the only shared mutable
// resource in the system; every multi-statement mutation goes through
// WithTx so it commits or rolls back as a unit.
//
// Schema management is versioned: see migrate.go. Runtime code assumes
// the migrated schema and never probes for columns.
package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "github.com/tursodatabase/go-libsql"
)

// Store wraps the database connection with blog-specific functionality.
type Store struct {
	conn     *sql.DB
	path     string
	embedded bool
}

// Open creates a database connection.
//
// Paths beginning with "libsql://" connect to a remote Turso database;
// anything else is treated as a local SQLite file, created along with
// its parent directory if missing.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := mirror.Open("data/blog.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*Store, error) {
	var conn *sql.DB
	var err error
	embedded := !strings.HasPrefix(path, "libsql://")

	if embedded {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		conn, err = sql.Open("sqlite3", "file:"+strings.TrimPrefix(path, "file:"))
	} else {
		conn, err = sql.Open("libsql", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path, embedded: embedded}

	if embedded {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := s.conn.Exec(pragma); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
			}
		}
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection for integration with
// libraries that expect *sql.DB.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Path returns the path or URL the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection. For embedded databases a WAL
// checkpoint is performed first so all changes land in the main file.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if s.embedded {
		if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
		}
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting the query
// helpers run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is an open mirror transaction. All mutations exposed on Tx commit
// together when the WithTx callback returns nil.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil and rolling
// back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
