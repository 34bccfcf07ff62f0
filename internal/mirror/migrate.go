package mirror

import (
	"context"
	"fmt"
)

// migrations is the ordered list of schema changes. The schema version
// (PRAGMA user_version) records how many have been applied; new entries
// are appended, never edited, so any database can be brought forward
// from whatever version it is at.
var migrations = []string{
	// 1: core tables
	`
	CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		excerpt TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL DEFAULT 1,
		featured INTEGER NOT NULL DEFAULT 0,
		source_path TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		post_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		post_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE post_categories (
		post_id INTEGER NOT NULL,
		category_id INTEGER NOT NULL,
		PRIMARY KEY (post_id, category_id),
		FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
	);

	CREATE TABLE post_tags (
		post_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (post_id, tag_id),
		FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	);

	CREATE TABLE slug_mapping (
		slug TEXT PRIMARY KEY,
		post_id INTEGER NOT NULL,
		is_primary INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
	);

	CREATE TABLE sync_queue (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		target TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		error_detail TEXT NOT NULL DEFAULT '',
		recoverable INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE sync_status (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_sync_time TEXT,
		sync_in_progress INTEGER NOT NULL DEFAULT 0
	);

	INSERT INTO sync_status (id, last_sync_time, sync_in_progress)
	VALUES (1, NULL, 0);
	`,

	// 2: indexes for list/filter queries and queue draining
	`
	CREATE INDEX idx_posts_published ON posts(published);
	CREATE INDEX idx_posts_source_path ON posts(source_path);
	CREATE INDEX idx_posts_created ON posts(created_at);
	CREATE INDEX idx_slug_mapping_post ON slug_mapping(post_id);
	CREATE INDEX idx_sync_queue_status ON sync_queue(status, created_at);
	`,
}

// Migrate brings the schema up to the current version. It is idempotent
// and safe to call on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this binary supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		target := i + 1
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", target, err)
		}

		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", target, err)
		}

		// PRAGMA does not support placeholders.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", target, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", target, err)
		}
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
