package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Alias is one row of slug_mapping. Every slug a post has ever carried
// stays resolvable; exactly one alias per post is primary and its slug
// equals the post's current slug.
type Alias struct {
	Slug      string
	PostID    int64
	IsPrimary bool
}

// AliasExists reports whether any mapping exists for the slug.
func (t *Tx) AliasExists(ctx context.Context, slug string) (bool, error) {
	return aliasExists(ctx, t.tx, slug)
}

// AliasExists reports whether any mapping exists for the slug.
func (s *Store) AliasExists(ctx context.Context, slug string) (bool, error) {
	return aliasExists(ctx, s.conn, slug)
}

func aliasExists(ctx context.Context, q dbtx, slug string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM slug_mapping WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check alias %s: %w", slug, err)
	}
	return n > 0, nil
}

// InsertAlias adds a mapping. The caller is expected to have checked
// existence first; a duplicate slug is a constraint error, not a silent
// overwrite.
func (t *Tx) InsertAlias(ctx context.Context, slug string, postID int64, isPrimary bool) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO slug_mapping (slug, post_id, is_primary) VALUES (?, ?, ?)`,
		slug, postID, boolToInt(isPrimary))
	if err != nil {
		return fmt.Errorf("failed to insert alias %s -> %d: %w", slug, postID, err)
	}
	return nil
}

// SetPrimaryAlias makes slug the post's primary alias: all other
// aliases of the post are demoted, and the mapping row is created or
// promoted in place. The posts.slug column is NOT touched here; callers
// change it in the same transaction via UpdateArticleSlug or
// UpdateArticle.
func (t *Tx) SetPrimaryAlias(ctx context.Context, postID int64, slug string) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE slug_mapping SET is_primary = 0 WHERE post_id = ? AND slug != ?`,
		postID, slug); err != nil {
		return fmt.Errorf("failed to demote aliases for post %d: %w", postID, err)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO slug_mapping (slug, post_id, is_primary) VALUES (?, ?, 1)
		ON CONFLICT(slug) DO UPDATE SET post_id = excluded.post_id, is_primary = 1`,
		slug, postID)
	if err != nil {
		return fmt.Errorf("failed to set primary alias %s for post %d: %w", slug, postID, err)
	}
	return nil
}

// ResolveAlias returns the mapping for a slug, primary or not.
// Returns ErrPostNotFound if the slug maps to nothing.
func (s *Store) ResolveAlias(ctx context.Context, slug string) (*Alias, error) {
	var a Alias
	var isPrimary int
	err := s.conn.QueryRowContext(ctx,
		`SELECT slug, post_id, is_primary FROM slug_mapping WHERE slug = ?`, slug).
		Scan(&a.Slug, &a.PostID, &isPrimary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alias %s: %w", slug, err)
	}
	a.IsPrimary = isPrimary != 0
	return &a, nil
}

// ListAliases returns all mappings for a post, primary first.
func (s *Store) ListAliases(ctx context.Context, postID int64) ([]Alias, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT slug, post_id, is_primary FROM slug_mapping
		 WHERE post_id = ? ORDER BY is_primary DESC, slug ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list aliases for post %d: %w", postID, err)
	}
	defer rows.Close()

	var out []Alias
	for rows.Next() {
		var a Alias
		var isPrimary int
		if err := rows.Scan(&a.Slug, &a.PostID, &isPrimary); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		a.IsPrimary = isPrimary != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAlias removes a single mapping, for explicit cleanup only.
func (s *Store) DeleteAlias(ctx context.Context, slug string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM slug_mapping WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("failed to delete alias %s: %w", slug, err)
	}
	return nil
}

// SlugInUse reports whether a slug is taken by any mapping or any post,
// excluding rows belonging to excludePostID (0 excludes nothing). Used
// by the resolver inside the same transaction as the eventual write.
func (t *Tx) SlugInUse(ctx context.Context, slug string, excludePostID int64) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM slug_mapping WHERE slug = ? AND post_id != ?)
		     + (SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?)`,
		slug, excludePostID, slug, excludePostID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check slug %s: %w", slug, err)
	}
	return n > 0, nil
}
