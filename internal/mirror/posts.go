package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaiwen/blogsync/internal/article"
)

// ErrPostNotFound is returned when a lookup matches no post.
var ErrPostNotFound = errors.New("post not found")

const postColumns = `id, slug, title, content, excerpt, published, featured, source_path, created_at, updated_at`

// InsertArticle inserts a new post and rebuilds its category/tag links.
// The article's Slug must already be resolved. Returns the new post id.
func (t *Tx) InsertArticle(ctx context.Context, a *article.Article) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("invalid article: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO posts (slug, title, content, excerpt, published, featured, source_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Slug, a.Title, a.Content, a.Excerpt,
		boolToInt(a.Published), boolToInt(a.Featured), a.SourcePath,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert post %s: %w", a.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read post id: %w", err)
	}

	if err := rebuildTaxonomy(ctx, t.tx, id, a.Categories, a.Tags); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateArticle rewrites an existing post identified by a.ID and
// rebuilds its category/tag links.
func (t *Tx) UpdateArticle(ctx context.Context, a *article.Article) error {
	if a.ID == 0 {
		return fmt.Errorf("update requires a post id")
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid article: %w", err)
	}

	_, err := t.tx.ExecContext(ctx, `
		UPDATE posts SET slug = ?, title = ?, content = ?, excerpt = ?,
			published = ?, featured = ?, source_path = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		a.Slug, a.Title, a.Content, a.Excerpt,
		boolToInt(a.Published), boolToInt(a.Featured), a.SourcePath,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", a.Slug, err)
	}

	return rebuildTaxonomy(ctx, t.tx, a.ID, a.Categories, a.Tags)
}

// UpdateArticleSlug changes only the slug of a post. Alias bookkeeping
// is the caller's responsibility (see SetPrimaryAlias).
func (t *Tx) UpdateArticleSlug(ctx context.Context, id int64, slug string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE posts SET slug = ? WHERE id = ?`, slug, id)
	if err != nil {
		return fmt.Errorf("failed to update slug for post %d: %w", id, err)
	}
	return nil
}

// DeleteArticle removes a post. Join rows and slug aliases cascade.
// Deleting a missing post is a no-op (idempotent).
func (t *Tx) DeleteArticle(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return nil
}

// GetArticleBySlug retrieves a post by its primary slug.
func (t *Tx) GetArticleBySlug(ctx context.Context, slug string) (*article.Article, error) {
	return getArticleBy(ctx, t.tx, "slug = ?", slug)
}

// GetArticleBySourcePath retrieves the post mirrored from the given
// repository path.
func (t *Tx) GetArticleBySourcePath(ctx context.Context, path string) (*article.Article, error) {
	return getArticleBy(ctx, t.tx, "source_path = ?", path)
}

// GetArticleBySlug retrieves a post by its primary slug.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*article.Article, error) {
	return getArticleBy(ctx, s.conn, "slug = ?", slug)
}

// GetArticleByID retrieves a post by numeric id.
func (s *Store) GetArticleByID(ctx context.Context, id int64) (*article.Article, error) {
	return getArticleBy(ctx, s.conn, "id = ?", id)
}

func getArticleBy(ctx context.Context, q dbtx, where string, arg interface{}) (*article.Article, error) {
	row := q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, arg)

	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadTaxonomy(ctx, q, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListFilter configures ListArticles. Zero value means everything,
// newest first.
type ListFilter struct {
	// Published filters on the publish flag when non-nil.
	Published *bool
	// TitleLike restricts to titles containing the substring
	// (case-insensitive).
	TitleLike string
	// Limit restricts the number of results (0 = no limit).
	Limit int
	// Offset skips the first N results (for pagination).
	Offset int
}

// ListArticles retrieves posts matching the filter, ordered by
// created_at DESC, id ASC for a stable order on equal dates.
func (s *Store) ListArticles(ctx context.Context, filter ListFilter) ([]*article.Article, error) {
	var conditions []string
	var args []interface{}

	if filter.Published != nil {
		conditions = append(conditions, "published = ?")
		args = append(args, boolToInt(*filter.Published))
	}
	if filter.TitleLike != "" {
		conditions = append(conditions, "title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.TitleLike+"%")
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var out []*article.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	for _, a := range out {
		if err := loadTaxonomy(ctx, s.conn, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountArticles returns the number of posts in the mirror.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// DeleteArticlesNotInSourcePaths removes mirrored posts whose source
// path is absent from keep. Posts that were never synced from the
// repository (empty source_path) are left alone. Returns the number of
// posts removed.
func (s *Store) DeleteArticlesNotInSourcePaths(ctx context.Context, keep []string) (int64, error) {
	query := `DELETE FROM posts WHERE source_path != ''`
	var args []interface{}
	if len(keep) > 0 {
		placeholders := strings.Repeat("?,", len(keep))
		query += ` AND source_path NOT IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, p := range keep {
			args = append(args, p)
		}
	}

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune absent posts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*article.Article, error) {
	var a article.Article
	var published, featured int
	var createdAt, updatedAt string

	err := row.Scan(
		&a.ID, &a.Slug, &a.Title, &a.Content, &a.Excerpt,
		&published, &featured, &a.SourcePath, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	a.Published = published != 0
	a.Featured = featured != 0
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		a.UpdatedAt = ts
	}
	return &a, nil
}

func loadTaxonomy(ctx context.Context, q dbtx, a *article.Article) error {
	rows, err := q.QueryContext(ctx, `
		SELECT c.name FROM categories c
		JOIN post_categories pc ON pc.category_id = c.id
		WHERE pc.post_id = ?
		ORDER BY c.name`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	a.Categories, err = collectStrings(rows)
	if err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ?
		ORDER BY t.name`, a.ID)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	a.Tags, err = collectStrings(rows)
	return err
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// taxonomySlugPattern reduces a category or tag name to a simple ASCII
// slug. Taxonomy slugs are display keys, not article identities, so the
// full resolver is not involved.
var taxonomySlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func taxonomySlug(name string) string {
	s := taxonomySlugPattern.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "misc"
	}
	return s
}

// rebuildTaxonomy replaces the post's category and tag links, creating
// missing categories/tags on the fly.
func rebuildTaxonomy(ctx context.Context, q dbtx, postID int64, categories, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("failed to clear post categories: %w", err)
	}
	for _, name := range categories {
		catID, err := ensureNamed(ctx, q, "categories", name)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)`,
			postID, catID); err != nil {
			return fmt.Errorf("failed to link category %s: %w", name, err)
		}
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("failed to clear post tags: %w", err)
	}
	for _, name := range tags {
		tagID, err := ensureNamed(ctx, q, "tags", name)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_id) VALUES (?, ?)`,
			postID, tagID); err != nil {
			return fmt.Errorf("failed to link tag %s: %w", name, err)
		}
	}
	return nil
}

// ensureNamed finds or creates a categories/tags row by slug and
// returns its id.
func ensureNamed(ctx context.Context, q dbtx, table, name string) (int64, error) {
	slug := taxonomySlug(name)

	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE slug = ?`, slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up %s %s: %w", table, slug, err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO `+table+` (name, slug) VALUES (?, ?)`, name, slug)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s %s: %w", table, slug, err)
	}
	return res.LastInsertId()
}

// RecountTaxonomy refreshes the denormalized post_count columns on
// categories and tags. Called after full syncs.
func (s *Store) RecountTaxonomy(ctx context.Context) error {
	return s.WithTx(ctx, func(t *Tx) error {
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE categories SET post_count =
				(SELECT COUNT(*) FROM post_categories WHERE category_id = categories.id)`); err != nil {
			return fmt.Errorf("failed to recount categories: %w", err)
		}
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE tags SET post_count =
				(SELECT COUNT(*) FROM post_tags WHERE tag_id = tags.id)`); err != nil {
			return fmt.Errorf("failed to recount tags: %w", err)
		}
		return nil
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
