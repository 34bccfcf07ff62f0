// Package article provides the Article data model and the markdown
// frontmatter codec used by the content repository.
//
// Articles live as markdown files with YAML frontmatter in the content
// repository (content/posts/<category>/<slug>.md) and are mirrored into
// the relational store for querying. This package owns the translation
// between the two representations.
package article

import (
	"fmt"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Article is a single blog post. Identity is the slug once mirrored;
// ID is the mirror's numeric key and is zero for unpersisted articles.
type Article struct {
	ID         int64
	Slug       string
	Title      string
	Content    string // markdown body, frontmatter removed
	Excerpt    string
	Published  bool
	Featured   bool
	SourcePath string // path in the content repository, empty if unknown
	Categories []string
	Tags       []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the fields required before an article may be mirrored.
func (a *Article) Validate() error {
	if a.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(a.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(a.Title))
	}
	if a.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// Filename returns the canonical repository filename for this article:
// content/posts/<first-category>/<slug>.md, with "uncategorized" as the
// category fallback.
func (a *Article) Filename(basePath string) string {
	category := "uncategorized"
	if len(a.Categories) > 0 && a.Categories[0] != "" {
		category = a.Categories[0]
	}
	return path.Join(basePath, category, a.Slug+".md")
}

// frontmatter is the YAML header carried by article files.
type frontmatter struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date,omitempty"`
	Updated    string   `yaml:"updated,omitempty"`
	Excerpt    string   `yaml:"excerpt,omitempty"`
	Published  *bool    `yaml:"published,omitempty"`
	Featured   bool     `yaml:"featured,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Tags       []string `yaml:"tags,omitempty"`
}

// dateLayouts are the timestamp formats accepted in frontmatter, most
// specific first. Imported content mixes all of them.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// Parse decodes an article file. srcPath is the repository path the
// content was read from; it supplies the slug fallback (file basename)
// and is recorded as SourcePath.
//
// A file without frontmatter is still accepted: the whole text becomes
// the body and the title falls back to the basename. Malformed YAML is
// an error because silently mis-filing metadata corrupts the mirror.
func Parse(srcPath, raw string) (*Article, error) {
	base := strings.TrimSuffix(path.Base(srcPath), path.Ext(srcPath))

	a := &Article{
		Slug:       base,
		Title:      base,
		Published:  true,
		SourcePath: srcPath,
	}

	body := raw
	if strings.HasPrefix(raw, "---") {
		parts := strings.SplitN(raw[3:], "\n---", 2)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%s: unterminated frontmatter block", srcPath)
		}

		var fm frontmatter
		yamlBlock := strings.TrimPrefix(parts[0], "\n")
		if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil {
			return nil, fmt.Errorf("%s: invalid frontmatter: %w", srcPath, err)
		}

		if fm.Title != "" {
			a.Title = fm.Title
		}
		a.Excerpt = fm.Excerpt
		a.Featured = fm.Featured
		a.Categories = fm.Categories
		a.Tags = fm.Tags
		if fm.Published != nil {
			a.Published = *fm.Published
		}
		if fm.Date != "" {
			t, err := parseDate(fm.Date)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", srcPath, err)
			}
			a.CreatedAt = t
		}
		if fm.Updated != "" {
			t, err := parseDate(fm.Updated)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", srcPath, err)
			}
			a.UpdatedAt = t
		}

		body = strings.TrimPrefix(parts[1], "\n")
		body = strings.TrimPrefix(body, "\r\n")
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	a.Content = body

	return a, nil
}

// Render serializes the article back to its file form: a YAML
// frontmatter block followed by the markdown body.
func Render(a *Article) (string, error) {
	published := a.Published
	fm := frontmatter{
		Title:      a.Title,
		Date:       a.CreatedAt.Format(time.RFC3339),
		Updated:    a.UpdatedAt.Format(time.RFC3339),
		Excerpt:    a.Excerpt,
		Published:  &published,
		Featured:   a.Featured,
		Categories: a.Categories,
		Tags:       a.Tags,
	}

	data, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(data)
	sb.WriteString("---\n\n")
	sb.WriteString(a.Content)
	if !strings.HasSuffix(a.Content, "\n") {
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
