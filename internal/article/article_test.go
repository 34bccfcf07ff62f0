package article

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse_Frontmatter(t *testing.T) {
	raw := `---
title: Notion 使用指南
date: 2024-03-01
updated: 2024-03-05 10:30:00
excerpt: A short intro
published: true
featured: true
categories:
  - tools
tags:
  - notion
  - productivity
---

# Heading

Body text.
`

	a, err := Parse("content/posts/tools/notion-guide.md", raw)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if a.Title != "Notion 使用指南" {
		t.Errorf("Title = %q, want %q", a.Title, "Notion 使用指南")
	}
	if a.Slug != "notion-guide" {
		t.Errorf("Slug = %q, want %q", a.Slug, "notion-guide")
	}
	if a.SourcePath != "content/posts/tools/notion-guide.md" {
		t.Errorf("SourcePath = %q", a.SourcePath)
	}
	if !a.Published || !a.Featured {
		t.Errorf("Published = %v, Featured = %v, want both true", a.Published, a.Featured)
	}
	if got, want := a.CreatedAt, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got, want)
	}
	if got, want := a.UpdatedAt, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", got, want)
	}
	if diff := cmp.Diff([]string{"notion", "productivity"}, a.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(a.Content, "# Heading") {
		t.Errorf("Content should start with body, got %q", a.Content)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	a, err := Parse("content/posts/misc/raw-note.md", "just some text\n")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if a.Title != "raw-note" {
		t.Errorf("Title = %q, want basename fallback", a.Title)
	}
	if a.Content != "just some text\n" {
		t.Errorf("Content = %q", a.Content)
	}
	if !a.Published {
		t.Error("Published should default to true")
	}
	if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
		t.Error("timestamps should be defaulted")
	}
}

func TestParse_UnterminatedFrontmatter(t *testing.T) {
	if _, err := Parse("p.md", "---\ntitle: x\nno closing delimiter"); err == nil {
		t.Fatal("Parse() should fail on unterminated frontmatter")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse("p.md", "---\ntitle: [unclosed\n---\nbody"); err == nil {
		t.Fatal("Parse() should fail on invalid YAML")
	}
}

func TestParse_BadDate(t *testing.T) {
	if _, err := Parse("p.md", "---\ntitle: x\ndate: not-a-date\n---\nbody"); err == nil {
		t.Fatal("Parse() should fail on unrecognized date")
	}
}

func TestRender_RoundTrip(t *testing.T) {
	orig := &Article{
		Slug:       "golang-errors",
		Title:      "Go error handling",
		Content:    "Errors are values.\n",
		Excerpt:    "On errors",
		Published:  true,
		Categories: []string{"golang"},
		Tags:       []string{"errors"},
		CreatedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:  time.Date(2024, 1, 3, 3, 4, 5, 0, time.UTC),
	}

	rendered, err := Render(orig)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	parsed, err := Parse("content/posts/golang/golang-errors.md", rendered)
	if err != nil {
		t.Fatalf("Parse(Render()) failed: %v", err)
	}

	if parsed.Title != orig.Title {
		t.Errorf("Title = %q, want %q", parsed.Title, orig.Title)
	}
	if parsed.Content != orig.Content {
		t.Errorf("Content = %q, want %q", parsed.Content, orig.Content)
	}
	if !parsed.CreatedAt.Equal(orig.CreatedAt) || !parsed.UpdatedAt.Equal(orig.UpdatedAt) {
		t.Errorf("timestamps not preserved: %v / %v", parsed.CreatedAt, parsed.UpdatedAt)
	}
	if diff := cmp.Diff(orig.Categories, parsed.Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_UnpublishedPreserved(t *testing.T) {
	a := &Article{
		Title:     "Draft",
		Content:   "wip",
		Published: false,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	rendered, err := Render(a)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	parsed, err := Parse("draft.md", rendered)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if parsed.Published {
		t.Error("published: false must survive a round trip")
	}
}

func TestFilename(t *testing.T) {
	a := &Article{Slug: "my-post", Categories: []string{"golang", "tools"}}
	if got := a.Filename("content/posts"); got != "content/posts/golang/my-post.md" {
		t.Errorf("Filename = %q", got)
	}

	b := &Article{Slug: "my-post"}
	if got := b.Filename("content/posts"); got != "content/posts/uncategorized/my-post.md" {
		t.Errorf("Filename = %q", got)
	}
}

func TestValidate(t *testing.T) {
	a := &Article{Title: "ok", CreatedAt: time.Now()}
	if err := a.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	if err := (&Article{CreatedAt: time.Now()}).Validate(); err == nil {
		t.Error("Validate() should reject missing title")
	}
	if err := (&Article{Title: strings.Repeat("x", 501), CreatedAt: time.Now()}).Validate(); err == nil {
		t.Error("Validate() should reject overlong title")
	}
	if err := (&Article{Title: "ok"}).Validate(); err == nil {
		t.Error("Validate() should reject zero created_at")
	}
}
