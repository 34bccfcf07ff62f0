package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func newTestLocal(t *testing.T) *LocalClient {
	t.Helper()
	client, err := NewLocalClient(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalClient: %v", err)
	}
	return client
}

func TestLocalWriteReadRoundTrip(t *testing.T) {
	client := newTestLocal(t)
	ctx := context.Background()

	if err := client.Write(ctx, "content/posts/golang/hello.md", "# Hello\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	content, err := client.Read(ctx, "content/posts/golang/hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Text != "# Hello\n" {
		t.Errorf("Text = %q, want %q", content.Text, "# Hello\n")
	}
	if content.SHA == "" {
		t.Error("expected a content hash")
	}
}

func TestLocalSHAChangesWithContent(t *testing.T) {
	client := newTestLocal(t)
	ctx := context.Background()

	if err := client.Write(ctx, "a.md", "one"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	first, err := client.Read(ctx, "a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if err := client.Write(ctx, "a.md", "two"); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second, err := client.Read(ctx, "a.md")
	if err != nil {
		t.Fatalf("Read after rewrite: %v", err)
	}
	if first.SHA == second.SHA {
		t.Error("SHA unchanged after content change")
	}
}

func TestLocalReadNotFound(t *testing.T) {
	client := newTestLocal(t)

	_, err := client.Read(context.Background(), "missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalDeleteMissingIsSuccess(t *testing.T) {
	client := newTestLocal(t)

	if err := client.Delete(context.Background(), "missing.md"); err != nil {
		t.Errorf("Delete missing file: %v, want nil", err)
	}
}

func TestLocalDelete(t *testing.T) {
	client := newTestLocal(t)
	ctx := context.Background()

	if err := client.Write(ctx, "a.md", "body"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := client.Delete(ctx, "a.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := client.Read(ctx, "a.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read after delete: err = %v, want ErrNotFound", err)
	}
}

func TestLocalListMarkdownRecurses(t *testing.T) {
	client := newTestLocal(t)
	ctx := context.Background()

	for path, text := range map[string]string{
		"golang/a.md":  "a",
		"golang/b.md":  "b",
		"devops/c.md":  "c",
		"devops/d.txt": "not markdown",
		"top-level.md": "t",
	} {
		if err := client.Write(ctx, path, text); err != nil {
			t.Fatalf("Write %s: %v", path, err)
		}
	}

	entries, err := ListMarkdown(ctx, client, "")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)

	want := []string{"devops/c.md", "golang/a.md", "golang/b.md", "top-level.md"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLocalRejectsPathEscape(t *testing.T) {
	client := newTestLocal(t)

	if _, err := client.Read(context.Background(), "../outside.md"); err == nil {
		t.Error("expected error for path escaping the root")
	}
}

func TestLocalWalkVisitsMarkdownOnly(t *testing.T) {
	client := newTestLocal(t)
	ctx := context.Background()

	if err := client.Write(ctx, "golang/a.md", "a"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(client.Root(), "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var visited []string
	err := client.Walk(ctx, func(path string, content *Content) error {
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(visited) != 1 || visited[0] != "golang/a.md" {
		t.Errorf("visited = %v, want [golang/a.md]", visited)
	}
}
