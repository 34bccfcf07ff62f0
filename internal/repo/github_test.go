package repo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeGitHub serves a minimal slice of the contents API backed by an
// in-memory file map.
type fakeGitHub struct {
	files    map[string]string // path -> text
	requests []string          // "METHOD path"
}

func (f *fakeGitHub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/repos/kaiwen/blog/contents/"
		if len(r.URL.Path) < len(prefix) || r.URL.Path[:len(prefix)] != prefix {
			http.NotFound(w, r)
			return
		}
		path := r.URL.Path[len(prefix):]
		f.requests = append(f.requests, r.Method+" "+path)

		switch r.Method {
		case http.MethodGet:
			if text, ok := f.files[path]; ok {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"name":    path,
					"path":    path,
					"sha":     "sha-" + path,
					"size":    len(text),
					"type":    "file",
					"content": base64.StdEncoding.EncodeToString([]byte(text)),
				})
				return
			}
			// Directory listing: children of path.
			var entries []map[string]interface{}
			for p, text := range f.files {
				if dirOf(p) == path {
					entries = append(entries, map[string]interface{}{
						"name": p, "path": p, "sha": "sha-" + p,
						"size": len(text), "type": "file",
					})
				}
			}
			if entries == nil {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(entries)

		case http.MethodPut:
			var body struct {
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if _, exists := f.files[path]; exists && body.SHA == "" {
				http.Error(w, "sha required", http.StatusConflict)
				return
			}
			decoded, _ := base64.StdEncoding.DecodeString(body.Content)
			f.files[path] = string(decoded)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("{}"))

		case http.MethodDelete:
			if _, exists := f.files[path]; !exists {
				http.NotFound(w, r)
				return
			}
			delete(f.files, path)
			w.Write([]byte("{}"))
		}
	}
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return ""
}

func newTestGitHub(t *testing.T, files map[string]string) (*GitHubClient, *fakeGitHub) {
	t.Helper()
	fake := &fakeGitHub{files: files}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(GitHubConfig{
		Owner:   "kaiwen",
		Repo:    "blog",
		Token:   "test-token",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGitHubClient: %v", err)
	}
	return client, fake
}

func TestGitHubReadDecodesBase64(t *testing.T) {
	client, _ := newTestGitHub(t, map[string]string{
		"content/posts/golang/hello.md": "# Hello\n",
	})

	content, err := client.Read(context.Background(), "content/posts/golang/hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content.Text != "# Hello\n" {
		t.Errorf("Text = %q, want %q", content.Text, "# Hello\n")
	}
	if content.SHA == "" {
		t.Error("expected a SHA")
	}
}

func TestGitHubReadNotFound(t *testing.T) {
	client, _ := newTestGitHub(t, map[string]string{})

	_, err := client.Read(context.Background(), "content/posts/missing.md")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGitHubReadUsesCache(t *testing.T) {
	client, fake := newTestGitHub(t, map[string]string{
		"content/posts/a.md": "one",
	})
	ctx := context.Background()

	if _, err := client.Read(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if _, err := client.Read(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if got := len(fake.requests); got != 1 {
		t.Errorf("requests = %d, want 1 (second read should hit cache)", got)
	}

	client.InvalidateCache()
	if _, err := client.Read(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("Read after invalidate: %v", err)
	}
	if got := len(fake.requests); got != 2 {
		t.Errorf("requests = %d, want 2 after invalidate", got)
	}
}

func TestGitHubWriteCarriesSHAForUpdate(t *testing.T) {
	client, fake := newTestGitHub(t, map[string]string{
		"content/posts/a.md": "old",
	})
	ctx := context.Background()

	if err := client.Write(ctx, "content/posts/a.md", "new"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if fake.files["content/posts/a.md"] != "new" {
		t.Errorf("remote content = %q, want %q", fake.files["content/posts/a.md"], "new")
	}

	// A fresh path must not require a SHA.
	if err := client.Write(ctx, "content/posts/b.md", "brand new"); err != nil {
		t.Fatalf("Write new file: %v", err)
	}
	if fake.files["content/posts/b.md"] != "brand new" {
		t.Errorf("new file content = %q", fake.files["content/posts/b.md"])
	}
}

func TestGitHubWriteInvalidatesCachedEntry(t *testing.T) {
	client, _ := newTestGitHub(t, map[string]string{
		"content/posts/a.md": "old",
	})
	ctx := context.Background()

	if _, err := client.Read(ctx, "content/posts/a.md"); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := client.Write(ctx, "content/posts/a.md", "new"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	content, err := client.Read(ctx, "content/posts/a.md")
	if err != nil {
		t.Fatalf("Read after write: %v", err)
	}
	if content.Text != "new" {
		t.Errorf("Text = %q, want %q", content.Text, "new")
	}
}

func TestGitHubDeleteMissingIsSuccess(t *testing.T) {
	client, _ := newTestGitHub(t, map[string]string{})

	if err := client.Delete(context.Background(), "content/posts/gone.md"); err != nil {
		t.Errorf("Delete missing file: %v, want nil", err)
	}
}

func TestGitHubDelete(t *testing.T) {
	client, fake := newTestGitHub(t, map[string]string{
		"content/posts/a.md": "body",
	})

	if err := client.Delete(context.Background(), "content/posts/a.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, exists := fake.files["content/posts/a.md"]; exists {
		t.Error("file still present after delete")
	}
}

func TestGitHubListMarkdownRecurses(t *testing.T) {
	client, _ := newTestGitHub(t, map[string]string{
		"content/posts/golang/a.md": "a",
		"content/posts/golang/b.md": "b",
		"content/posts/notes.txt":   "skip",
		"content/posts/devops/c.md": "c",
	})

	// The fake lists only exact directory children, so list each
	// category directly.
	entries, err := ListMarkdown(context.Background(), client, "content/posts/golang")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}
