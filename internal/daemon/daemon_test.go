package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kaiwen/blogsync/internal/mirror"
)

type fakeIngestor struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
	failOn   string
}

func (f *fakeIngestor) IngestLocalFile(ctx context.Context, rel string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rel == f.failOn {
		return "", "", fmt.Errorf("scripted failure for %s", rel)
	}
	f.ingested = append(f.ingested, rel)
	return mirror.OpUpdate, "slug-for-" + rel, nil
}

func (f *fakeIngestor) RemoveLocalFile(ctx context.Context, rel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, rel)
	return "content/posts/" + rel, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items []string // "op target"
}

func (f *fakeQueue) Enqueue(ctx context.Context, operation, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, operation+" "+target)
	return fmt.Sprintf("item-%d", len(f.items)), nil
}

func quietConfig() *Config {
	return &Config{
		DebounceInterval: 20 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

func startDaemon(t *testing.T, dir string) (*Daemon, *fakeIngestor, *fakeQueue) {
	t.Helper()

	ingestor := &fakeIngestor{}
	queue := &fakeQueue{}
	d, err := NewWithConfig(dir, ingestor, queue, quietConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	// Give the watcher a moment to subscribe before the test writes.
	time.Sleep(50 * time.Millisecond)
	return d, ingestor, queue
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("", &fakeIngestor{}, &fakeQueue{}); err == nil {
		t.Error("expected error for empty contentDir")
	}
	if _, err := New(t.TempDir(), nil, &fakeQueue{}); err == nil {
		t.Error("expected error for nil ingestor")
	}
	if _, err := New(t.TempDir(), &fakeIngestor{}, nil); err == nil {
		t.Error("expected error for nil queue")
	}
}

func TestIsArticleEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"markdown write", fsnotify.Event{Name: "a.md", Op: fsnotify.Write}, true},
		{"markdown create", fsnotify.Event{Name: "a.md", Op: fsnotify.Create}, true},
		{"markdown remove", fsnotify.Event{Name: "a.md", Op: fsnotify.Remove}, true},
		{"markdown rename", fsnotify.Event{Name: "a.md", Op: fsnotify.Rename}, true},
		{"long extension", fsnotify.Event{Name: "a.markdown", Op: fsnotify.Write}, true},
		{"chmod only", fsnotify.Event{Name: "a.md", Op: fsnotify.Chmod}, false},
		{"other file type", fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}, false},
		{"editor swap file", fsnotify.Event{Name: ".a.md.swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsArticleEvent(tt.event); got != tt.want {
				t.Errorf("IsArticleEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestDaemonIngestsWrittenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "golang"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, ingestor, queue := startDaemon(t, dir)

	path := filepath.Join(dir, "golang", "hello.md")
	if err := os.WriteFile(path, []byte("---\ntitle: Hello\n---\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.items) == 1
	})

	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if len(ingestor.ingested) != 1 || ingestor.ingested[0] != "golang/hello.md" {
		t.Errorf("ingested = %v", ingestor.ingested)
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.items[0] != "update slug-for-golang/hello.md" {
		t.Errorf("queued = %v", queue.items)
	}
}

func TestDaemonEnqueuesDeleteForRemovedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.md")
	if err := os.WriteFile(path, []byte("body"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, ingestor, queue := startDaemon(t, dir)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.items) == 1
	})

	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if len(ingestor.removed) != 1 || ingestor.removed[0] != "gone.md" {
		t.Errorf("removed = %v", ingestor.removed)
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.items[0] != "delete content/posts/gone.md" {
		t.Errorf("queued = %v", queue.items)
	}
}

func TestDaemonDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	_, _, queue := startDaemon(t, dir)

	path := filepath.Join(dir, "burst.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("rev %d", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.items) >= 1
	})

	// Let any stragglers flush before asserting.
	time.Sleep(100 * time.Millisecond)
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.items) != 1 {
		t.Errorf("items = %v, want one coalesced update", queue.items)
	}
}

func TestDaemonWatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	_, _, queue := startDaemon(t, dir)

	sub := filepath.Join(dir, "devops")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// The subscribe for the new directory races the write; brief pause
	// keeps this deterministic.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "ci.md"), []byte("body"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return len(queue.items) == 1
	})
}
