// Package daemon watches the local content directory and feeds file
// changes into the mirror and the sync queue.
//
// The daemon:
//  1. Mirrors each changed article file as soon as it settles
//  2. Enqueues the matching create/update/delete queue item so the
//     next to-remote run pushes the change out
//  3. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kaiwen/blogsync/internal/mirror"
)

// Ingestor is the slice of the sync orchestrator the daemon drives.
type Ingestor interface {
	// IngestLocalFile mirrors one local file and reports the queue
	// operation and target for the remote push.
	IngestLocalFile(ctx context.Context, rel string) (op, target string, err error)
	// RemoveLocalFile drops the mirror row for a deleted file and
	// reports the repository path a queued delete should target.
	RemoveLocalFile(ctx context.Context, rel string) (string, error)
}

// Enqueuer persists queue items. *mirror.Store satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, operation, target string) (string, error)
}

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a file must stay quiet before its
	// change is processed. Editors save in bursts; this batches them.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates file watching and queue feeding.
type Daemon struct {
	contentDir string
	ingestor   Ingestor
	queue      Enqueuer
	config     *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // relative path -> last event time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon watching contentDir.
func New(contentDir string, ingestor Ingestor, queue Enqueuer) (*Daemon, error) {
	return NewWithConfig(contentDir, ingestor, queue, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(contentDir string, ingestor Ingestor, queue Enqueuer, config *Config) (*Daemon, error) {
	if contentDir == "" {
		return nil, fmt.Errorf("contentDir cannot be empty")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	abs, err := filepath.Abs(contentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		contentDir:  abs,
		ingestor:    ingestor,
		queue:       queue,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching. The content directory and every
// subdirectory are watched; directories created later are picked up
// from their create events. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.watchTree(d.contentDir); err != nil {
		return err
	}
	d.config.Logger.Printf("Watching: %s", d.contentDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// watchTree subscribes root and every directory below it. fsnotify
// watches are not recursive.
func (d *Daemon) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := d.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := d.watchTree(event.Name); err != nil {
						d.config.Logger.Printf("Failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !IsArticleEvent(event) {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// IsArticleEvent reports whether a filesystem event concerns an
// article file the daemon should act on. Chmod-only events and
// non-markdown files are ignored; renames count as deletes (the new
// name arrives as its own create event).
func IsArticleEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".md" || ext == ".markdown"
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(absPath string) {
	rel, err := filepath.Rel(d.contentDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}

	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	d.changeQueue[filepath.ToSlash(rel)] = time.Now()
}

// processChangeQueue drains settled changes on a debounce tick.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges handles files whose last event is old enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	var ready []string
	now := time.Now()
	for rel, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) >= d.config.DebounceInterval {
			ready = append(ready, rel)
			delete(d.changeQueue, rel)
		}
	}
	d.changeQueueMu.Unlock()

	for _, rel := range ready {
		if err := d.processChange(rel); err != nil {
			d.config.Logger.Printf("Error processing %s: %v", rel, err)
		}
	}
}

// processChange mirrors one settled file change and enqueues the
// matching remote push. Whether the change is an upsert or a delete is
// decided by whether the file still exists, not by the event kind:
// create/write/remove events for the same path may have coalesced
// during the debounce window.
func (d *Daemon) processChange(rel string) error {
	_, statErr := os.Stat(filepath.Join(d.contentDir, filepath.FromSlash(rel)))

	if os.IsNotExist(statErr) {
		target, err := d.ingestor.RemoveLocalFile(d.ctx, rel)
		if err != nil {
			return err
		}
		id, err := d.queue.Enqueue(d.ctx, mirror.OpDelete, target)
		if err != nil {
			return fmt.Errorf("failed to enqueue delete: %w", err)
		}
		d.config.Logger.Printf("Queued delete %s (item %s)", target, id)
		return nil
	}
	if statErr != nil {
		return statErr
	}

	op, target, err := d.ingestor.IngestLocalFile(d.ctx, rel)
	if err != nil {
		return err
	}
	id, err := d.queue.Enqueue(d.ctx, op, target)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", op, err)
	}
	d.config.Logger.Printf("Queued %s %s (item %s)", op, target, id)
	return nil
}
