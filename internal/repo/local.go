package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// LocalClient serves article files from a directory on disk. SHAs are
// sha256 hashes of the file content, which is enough for change
// detection between runs.
type LocalClient struct {
	root string
}

// NewLocalClient returns a client rooted at dir, creating it if needed.
func NewLocalClient(dir string) (*LocalClient, error) {
	if dir == "" {
		return nil, fmt.Errorf("local content directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	return &LocalClient{root: abs}, nil
}

// Root returns the absolute content directory.
func (l *LocalClient) Root() string {
	return l.root
}

func (l *LocalClient) abs(path string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(l.root, filepath.FromSlash(path)))
	if cleaned != l.root && !strings.HasPrefix(cleaned, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes content directory", path)
	}
	return cleaned, nil
}

func (l *LocalClient) rel(abs string) string {
	rel, err := filepath.Rel(l.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// List implements Client. Only the immediate children of path are
// returned; ListMarkdown handles recursion.
func (l *LocalClient) List(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := l.abs(path)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		full := filepath.Join(dir, de.Name())
		entry := Entry{Path: l.rel(full), IsDir: de.IsDir()}
		if !de.IsDir() {
			info, err := de.Info()
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", full, err)
			}
			entry.Size = info.Size()
			sha, err := hashFile(full)
			if err != nil {
				return nil, err
			}
			entry.SHA = sha
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Read implements Client.
func (l *LocalClient) Read(ctx context.Context, path string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := l.abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &Content{Text: string(data), SHA: hashBytes(data)}, nil
}

// Write implements Client. The file is written atomically so a crashed
// sync never leaves a half-written article behind.
func (l *LocalClient) Write(ctx context.Context, path, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.abs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := atomic.WriteFile(full, strings.NewReader(text)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Delete implements Client. A missing file is treated as success.
func (l *LocalClient) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// InvalidateCache implements Client. The local client reads straight
// from disk, so there is nothing to drop.
func (l *LocalClient) InvalidateCache() {}

// Walk visits every markdown file under the root in lexical order.
func (l *LocalClient) Walk(ctx context.Context, fn func(path string, content *Content) error) error {
	return filepath.WalkDir(l.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !hasMarkdownExt(d.Name()) {
			return nil
		}
		content, readErr := l.Read(ctx, l.rel(full))
		if readErr != nil {
			return readErr
		}
		return fn(l.rel(full), content)
	})
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hashBytes(data), nil
}
