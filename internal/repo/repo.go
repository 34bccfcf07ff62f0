// Package repo provides content repository clients: the remote GitHub
// store that is the source of truth for articles, and a local
// filesystem store used by directional syncs to and from a working
// copy.
//
// Both implement Client, so the sync orchestrator is indifferent to
// where article files actually live.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a path does not exist in the store.
var ErrNotFound = errors.New("path not found")

// Entry is one node of the repository tree listing.
type Entry struct {
	// Path is the repository-relative path, e.g.
	// content/posts/golang/my-post.md.
	Path string
	// SHA identifies the content version. For local files this is a
	// content hash; for GitHub it is the blob SHA required by writes.
	SHA string
	// Size in bytes.
	Size int64
	// IsDir marks tree entries that must be listed recursively.
	IsDir bool
}

// Content is a fetched file.
type Content struct {
	Text string
	SHA  string
}

// Client is the content repository contract consumed by the sync core.
type Client interface {
	// List returns the entries directly under path (non-recursive).
	List(ctx context.Context, path string) ([]Entry, error)

	// Read fetches a file's text and content SHA. Returns ErrNotFound
	// for missing paths.
	Read(ctx context.Context, path string) (*Content, error)

	// Write creates or replaces the file at path.
	Write(ctx context.Context, path, text string) error

	// Delete removes the file at path. Deleting a missing file is a
	// success, not an error: delete operations must be safe to replay.
	Delete(ctx context.Context, path string) error

	// InvalidateCache drops any read-through cache so subsequent reads
	// hit the backing store. Called at the start of every sync run.
	InvalidateCache()
}

// ListMarkdown walks the tree under root and returns every markdown
// file entry, depth-first.
func ListMarkdown(ctx context.Context, c Client, root string) ([]Entry, error) {
	entries, err := c.List(ctx, root)
	if err != nil {
		return nil, err
	}

	var files []Entry
	for _, e := range entries {
		if e.IsDir {
			sub, err := ListMarkdown(ctx, c, e.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		if hasMarkdownExt(e.Path) {
			files = append(files, e)
		}
	}
	return files, nil
}

func hasMarkdownExt(path string) bool {
	n := len(path)
	return (n > 3 && path[n-3:] == ".md") || (n > 9 && path[n-9:] == ".markdown")
}
