package slug

import (
	"context"
	"fmt"
	"strconv"
)

// Index answers slug uniqueness queries. *mirror.Tx satisfies it, which
// is the point: the check-and-append loop must run inside the same
// transaction as the eventual write, or two concurrent resolutions
// could both claim a free slug.
type Index interface {
	// SlugInUse reports whether slug is taken by any post or alias,
	// ignoring rows that belong to excludePostID (0 excludes nothing).
	SlugInUse(ctx context.Context, slug string, excludePostID int64) (bool, error)
}

// Resolver turns titles into unique slugs.
type Resolver struct {
	// MaxLength caps slug length (0 = DefaultMaxLength).
	MaxLength int
}

// Resolve derives a slug from title and guarantees it is free in idx.
// existingID, when non-zero, is the post being updated; its own slug
// does not count as a collision. Taken candidates get "-1", "-2", ...
// appended until one is free, shortening the base if needed so the
// suffix never pushes past MaxLength.
//
// Resolve has no side effects; the caller persists the slug and the
// alias rows in the same transaction idx belongs to.
func (r *Resolver) Resolve(ctx context.Context, idx Index, title string, existingID int64) (string, error) {
	max := r.MaxLength
	if max <= 0 {
		max = DefaultMaxLength
	}

	base := Slugify(title, max)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for counter := 1; ; counter++ {
		inUse, err := idx.SlugInUse(ctx, candidate, existingID)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}
		if !inUse {
			return candidate, nil
		}

		suffix := "-" + strconv.Itoa(counter)
		trimmed := base
		if len(trimmed)+len(suffix) > max {
			trimmed = truncateAtHyphen(trimmed, max-len(suffix))
		}
		candidate = trimmed + suffix
	}
}
