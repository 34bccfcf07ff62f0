package slug

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kaiwen/blogsync/internal/mirror"
)

// Analysis summarizes slug health across the mirror.
type Analysis struct {
	Total         int
	NonLatin      []Flagged
	ForeignSuffix []Flagged
	Clean         int
}

// Flagged is one post whose slug needs regeneration.
type Flagged struct {
	PostID int64
	Slug   string
	Title  string
}

// FixResult reports a hygiene pass.
type FixResult struct {
	Processed int
	Fixed     int
}

// Hygiene runs slug analysis and repair over the mirror.
type Hygiene struct {
	Store    *mirror.Store
	Resolver *Resolver
	Logger   *log.Logger
}

func (h *Hygiene) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.New(os.Stderr, "[slugs] ", log.LstdFlags)
}

// Analyze scans every post and buckets slugs by defect. Read-only.
func (h *Hygiene) Analyze(ctx context.Context) (*Analysis, error) {
	posts, err := h.Store.ListArticles(ctx, mirror.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	res := &Analysis{Total: len(posts)}
	for _, p := range posts {
		flagged := false
		if ContainsNonLatinScript(p.Slug) {
			res.NonLatin = append(res.NonLatin, Flagged{PostID: p.ID, Slug: p.Slug, Title: p.Title})
			flagged = true
		}
		if HasForeignSuffix(p.Slug) {
			res.ForeignSuffix = append(res.ForeignSuffix, Flagged{PostID: p.ID, Slug: p.Slug, Title: p.Title})
			flagged = true
		}
		if !flagged {
			res.Clean++
		}
	}
	return res, nil
}

// Fix regenerates a fresh slug from the title for every flagged post,
// all inside one transaction: any failure rolls the whole pass back.
// The previous slug always survives as a non-primary alias so existing
// links keep resolving.
func (h *Hygiene) Fix(ctx context.Context) (*FixResult, error) {
	analysis, err := h.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	// A slug can be in both buckets; dedupe by post id.
	flagged := make(map[int64]Flagged)
	for _, f := range analysis.NonLatin {
		flagged[f.PostID] = f
	}
	for _, f := range analysis.ForeignSuffix {
		flagged[f.PostID] = f
	}

	result := &FixResult{Processed: len(flagged)}
	if len(flagged) == 0 {
		return result, nil
	}

	logger := h.logger()
	err = h.Store.WithTx(ctx, func(tx *mirror.Tx) error {
		for _, f := range flagged {
			fresh, err := h.Resolver.Resolve(ctx, tx, f.Title, f.PostID)
			if err != nil {
				return fmt.Errorf("failed to resolve slug for post %d: %w", f.PostID, err)
			}
			if fresh == f.Slug {
				continue
			}

			if err := tx.UpdateArticleSlug(ctx, f.PostID, fresh); err != nil {
				return err
			}
			// Demotes the old primary mapping in place, so the old slug
			// keeps resolving as a non-primary alias.
			if err := tx.SetPrimaryAlias(ctx, f.PostID, fresh); err != nil {
				return err
			}

			logger.Printf("Regenerated slug: %s -> %s (post %d)", f.Slug, fresh, f.PostID)
			result.Fixed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
