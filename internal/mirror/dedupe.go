package mirror

import (
	"context"
	"fmt"
)

// DuplicateRef identifies one duplicate post to fold into a kept post.
type DuplicateRef struct {
	ID   int64
	Slug string
}

// MergeStats reports what a merge actually changed. Re-running the same
// merge yields zeros everywhere: the operation is idempotent.
type MergeStats struct {
	Deleted      int
	AliasesAdded int
	AliasesKept  int // mappings that already existed and were left alone
}

// MergeDuplicateGroup folds duplicates into the kept post inside one
// transaction. For each duplicate:
//
//   - when deleteDupes is set, the duplicate post is deleted (its own
//     aliases cascade away with it);
//   - the duplicate's slug is added as a non-primary alias of keepID,
//     unless a mapping for that slug already exists.
//
// The existence check before each insert is what makes re-runs safe: a
// second pass finds every mapping present and changes nothing.
func (s *Store) MergeDuplicateGroup(ctx context.Context, keepID int64, dupes []DuplicateRef, deleteDupes bool) (*MergeStats, error) {
	stats := &MergeStats{}

	err := s.WithTx(ctx, func(t *Tx) error {
		for _, dup := range dupes {
			if dup.ID == keepID {
				return fmt.Errorf("post %d cannot be a duplicate of itself", keepID)
			}

			if deleteDupes {
				// Delete first so the duplicate's own primary mapping
				// does not mask the redirect we are about to create.
				res, err := t.tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, dup.ID)
				if err != nil {
					return fmt.Errorf("failed to delete duplicate %d: %w", dup.ID, err)
				}
				if n, err := res.RowsAffected(); err == nil && n > 0 {
					stats.Deleted++
				}
			}

			exists, err := t.AliasExists(ctx, dup.Slug)
			if err != nil {
				return err
			}
			if exists {
				stats.AliasesKept++
				continue
			}
			if err := t.InsertAlias(ctx, dup.Slug, keepID, false); err != nil {
				return err
			}
			stats.AliasesAdded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
