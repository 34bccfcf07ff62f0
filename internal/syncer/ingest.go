package syncer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kaiwen/blogsync/internal/article"
	"github.com/kaiwen/blogsync/internal/mirror"
	"github.com/kaiwen/blogsync/internal/repo"
)

// syncFromRepo pulls every markdown article under root into the
// mirror. It serves both from-remote and from-local; the two
// directions differ only in which client they read from. storePrefix
// is joined onto each entry path before it is recorded as the
// article's source path, so local-tree ingests land on the same
// repository-relative paths the remote uses.
func (o *Orchestrator) syncFromRepo(ctx context.Context, client repo.Client, root, storePrefix string) *Result {
	entries, err := repo.ListMarkdown(ctx, client, root)
	if err != nil {
		return failure(fmt.Errorf("failed to list content tree: %w", err))
	}

	result := &Result{Success: true}
	var mu sync.Mutex

	// Every listed path is protected from the prune below, even if its
	// ingest fails: a transient read error must not cascade into the
	// article being dropped from the mirror.
	seen := make([]string, 0, len(entries))
	for _, e := range entries {
		seen = append(seen, storedPath(storePrefix, e.Path))
	}

	// Bounded workers keep remote API pressure in check.
	var g errgroup.Group
	g.SetLimit(o.workers)
	for _, e := range entries {
		entry := e
		g.Go(func() error {
			recoverable, err := o.ingestOne(ctx, client, entry.Path, storedPath(storePrefix, entry.Path))
			mu.Lock()
			if err != nil {
				o.logf("ingest failed for %s: %v", entry.Path, err)
				result.addError(entry.Path, err.Error(), recoverable)
			} else {
				result.Processed++
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	pruned, err := o.store.DeleteArticlesNotInSourcePaths(ctx, seen)
	if err != nil {
		result.Success = false
		result.addError("", fmt.Sprintf("failed to prune removed articles: %v", err), false)
		return result
	}
	if pruned > 0 {
		o.logf("pruned %d article(s) removed from the source tree", pruned)
	}

	if err := o.store.RecountTaxonomy(ctx); err != nil {
		result.Success = false
		result.addError("", fmt.Sprintf("failed to recount taxonomy: %v", err), false)
	}
	return result
}

func storedPath(prefix, p string) string {
	if prefix == "" {
		return p
	}
	return path.Join(prefix, p)
}

// ingestOne reads, parses, and upserts a single article in its own
// transaction, so one bad file cannot abort the run. The bool reports
// whether the error is worth retrying on a later run.
func (o *Orchestrator) ingestOne(ctx context.Context, client repo.Client, readPath, storeAs string) (bool, error) {
	content, err := client.Read(ctx, readPath)
	if err != nil {
		return true, fmt.Errorf("failed to read article: %w", err)
	}

	art, err := article.Parse(storeAs, content.Text)
	if err != nil {
		// Malformed frontmatter will not fix itself on retry.
		return false, err
	}

	if _, err := o.upsertArticle(ctx, art); err != nil {
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}
	return false, nil
}

// upsertArticle writes one parsed article into the mirror, keyed by
// source path. It reports whether a new row was created, and leaves
// art carrying the mirror's id and slug.
func (o *Orchestrator) upsertArticle(ctx context.Context, art *article.Article) (bool, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	created := false
	err := o.store.WithTx(ctx, func(tx *mirror.Tx) error {
		existing, err := tx.GetArticleBySourcePath(ctx, art.SourcePath)
		if err != nil && !errors.Is(err, mirror.ErrPostNotFound) {
			return err
		}

		if existing != nil {
			art.ID = existing.ID
			art.Slug = existing.Slug
			if art.CreatedAt.After(existing.CreatedAt) {
				// Frontmatter without an explicit date defaults to
				// now; the first-seen date is the truthful one.
				art.CreatedAt = existing.CreatedAt
			}
			return tx.UpdateArticle(ctx, art)
		}

		resolved, err := o.resolver.Resolve(ctx, tx, art.Title, 0)
		if err != nil {
			return err
		}
		art.Slug = resolved

		id, err := tx.InsertArticle(ctx, art)
		if err != nil {
			return err
		}
		art.ID = id
		created = true
		return tx.SetPrimaryAlias(ctx, id, resolved)
	})
	return created, err
}

// IngestLocalFile mirrors one file from the local content directory
// and returns the queue operation and target that would push the
// change to the remote. The daemon calls this per debounced file
// event.
func (o *Orchestrator) IngestLocalFile(ctx context.Context, rel string) (op, target string, err error) {
	if o.local == nil {
		return "", "", fmt.Errorf("local content directory not configured")
	}

	content, err := o.local.Read(ctx, rel)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", rel, err)
	}

	art, err := article.Parse(storedPath(o.remoteRoot, rel), content.Text)
	if err != nil {
		return "", "", err
	}

	created, err := o.upsertArticle(ctx, art)
	if err != nil {
		return "", "", fmt.Errorf("failed to upsert %s: %w", rel, err)
	}

	op = mirror.OpUpdate
	if created {
		op = mirror.OpCreate
	}
	return op, art.Slug, nil
}

// RemoveLocalFile drops the mirror row for a deleted local file and
// returns the repository path a queued delete should target. A file
// the mirror never saw still yields the path, so the remote copy can
// be cleaned up.
func (o *Orchestrator) RemoveLocalFile(ctx context.Context, rel string) (string, error) {
	target := storedPath(o.remoteRoot, rel)

	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	err := o.store.WithTx(ctx, func(tx *mirror.Tx) error {
		existing, err := tx.GetArticleBySourcePath(ctx, target)
		if errors.Is(err, mirror.ErrPostNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.DeleteArticle(ctx, existing.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to remove mirror row for %s: %w", rel, err)
	}
	return target, nil
}
