package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kaiwen/blogsync/internal/article"
	"github.com/kaiwen/blogsync/internal/mirror"
)

// syncToRemote drains the pending queue into the content repository.
// Items run sequentially so two operations never interleave writes to
// the same remote path.
func (o *Orchestrator) syncToRemote(ctx context.Context) *Result {
	items, err := o.store.ListPending(ctx)
	if err != nil {
		return failure(fmt.Errorf("failed to list pending queue: %w", err))
	}

	result := &Result{Success: true}
	for _, item := range items {
		if err := o.store.SetQueueStatus(ctx, item.ID, mirror.QueueStatusProcessing, "", false); err != nil {
			result.Success = false
			result.addError(item.Target, fmt.Sprintf("failed to update queue item: %v", err), false)
			return result
		}

		recoverable, err := o.processQueueItem(ctx, item)
		if err != nil {
			o.logf("queue item %s (%s %s) failed: %v", item.ID, item.Operation, item.Target, err)
			result.addError(item.Target, err.Error(), recoverable)
			if statusErr := o.store.SetQueueStatus(ctx, item.ID, mirror.QueueStatusError, err.Error(), recoverable); statusErr != nil {
				result.Success = false
				result.addError(item.Target, fmt.Sprintf("failed to record item error: %v", statusErr), false)
				return result
			}
			continue
		}

		if err := o.store.SetQueueStatus(ctx, item.ID, mirror.QueueStatusSuccess, "", false); err != nil {
			result.Success = false
			result.addError(item.Target, fmt.Sprintf("failed to record item success: %v", err), false)
			return result
		}
		result.Processed++
	}
	return result
}

// processQueueItem pushes one queued change to the content repository.
// For create/update the target is the article slug; for delete it is
// the repository path, since the article row is already gone.
func (o *Orchestrator) processQueueItem(ctx context.Context, item mirror.QueueItem) (bool, error) {
	switch item.Operation {
	case mirror.OpCreate, mirror.OpUpdate:
		return o.pushArticle(ctx, item.Target)
	case mirror.OpDelete:
		if err := o.remote.Delete(ctx, item.Target); err != nil {
			return true, fmt.Errorf("failed to delete remote file: %w", err)
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown queue operation %q", item.Operation)
	}
}

func (o *Orchestrator) pushArticle(ctx context.Context, slug string) (bool, error) {
	a, err := o.store.GetArticleBySlug(ctx, slug)
	if errors.Is(err, mirror.ErrPostNotFound) {
		return false, fmt.Errorf("article %q no longer exists in the mirror", slug)
	}
	if err != nil {
		return true, fmt.Errorf("failed to load article %q: %w", slug, err)
	}

	rendered, err := article.Render(a)
	if err != nil {
		return false, fmt.Errorf("failed to render article %q: %w", slug, err)
	}

	path := a.SourcePath
	if path == "" {
		path = a.Filename(o.remoteRoot)
	}
	if err := o.remote.Write(ctx, path, rendered); err != nil {
		return true, fmt.Errorf("failed to write remote file %s: %w", path, err)
	}

	if a.SourcePath != path {
		a.SourcePath = path
		err := o.store.WithTx(ctx, func(tx *mirror.Tx) error {
			return tx.UpdateArticle(ctx, a)
		})
		if err != nil {
			return false, fmt.Errorf("failed to record source path for %q: %w", slug, err)
		}
	}
	return false, nil
}

// syncToLocal exports every mirror article into the local content
// directory.
func (o *Orchestrator) syncToLocal(ctx context.Context) *Result {
	articles, err := o.store.ListArticles(ctx, mirror.ListFilter{})
	if err != nil {
		return failure(fmt.Errorf("failed to list mirror articles: %w", err))
	}

	result := &Result{Success: true}
	for _, a := range articles {
		rendered, err := article.Render(a)
		if err != nil {
			result.addError(a.Slug, fmt.Sprintf("failed to render article: %v", err), false)
			continue
		}
		rel := a.Filename("")
		if a.SourcePath != "" {
			// Keep the repository layout so a later from-local run
			// maps files back onto the same mirror rows.
			rel = strings.TrimPrefix(a.SourcePath, o.remoteRoot+"/")
		}
		if err := o.local.Write(ctx, rel, rendered); err != nil {
			result.addError(a.Slug, fmt.Sprintf("failed to write local file: %v", err), true)
			continue
		}
		result.Processed++
	}
	return result
}
