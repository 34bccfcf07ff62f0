package syncer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kaiwen/blogsync/internal/dedupe"
	"github.com/kaiwen/blogsync/internal/mirror"
)

// runDedupePass finds duplicate groups across the whole mirror and
// merges each one: duplicates are deleted and their slugs become
// aliases of the kept article. Errors accumulate into result without
// failing the run.
func (o *Orchestrator) runDedupePass(ctx context.Context, result *Result) {
	articles, err := o.store.ListArticles(ctx, mirror.ListFilter{})
	if err != nil {
		result.addError("", fmt.Sprintf("failed to list articles for dedupe: %v", err), true)
		return
	}

	docs := make([]dedupe.Document, len(articles))
	for i, a := range articles {
		docs[i] = dedupe.Document{
			ID:      a.ID,
			Slug:    a.Slug,
			Title:   a.Title,
			Content: a.Content,
			Date:    a.CreatedAt,
		}
	}

	groups := dedupe.FindGroups(docs, o.dedupeOpts)
	if len(groups) == 0 {
		return
	}
	o.logf("dedupe pass found %d duplicate group(s)", len(groups))

	for _, g := range groups {
		refs := make([]mirror.DuplicateRef, len(g.Duplicates))
		for i, d := range g.Duplicates {
			refs[i] = mirror.DuplicateRef{ID: d.Doc.ID, Slug: d.Doc.Slug}
		}

		stats, err := o.store.MergeDuplicateGroup(ctx, g.Keep.ID, refs, true)
		if err != nil {
			result.addError(g.Keep.Slug, fmt.Sprintf("failed to merge duplicates: %v", err), false)
			continue
		}
		result.Processed += stats.Deleted
		o.logf("merged %d duplicate(s) into %s (%d alias(es) added)",
			stats.Deleted, g.Keep.Slug, stats.AliasesAdded)
	}
}

// runBackup shells out to the configured backup command. The command's
// exit status maps onto the usual run result shape so callers see one
// consistent report format.
func (o *Orchestrator) runBackup(ctx context.Context) *Result {
	if len(o.backupCmd) == 0 {
		return failure(fmt.Errorf("no backup command configured"))
	}

	cmd := exec.CommandContext(ctx, o.backupCmd[0], o.backupCmd[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := fmt.Sprintf("backup command failed: %v", err)
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			msg += ": " + trimmed
		}
		return failure(fmt.Errorf("%s", msg))
	}

	o.logf("backup command completed: %s", strings.TrimSpace(string(out)))
	return &Result{Success: true, Processed: 1}
}
