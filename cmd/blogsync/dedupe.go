package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/dedupe"
	"github.com/kaiwen/blogsync/internal/mirror"
	"github.com/kaiwen/blogsync/internal/syncer"
	"github.com/kaiwen/blogsync/internal/ui"
)

var (
	dedupeTitle  string
	dedupeMerge  bool
	dedupeDelete bool
	dedupeYes    bool
)

var dedupeCmd = &cobra.Command{
	Use:     "dedupe",
	GroupID: "maint",
	Short:   "Find and merge near-duplicate articles",
	Long: `Scan the mirror for articles with near-identical titles and bodies.

Without flags this only reports the duplicate groups it finds. With
--merge, each duplicate's slug becomes an alias of the kept article
(the most recently dated one); adding --delete also removes the
duplicate rows. A destructive run asks for confirmation first.

The comparison is pairwise over the whole corpus; use --title to
narrow it on large mirrors.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		if dedupeDelete {
			dedupeMerge = true
		}

		articles, err := app.store.ListArticles(ctx, mirror.ListFilter{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing articles: %v\n", err)
			os.Exit(1)
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

		opts := dedupe.Options{
			TitleThreshold:   app.cfg.Dedupe.TitleThreshold,
			ContentThreshold: app.cfg.Dedupe.ContentThreshold,
			MinContentLength: app.cfg.Dedupe.MinContentLength,
			TitleFilter:      dedupeTitle,
		}
		groups := dedupe.FindGroups(docs, opts)

		if len(groups) == 0 {
			fmt.Printf("%s No duplicates found (%d articles compared)\n", ui.RenderPass("✓"), len(docs))
			return
		}

		for i, g := range groups {
			fmt.Printf("\n%s Group %d: keep %s %s\n",
				ui.RenderAccent("●"), i+1, ui.RenderBold(g.Keep.Slug),
				ui.RenderDim(g.Keep.Date.Format("2006-01-02")))
			for _, d := range g.Duplicates {
				fmt.Printf("    duplicate %s %s\n", d.Doc.Slug,
					ui.RenderDim(fmt.Sprintf("(%s, %d day(s) apart)", d.Doc.Date.Format("2006-01-02"), d.DaysFromKeep)))
			}
		}
		fmt.Println()

		if !dedupeMerge {
			fmt.Printf("Re-run with --merge to alias duplicates, --delete to also remove them\n")
			return
		}

		if dedupeDelete && !dedupeYes {
			var confirmed bool
			prompt := huh.NewConfirm().
				Title(fmt.Sprintf("Delete duplicates across %d group(s)?", len(groups))).
				Description("Duplicate articles will be removed; their slugs stay resolvable as aliases.").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Printf("%s Aborted\n", ui.RenderWarn("⚠"))
				return
			}
		}

		err = app.orch.Maintenance(func() error {
			for _, g := range groups {
				refs := make([]mirror.DuplicateRef, len(g.Duplicates))
				for i, d := range g.Duplicates {
					refs[i] = mirror.DuplicateRef{ID: d.Doc.ID, Slug: d.Doc.Slug}
				}
				stats, err := app.store.MergeDuplicateGroup(ctx, g.Keep.ID, refs, dedupeDelete)
				if err != nil {
					return fmt.Errorf("failed to merge into %s: %w", g.Keep.Slug, err)
				}
				fmt.Printf("%s %s: %d deleted, %d alias(es) added, %d already present\n",
					ui.RenderPass("✓"), g.Keep.Slug, stats.Deleted, stats.AliasesAdded, stats.AliasesKept)
			}
			return nil
		})
		if errors.Is(err, syncer.ErrSyncInProgress) {
			fmt.Fprintf(os.Stderr, "%s A sync is running; try again when it finishes\n", ui.RenderWarn("⚠"))
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeTitle, "title", "", "only compare articles whose title contains this text")
	dedupeCmd.Flags().BoolVar(&dedupeMerge, "merge", false, "alias duplicate slugs to the kept article")
	dedupeCmd.Flags().BoolVar(&dedupeDelete, "delete", false, "also delete duplicate articles (implies --merge)")
	dedupeCmd.Flags().BoolVarP(&dedupeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(dedupeCmd)
}
