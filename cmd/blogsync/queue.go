package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/mirror"
	"github.com/kaiwen/blogsync/internal/ui"
)

var (
	queueAll        bool
	queuePruneAfter time.Duration
)

var queueCmd = &cobra.Command{
	Use:     "queue",
	GroupID: "sync",
	Short:   "Inspect and prune the sync queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued operations",
	Long: `List pending sync operations, oldest first.

Use --all to include items that already finished (success or error).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		var (
			items []mirror.QueueItem
			err   error
		)
		if queueAll {
			items, err = app.store.ListQueue(ctx)
		} else {
			items, err = app.store.ListPending(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing queue: %v\n", err)
			os.Exit(1)
		}

		if len(items) == 0 {
			fmt.Printf("%s Queue is empty\n", ui.RenderPass("✓"))
			return
		}

		for _, item := range items {
			marker := ui.RenderAccent("●")
			switch item.Status {
			case mirror.QueueStatusSuccess:
				marker = ui.RenderPass("✓")
			case mirror.QueueStatusError:
				marker = ui.RenderErr("✗")
			case mirror.QueueStatusProcessing:
				marker = ui.RenderWarn("…")
			}
			fmt.Printf("%s %-7s %-9s %s %s\n",
				marker, item.Operation, item.Status, item.Target,
				ui.RenderDim(item.CreatedAt.Local().Format("2006-01-02 15:04:05")))
			if item.ErrorDetail != "" {
				fmt.Printf("    %s\n", ui.RenderDim(item.ErrorDetail))
			}
		}
		fmt.Printf("\n%d item(s)\n", len(items))
	},
}

var queuePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove finished queue items",
	Long: `Delete completed (success or error) queue items older than the
given age. Pending and processing items are never pruned.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		cutoff := time.Now().Add(-queuePruneAfter)
		pruned, err := app.store.PruneQueue(ctx, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pruning queue: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Pruned %d item(s)\n", ui.RenderPass("✓"), pruned)
	},
}

func init() {
	queueListCmd.Flags().BoolVar(&queueAll, "all", false, "include finished items")
	queuePruneCmd.Flags().DurationVar(&queuePruneAfter, "older-than", 7*24*time.Hour, "minimum age of pruned items")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queuePruneCmd)
	rootCmd.AddCommand(queueCmd)
}
