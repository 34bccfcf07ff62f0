package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show mirror and sync status",
	Long: `Display the current state of the mirror and the sync queue.

Shows:
  - Mirror location, schema version, and article count
  - Whether a sync is running and when the last one completed
  - Pending queue size`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		version, err := app.store.SchemaVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading schema version: %v\n", err)
			os.Exit(1)
		}
		count, err := app.store.CountArticles(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error counting articles: %v\n", err)
			os.Exit(1)
		}
		info, err := app.orch.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading sync status: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Mirror: %s (schema v%d)\n", ui.RenderAccent("●"), app.cfg.MirrorPath, version)
		fmt.Printf("   Articles: %d\n", count)

		switch info.Status {
		case "syncing":
			fmt.Printf("   Sync: %s\n", ui.RenderWarn("running"))
		default:
			fmt.Printf("   Sync: %s\n", info.Status)
		}
		if info.LastSyncTimestamp != nil {
			fmt.Printf("   Last sync: %s\n", info.LastSyncTimestamp.Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("   Last sync: %s\n", ui.RenderDim("never"))
		}
		if info.PendingOperationCount > 0 {
			fmt.Printf("   Pending queue: %s\n", ui.RenderWarn(fmt.Sprintf("%d item(s)", info.PendingOperationCount)))
		} else {
			fmt.Printf("   Pending queue: empty\n")
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
