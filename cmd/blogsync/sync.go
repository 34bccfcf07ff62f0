package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/syncer"
	"github.com/kaiwen/blogsync/internal/ui"
)

var (
	syncDirection string
	syncMode      string
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run a sync between the content repository and the mirror",
	Long: `Run one sync pass in the chosen direction.

Directions:
  from-remote    pull the repository tree into the mirror (default)
  to-remote      drain the pending queue out to the repository
  bidirectional  from-remote followed by to-remote
  from-local     pull the local content directory into the mirror
  to-local       export the mirror into the local content directory

Modes:
  standard         the directional sync only (default)
  enhanced         also merge near-duplicate articles afterwards
  external-backup  run the configured backup command instead`,
	Run: func(cmd *cobra.Command, args []string) {
		direction, err := syncer.ParseDirection(syncDirection)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		mode, err := syncer.ParseMode(syncMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		fmt.Printf("%s Syncing %s (%s mode)...\n", ui.RenderAccent("🔄"), direction, mode)
		start := time.Now()

		result, err := app.orch.Run(ctx, direction, mode)
		if errors.Is(err, syncer.ErrSyncInProgress) {
			fmt.Fprintf(os.Stderr, "%s Another sync is already running; try again shortly\n", ui.RenderWarn("⚠"))
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		if result.Success {
			fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), elapsed)
		} else {
			fmt.Printf("%s Sync failed after %v\n", ui.RenderErr("✗"), elapsed)
		}
		fmt.Printf("   Processed: %d\n", result.Processed)
		fmt.Printf("   Errors: %d\n", result.Errors)
		if result.FromRemote != nil {
			fmt.Printf("   From remote: %d processed, %d errors\n", result.FromRemote.Processed, result.FromRemote.Errors)
		}
		if result.ToRemote != nil {
			fmt.Printf("   To remote: %d processed, %d errors\n", result.ToRemote.Processed, result.ToRemote.Errors)
		}
		for _, detail := range result.ErrorDetails {
			target := detail.Target
			if target == "" {
				target = "(run)"
			}
			fmt.Printf("   %s %s: %s\n", ui.RenderErr("✗"), target, detail.Message)
		}

		if !result.Success {
			os.Exit(1)
		}
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncDirection, "direction", "d", "from-remote", "sync direction")
	syncCmd.Flags().StringVarP(&syncMode, "mode", "m", "standard", "sync mode")
	rootCmd.AddCommand(syncCmd)
}
