package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/daemon"
	"github.com/kaiwen/blogsync/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Watch the local content directory and queue changes",
	Long: `Run the file-watching daemon.

The daemon watches the local content directory for article edits,
mirrors each settled change, and queues the matching remote push for
the next 'blogsync sync --direction to-remote' run.

Runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		app := mustLoadApp(ctx)
		defer app.Close()

		cfg := daemon.DefaultConfig()
		cfg.DebounceInterval = app.cfg.Daemon.DebounceInterval
		cfg.Logger = app.sink.Logger("daemon")

		d, err := daemon.NewWithConfig(app.local.Root(), app.orch, app.store, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Watching %s\n", ui.RenderPass("✓"), app.local.Root())
		fmt.Printf("   Press Ctrl+C to stop\n")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
