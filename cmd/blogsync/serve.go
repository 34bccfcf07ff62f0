package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/dashboard"
	"github.com/kaiwen/blogsync/internal/ui"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Serve the sync API and dashboard WebSocket",
	Long: `Start the HTTP server exposing:

  GET  /api/sync/status   current sync status and queue size
  POST /api/sync          trigger a sync run (409 while one is active)
  GET  /ws                WebSocket stream of sync events
  GET  /health            liveness check

Runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		port := servePort
		if port == 0 {
			port = app.cfg.DashboardPort
		}

		server := dashboard.NewServer(app.orch, &dashboard.Config{
			Port:   port,
			Logger: app.sink.Logger("dashboard"),
		})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Dashboard listening on %s\n", ui.RenderPass("✓"), server.GetAddr())
		fmt.Printf("   Press Ctrl+C to stop\n")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
