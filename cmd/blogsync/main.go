// Command blogsync keeps a blog's article files and its relational
// mirror in step: it pulls articles from the content repository,
// pushes queued edits back, and runs slug and duplicate maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "blogsync",
	Short: "Blog content synchronization and deduplication",
	Long: `blogsync mirrors a blog's article repository into a SQLite/Turso
database and keeps both sides in step.

The file repository is the source of truth. blogsync pulls articles
into the mirror (resolving URL-safe slugs, transliterating CJK
titles), pushes queued local edits back out, and runs maintenance
passes that merge near-duplicate posts and repair machine-generated
slugs.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default blogsync.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "maint", Title: "Maintenance Commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced Commands:"},
	)
}
