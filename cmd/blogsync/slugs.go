package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaiwen/blogsync/internal/slug"
	"github.com/kaiwen/blogsync/internal/syncer"
	"github.com/kaiwen/blogsync/internal/ui"
)

var slugsCmd = &cobra.Command{
	Use:     "slugs",
	GroupID: "maint",
	Short:   "Analyze and repair article slugs",
}

var slugsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report slugs that need regeneration",
	Long: `Scan every article slug and report the unhealthy ones:

  - slugs still carrying non-Latin characters
  - slugs with machine-generated suffixes from earlier imports`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		h := &slug.Hygiene{Store: app.store, Resolver: &slug.Resolver{}, Logger: app.sink.Logger("slugs")}
		analysis, err := h.Analyze(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Scanned %d slug(s): %d clean\n", ui.RenderAccent("●"), analysis.Total, analysis.Clean)
		printFlagged("Non-Latin characters", analysis.NonLatin)
		printFlagged("Machine-generated suffix", analysis.ForeignSuffix)

		if len(analysis.NonLatin)+len(analysis.ForeignSuffix) == 0 {
			fmt.Printf("%s Nothing to fix\n\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("\nRun 'blogsync slugs fix' to regenerate the flagged slugs\n\n")
		}
	},
}

func printFlagged(label string, flagged []slug.Flagged) {
	if len(flagged) == 0 {
		return
	}
	fmt.Printf("\n%s %s (%d):\n", ui.RenderWarn("⚠"), label, len(flagged))
	for _, f := range flagged {
		fmt.Printf("   %s %s\n", f.Slug, ui.RenderDim(f.Title))
	}
}

var slugsFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Regenerate flagged slugs",
	Long: `Regenerate every flagged slug from its article title. The old slug
stays resolvable as a non-primary alias, so published links keep
working. The whole pass runs in one transaction and is rolled back if
any slug fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := mustLoadApp(ctx)
		defer app.Close()

		h := &slug.Hygiene{Store: app.store, Resolver: &slug.Resolver{}, Logger: app.sink.Logger("slugs")}

		var result *slug.FixResult
		err := app.orch.Maintenance(func() error {
			var fixErr error
			result, fixErr = h.Fix(ctx)
			return fixErr
		})
		if errors.Is(err, syncer.ErrSyncInProgress) {
			fmt.Fprintf(os.Stderr, "%s A sync is running; try again when it finishes\n", ui.RenderWarn("⚠"))
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Fixed %d of %d flagged slug(s)\n", ui.RenderPass("✓"), result.Fixed, result.Processed)
	},
}

func init() {
	slugsCmd.AddCommand(slugsAnalyzeCmd)
	slugsCmd.AddCommand(slugsFixCmd)
	rootCmd.AddCommand(slugsCmd)
}
