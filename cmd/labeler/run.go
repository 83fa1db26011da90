package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Label the newest open issue that gets labels",
	Long: `Run one labeling pass.

Lists the newest open issues of the source repository, skips pull requests
and issues already in the history database, and labels issues one by one
until one receives labels. A report issue carrying those labels is then
filed in the report repository (when configured) and the pass ends.

Examples:
  labeler run
  LABELER_REPORT_REPO=me/label-reports labeler run
  labeler run --db /var/lib/labeler/history.db`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, history, err := newRunner(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = history.Close() }()

		result, err := r.RunOnce(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printResult(os.Stdout, result, tax)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
