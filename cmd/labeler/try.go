package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/repl"
	"github.com/steveyegge/labeler/internal/storage"
)

var tryCmd = &cobra.Command{
	Use:   "try",
	Short: "Start an interactive labeling shell",
	Long: `Start an interactive shell. Each line you type is labeled as if it were
an issue description; 'parse' extracts labels from pasted completion text
without calling the endpoint.

Type 'help' in the shell for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		labeler, err := newLabeler()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// History is optional here
		var history storage.History
		if store, err := openHistory(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history unavailable: %v\n", err)
		} else {
			defer func() { _ = store.Close() }()
			history = store
		}

		creator, _ := cmd.Flags().GetString("creator")
		r, err := repl.New(&repl.Config{
			Labeler:  labeler,
			Taxonomy: tax,
			History:  history,
			Actor:    creator,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create shell: %v\n", err)
			os.Exit(1)
		}

		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	tryCmd.Flags().String("creator", "user", "Issue author named in questions")
	rootCmd.AddCommand(tryCmd)
}
