package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently labeled issues",
	Long: `Show the issues labeled by earlier passes, newest first.

Examples:
  labeler history
  labeler history -n 50
  labeler history --json`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		store, err := openHistory(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()

		records, err := store.Recent(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching history: %v\n", err)
			os.Exit(1)
		}

		if asJSON {
			if err := writeJSON(os.Stdout, records); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
		printHistory(os.Stdout, records)
	},
}

func printHistory(w io.Writer, records []storage.Record) {
	if len(records) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(w, "\n%s No labeled issues yet\n\n", yellow("✨"))
		return
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Fprintf(w, "\n%s Labeled issues (%d):\n\n", cyan("📋"), len(records))
	for _, rec := range records {
		fmt.Fprintf(w, "  %s  %s#%d  %s\n", gray(rec.LabeledAt.Local().Format(time.DateTime)), rec.Repo, rec.IssueNumber, rec.IssueTitle)
		fmt.Fprintf(w, "      labels: %s\n", strings.Join(rec.Labels, ", "))
		if rec.ReportURL != "" {
			fmt.Fprintf(w, "      report: %s\n", rec.ReportURL)
		}
	}
	fmt.Fprintln(w)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of records to show")
	historyCmd.Flags().Bool("json", false, "Print records as JSON")
	rootCmd.AddCommand(historyCmd)
}
