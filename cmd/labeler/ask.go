package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/ai"
	"github.com/steveyegge/labeler/internal/labels"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Label one ad hoc issue through the completion endpoint",
	Long: `Build the labeling prompt for an issue described on the command line,
send it to the completion endpoint, and print the resulting label set.
Nothing is filed and nothing is recorded.

Examples:
  labeler ask --title "wasmedge crashes" --creator alice --essence "segfault when running wasi-nn on macOS"
  labeler ask --title "docs: typo" --prompt      # print the prompt only`,
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		creator, _ := cmd.Flags().GetString("creator")
		essence, _ := cmd.Flags().GetString("essence")
		promptOnly, _ := cmd.Flags().GetBool("prompt")
		asJSON, _ := cmd.Flags().GetBool("json")

		if title == "" {
			fmt.Fprintf(os.Stderr, "Error: --title is required\n")
			os.Exit(1)
		}
		if essence == "" {
			essence = title
		}

		prompt := ai.BuildPrompt(ai.BuildQuestion(title, creator, essence))
		if promptOnly {
			fmt.Println(prompt)
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		labeler, err := newLabeler()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Fprintf(os.Stderr, "%s asking %s (up to %d attempts, %v apart)\n",
			cyan("→"), cfg.Endpoint, cfg.MaxAttempts, cfg.RetryBackoff)

		found, missing, err := tolerateMissingSection(labeler.Label(ctx, prompt))
		if missing {
			fmt.Fprintf(os.Stderr, "completion has no %q section, no labels\n", labels.ResponseMarker)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := writeLabels(os.Stdout, found, tax, asJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	askCmd.Flags().String("title", "", "Issue title (required)")
	askCmd.Flags().String("creator", "user", "Issue author")
	askCmd.Flags().String("essence", "", "Condensed issue description (default: the title)")
	askCmd.Flags().Bool("prompt", false, "Print the prompt instead of sending it")
	askCmd.Flags().Bool("json", false, "Print the label set as a JSON array")
	rootCmd.AddCommand(askCmd)
}
