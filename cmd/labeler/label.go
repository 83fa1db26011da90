package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/labels"
	"github.com/steveyegge/labeler/internal/taxonomy"
)

var labelCmd = &cobra.Command{
	Use:   "label [completion text]",
	Short: "Extract labels from a raw completion without calling the endpoint",
	Long: "Run the offline extraction stages (locate the response section, extract\n" +
		"backtick-quoted candidates, normalize them against the taxonomy) on completion\n" +
		"text given as arguments or on stdin. Text without a response section has no labels.\n\n" +
		"Examples:\n" +
		"  labeler label '### Response: `bug, C-cli`'\n" +
		"  curl -s $llm_endpoint ... | jq -r .generated_text | labeler label\n" +
		"  labeler label --raw '### Response: `Bug, C-cli`'   # candidates as written\n" +
		"  labeler label --no-marker < answer.txt              # input is the answer itself",
	Run: func(cmd *cobra.Command, args []string) {
		var opts labelOptions
		opts.raw, _ = cmd.Flags().GetBool("raw")
		opts.noMarker, _ = cmd.Flags().GetBool("no-marker")
		asJSON, _ := cmd.Flags().GetBool("json")

		var in io.Reader = os.Stdin
		if len(args) > 0 {
			in = strings.NewReader(strings.Join(args, " "))
		}

		found, missing, err := tolerateMissingSection(labelText(in, tax, opts))
		if missing {
			fmt.Fprintf(os.Stderr, "no %q section in input, no labels\n", labels.ResponseMarker)
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

type labelOptions struct {
	raw      bool // candidates as written, no taxonomy normalization
	noMarker bool // the whole input is the answer section
}

// labelText reads completion text from in and returns its label set.
// A missing response section yields an empty set together with
// labels.ErrSectionNotFound, which callers treat as "no labels".
func labelText(in io.Reader, t *taxonomy.Taxonomy, opts labelOptions) ([]string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	answer := string(data)
	if !opts.noMarker {
		if answer, err = labels.LocateAnswer(answer); err != nil {
			return []string{}, err
		}
	}

	candidates := labels.ExtractCandidates(answer)
	if opts.raw {
		return candidates, nil
	}
	return labels.Normalize(candidates, t), nil
}

// tolerateMissingSection turns labels.ErrSectionNotFound into an empty label set
func tolerateMissingSection(found []string, err error) ([]string, bool, error) {
	if errors.Is(err, labels.ErrSectionNotFound) {
		return []string{}, true, nil
	}
	return found, false, err
}

func writeLabels(w io.Writer, found []string, t *taxonomy.Taxonomy, asJSON bool) error {
	if asJSON {
		return writeJSON(w, found)
	}
	_, err := fmt.Fprintln(w, formatLabels(found, t))
	return err
}

func init() {
	labelCmd.Flags().Bool("raw", false, "Print the extracted candidates without taxonomy normalization")
	labelCmd.Flags().Bool("no-marker", false, "Treat the whole input as the answer section")
	labelCmd.Flags().Bool("json", false, "Print the label set as a JSON array")
	rootCmd.AddCommand(labelCmd)
}
