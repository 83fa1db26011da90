package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/steveyegge/labeler/internal/runner"
	"github.com/steveyegge/labeler/internal/taxonomy"
)

// formatLabels renders a label set, canonical labels in green
func formatLabels(found []string, t *taxonomy.Taxonomy) string {
	if len(found) == 0 {
		return color.New(color.FgYellow).Sprint("(no labels)")
	}
	green := color.New(color.FgGreen).SprintFunc()
	parts := make([]string, len(found))
	for i, label := range found {
		if t.Contains(label) {
			parts[i] = green(label)
		} else {
			parts[i] = label
		}
	}
	return strings.Join(parts, ", ")
}

// printResult summarizes a labeling pass
func printResult(w io.Writer, result *runner.Result, t *taxonomy.Taxonomy) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "Run %s: examined %d issue(s)\n", gray(result.RunID), result.Examined)
	for _, skip := range result.Skipped {
		line := fmt.Sprintf("  %s #%d %s", yellow("-"), skip.Number, skip.Reason)
		if skip.Err != nil {
			line += gray(": " + skip.Err.Error())
		}
		fmt.Fprintln(w, line)
	}

	if result.Labeled == nil {
		fmt.Fprintf(w, "%s No issue received labels\n", yellow("!"))
		return
	}
	o := result.Labeled
	fmt.Fprintf(w, "%s #%d %s\n", green("✓"), o.Issue.Number, o.Issue.Title)
	fmt.Fprintf(w, "  labels: %s\n", formatLabels(o.Labels, t))
	if o.Report != nil {
		fmt.Fprintf(w, "  report: %s\n", o.Report.URL)
	} else {
		fmt.Fprintf(w, "  report: %s\n", gray("not filed (no report repository configured)"))
	}
	if result.Pruned > 0 {
		fmt.Fprintf(w, "  pruned %d old history record(s)\n", result.Pruned)
	}
}
