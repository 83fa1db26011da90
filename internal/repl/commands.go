package repl

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/steveyegge/labeler/internal/ai"
	"github.com/steveyegge/labeler/internal/labels"
)

// cmdHelp shows help information
func (r *REPL) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n\n", cyan("Available Commands:"))

	commands := []struct {
		name string
		desc string
	}{
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
		{"taxonomy", "List the canonical labels"},
		{"parse <text>", "Extract labels from raw completion text (no endpoint call)"},
		{"history [n]", "Show the last n labeled issues"},
	}
	for _, cmd := range commands {
		fmt.Fprintf(r.out, "  %-14s %s\n", green(cmd.name), cmd.desc)
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Any other input is labeled as an issue description, e.g.:")
	fmt.Fprintln(r.out, "  'wasmedge CLI segfaults when loading a WASI-NN plugin on macOS'")
	fmt.Fprintln(r.out)
	return nil
}

// cmdExit exits the REPL
func (r *REPL) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "\n%s Goodbye!\n", green("✓"))
	return errExit
}

func (r *REPL) cmdTaxonomy(args []string) error {
	for _, entry := range r.taxonomy.Entries() {
		fmt.Fprintf(r.out, "  %s\n", entry)
	}
	fmt.Fprintf(r.out, "%d labels\n", r.taxonomy.Len())
	return nil
}

// cmdParse runs the offline stages on text typed after the command
func (r *REPL) cmdParse(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: parse <completion text>")
	}
	raw := strings.Join(args, " ")
	if !strings.Contains(raw, labels.ResponseMarker) {
		raw = labels.ResponseMarker + " " + raw
	}
	found, err := labels.Parse(raw, r.taxonomy)
	if err != nil {
		return err
	}
	r.printLabels(found)
	return nil
}

func (r *REPL) cmdHistory(args []string) error {
	if r.history == nil {
		return fmt.Errorf("no history database configured")
	}
	limit := 10
	if len(args) > 0 {
		if _, err := fmt.Sscanf(args[0], "%d", &limit); err != nil || limit < 1 {
			return fmt.Errorf("invalid count %q", args[0])
		}
	}

	records, err := r.history.Recent(r.ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(r.out, "No labeled issues yet")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(r.out, "  %s#%d  %s  [%s]\n", rec.Repo, rec.IssueNumber, rec.IssueTitle, strings.Join(rec.Labels, ", "))
	}
	return nil
}

// labelDescription asks the endpoint to label line as if it were an issue
func (r *REPL) labelDescription(line string) error {
	prompt := ai.BuildPrompt(ai.BuildQuestion(line, r.actor, line))
	found, err := r.labeler.Label(r.ctx, prompt)
	if err != nil {
		return err
	}
	r.printLabels(found)
	return nil
}

func (r *REPL) printLabels(found []string) {
	if len(found) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Fprintf(r.out, "%s no labels\n", yellow("∅"))
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	parts := make([]string, len(found))
	for i, label := range found {
		if canonical, ok := r.taxonomy.Lookup(label); ok && canonical == label {
			parts[i] = green(label)
		} else {
			parts[i] = gray(label)
		}
	}
	fmt.Fprintln(r.out, strings.Join(parts, ", "))
}
