// Package repl implements the interactive labeling shell behind "labeler try".
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/steveyegge/labeler/internal/storage"
	"github.com/steveyegge/labeler/internal/taxonomy"
)

// Labeler produces a label set for a prompt
type Labeler interface {
	Label(ctx context.Context, prompt string) ([]string, error)
}

// REPL represents the interactive shell
type REPL struct {
	labeler  Labeler
	taxonomy *taxonomy.Taxonomy
	history  storage.History
	out      io.Writer
	ctx      context.Context
	actor    string
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command
type CommandHandler func(args []string) error

// Config holds REPL configuration
type Config struct {
	Labeler  Labeler
	Taxonomy *taxonomy.Taxonomy
	History  storage.History // optional, enables the history command
	Actor    string          // creator named in ad hoc questions
	Out      io.Writer       // defaults to stdout
}

// errExit signals the loop to stop
var errExit = errors.New("exit")

// New creates a new REPL instance
func New(cfg *Config) (*REPL, error) {
	if cfg.Labeler == nil {
		return nil, fmt.Errorf("labeler is required")
	}
	if cfg.Taxonomy == nil {
		return nil, fmt.Errorf("taxonomy is required")
	}

	actor := cfg.Actor
	if actor == "" {
		actor = "user"
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	r := &REPL{
		labeler:  cfg.Labeler,
		taxonomy: cfg.Taxonomy,
		history:  cfg.History,
		out:      out,
		ctx:      context.Background(),
		actor:    actor,
		commands: make(map[string]CommandHandler),
	}
	r.registerCommands()
	return r, nil
}

// Run starts the REPL loop
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("labeler> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C - just show prompt again
				continue
			} else if err == io.EOF {
				// Ctrl+D - exit
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		if err := r.processInput(strings.TrimSpace(line)); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// processInput processes a single line of input
func (r *REPL) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	if handler, ok := r.commands[parts[0]]; ok {
		return handler(parts[1:])
	}

	// Anything else is an issue description
	return r.labelDescription(line)
}

// registerCommands registers all built-in commands
func (r *REPL) registerCommands() {
	r.commands["help"] = r.cmdHelp
	r.commands["?"] = r.cmdHelp
	r.commands["exit"] = r.cmdExit
	r.commands["quit"] = r.cmdExit
	r.commands["taxonomy"] = r.cmdTaxonomy
	r.commands["parse"] = r.cmdParse
	r.commands["history"] = r.cmdHistory
}

// printWelcome prints the welcome message
func (r *REPL) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s\n", cyan("Issue labeler"))
	fmt.Fprintln(r.out, "Describe an issue to see the labels it would get.")
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'exit' to quit")
	fmt.Fprintln(r.out)
}
