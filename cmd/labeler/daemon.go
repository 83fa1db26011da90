package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/steveyegge/labeler/internal/runner"
	"github.com/steveyegge/labeler/internal/storage"
	"go.uber.org/zap"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run labeling passes on a cron schedule",
	Long: `Run a labeling pass on every tick of a cron schedule until interrupted.

The schedule uses the standard five-field cron syntax and defaults to
"2 2 * * *" (02:02 every day). Passes never overlap: a tick that arrives
while a pass is still running is skipped.

Examples:
  labeler daemon
  labeler daemon --schedule "*/30 * * * *"
  labeler daemon --now          # also run one pass at startup`,
	Run: func(cmd *cobra.Command, args []string) {
		schedule, _ := cmd.Flags().GetString("schedule")
		runNow, _ := cmd.Flags().GetBool("now")
		if schedule == "" {
			schedule = cfg.Schedule
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		if err := runDaemon(schedule, runNow, sigCh); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// runDaemon holds the daemon lock and runs passes on schedule until stop fires.
// The lock is released on every return path.
func runDaemon(schedule string, runNow bool, stop <-chan os.Signal) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	lockPath, err := storage.AcquireDaemonLock(cfg.DBPath, version)
	if err != nil {
		return err
	}
	defer func() { _ = storage.ReleaseDaemonLock(lockPath) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, history, err := newRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	// One wrapped job shared by the schedule and --now so passes never overlap
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).
		Then(cron.FuncJob(func() { runPass(ctx, r) }))
	sched := cron.New()
	if _, err := sched.AddJob(schedule, job); err != nil {
		return fmt.Errorf("failed to schedule pass: %w", err)
	}

	sched.Start()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s Labeler daemon started (version %s)\n", green("✓"), cyan(version))
	fmt.Printf("  Schedule: %s\n", schedule)
	fmt.Printf("  Source: %s\n", cfg.SourceRepo)
	if r.DryRun() {
		fmt.Printf("  Reports: disabled (no report repository)\n")
	} else {
		fmt.Printf("  Reports: %s\n", cfg.ReportRepo)
	}
	fmt.Printf("  Press Ctrl+C to stop\n\n")

	if runNow {
		go job.Run()
	}

	<-stop
	fmt.Println("\nShutting down daemon...")

	// Cancel a pass stuck in its retry backoff, then wait for it to unwind
	cancel()
	stopped := sched.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(30 * time.Second):
		fmt.Fprintf(os.Stderr, "Warning: labeling pass did not stop within 30s\n")
	}

	fmt.Printf("%s Daemon stopped\n", green("✓"))
	return nil
}

func runPass(ctx context.Context, r *runner.Runner) {
	result, err := r.RunOnce(ctx)
	if err != nil {
		logger.Error("labeling pass failed", zap.Error(err))
		return
	}
	printResult(os.Stdout, result, tax)
}

func init() {
	daemonCmd.Flags().String("schedule", "", `Cron schedule (default: LABELER_SCHEDULE or "2 2 * * *")`)
	daemonCmd.Flags().Bool("now", false, "Run one pass immediately at startup")
	rootCmd.AddCommand(daemonCmd)
}
