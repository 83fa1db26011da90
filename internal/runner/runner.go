// Package runner drives one labeling pass over a repository's newest open
// issues. A pass stops at the first issue that receives labels.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/labeler/internal/ai"
	"github.com/steveyegge/labeler/internal/config"
	"github.com/steveyegge/labeler/internal/labels"
	"github.com/steveyegge/labeler/internal/storage"
	"github.com/steveyegge/labeler/internal/tracker"
	"go.uber.org/zap"
)

// Skip reasons
const (
	SkipPullRequest   = "pull request"
	SkipAlreadyDone   = "already labeled"
	SkipSummaryFailed = "summary failed"
	SkipLabelFailed   = "labeling failed"
	SkipNoLabels      = "no labels"
	SkipReportFailed  = "report failed"
)

// Labeler produces a label set for a prompt
type Labeler interface {
	Label(ctx context.Context, prompt string) ([]string, error)
}

// Config holds runner configuration
type Config struct {
	SourceRepo tracker.Repo
	ReportRepo tracker.Repo // zero value: dry run, labels are logged only
	PerPage    int
	Retention  config.HistoryRetentionConfig

	Tracker    tracker.Tracker
	Summarizer ai.Summarizer
	Labeler    Labeler
	History    storage.History // optional

	Logger *zap.Logger
	Now    func() time.Time // optional clock override
}

// Runner executes labeling passes
type Runner struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// Skip records why an issue was passed over
type Skip struct {
	Number int
	Reason string
	Err    error
}

// Outcome describes the issue a pass labeled
type Outcome struct {
	Issue  tracker.Issue
	Labels []string
	Report *tracker.Report // nil on a dry run
}

// Result summarizes one pass
type Result struct {
	RunID    string
	Examined int
	Labeled  *Outcome // nil when no issue received labels
	Skipped  []Skip
	Pruned   int
}

// New creates a runner
func New(cfg Config) (*Runner, error) {
	if cfg.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.Labeler == nil {
		return nil, fmt.Errorf("labeler is required")
	}
	if cfg.SourceRepo.Owner == "" || cfg.SourceRepo.Name == "" {
		return nil, fmt.Errorf("source repository is required")
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 10
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{cfg: cfg, logger: logger.Named("runner"), now: now}, nil
}

// DryRun reports whether the runner only logs labels instead of filing reports
func (r *Runner) DryRun() bool {
	return r.cfg.ReportRepo.Owner == ""
}

// RunOnce lists the newest open issues and labels the first one it can.
// Failures on individual issues are logged and skipped; only failing to list
// issues or a canceled context aborts the pass.
func (r *Runner) RunOnce(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := r.logger.With(zap.String("run_id", result.RunID), zap.Stringer("repo", r.cfg.SourceRepo))

	issues, err := r.cfg.Tracker.ListOpenIssues(ctx, r.cfg.SourceRepo, r.cfg.PerPage)
	if err != nil {
		return result, fmt.Errorf("failed to list open issues: %w", err)
	}
	logger.Info("labeling pass started", zap.Int("issues", len(issues)), zap.Bool("dry_run", r.DryRun()))

	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("labeling pass interrupted: %w", err)
		}
		result.Examined++

		outcome, skip := r.labelIssue(ctx, result.RunID, issue, logger)
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			if skip.Err != nil && errors.Is(skip.Err, context.Canceled) {
				return result, fmt.Errorf("labeling pass interrupted: %w", skip.Err)
			}
			continue
		}

		result.Labeled = outcome
		break
	}

	result.Pruned = r.prune(ctx, logger)

	if result.Labeled == nil {
		logger.Info("labeling pass finished without labels",
			zap.Int("examined", result.Examined),
			zap.Int("skipped", len(result.Skipped)))
	} else {
		logger.Info("labeling pass finished",
			zap.Int("examined", result.Examined),
			zap.Int("issue", result.Labeled.Issue.Number),
			zap.Strings("labels", result.Labeled.Labels))
	}
	return result, nil
}

func (r *Runner) labelIssue(ctx context.Context, runID string, issue tracker.Issue, logger *zap.Logger) (*Outcome, *Skip) {
	logger = logger.With(zap.Int("issue", issue.Number))

	if issue.IsPullRequest {
		logger.Debug("skipping pull request")
		return nil, &Skip{Number: issue.Number, Reason: SkipPullRequest}
	}

	if r.cfg.History != nil {
		done, err := r.cfg.History.WasLabeled(ctx, r.cfg.SourceRepo.String(), issue.Number)
		if err != nil {
			// History is advisory; label anyway
			logger.Warn("failed to check labeling history", zap.Error(err))
		} else if done {
			logger.Debug("skipping already labeled issue")
			return nil, &Skip{Number: issue.Number, Reason: SkipAlreadyDone}
		}
	}

	essence, err := r.cfg.Summarizer.Summarize(ctx, issue.Body)
	if err != nil {
		logger.Warn("failed to summarize issue", zap.Error(err))
		return nil, &Skip{Number: issue.Number, Reason: SkipSummaryFailed, Err: err}
	}

	prompt := ai.BuildPrompt(ai.BuildQuestion(issue.Title, issue.Creator, essence))
	found, err := r.cfg.Labeler.Label(ctx, prompt)
	if err != nil {
		if errors.Is(err, labels.ErrSectionNotFound) {
			logger.Info("no labels produced", zap.Error(err))
			return nil, &Skip{Number: issue.Number, Reason: SkipNoLabels, Err: err}
		}
		logger.Warn("failed to label issue", zap.Error(err))
		return nil, &Skip{Number: issue.Number, Reason: SkipLabelFailed, Err: err}
	}
	if len(found) == 0 {
		logger.Info("no labels produced")
		return nil, &Skip{Number: issue.Number, Reason: SkipNoLabels}
	}

	outcome := &Outcome{Issue: issue, Labels: found}
	if r.DryRun() {
		logger.Info("dry run, not filing report", zap.Strings("labels", found))
		return outcome, nil
	}

	report, err := r.cfg.Tracker.CreateReport(ctx, r.cfg.ReportRepo, issue.Title, reportBody(issue, found), found)
	if err != nil {
		logger.Warn("failed to file report", zap.Error(err))
		return nil, &Skip{Number: issue.Number, Reason: SkipReportFailed, Err: err}
	}
	outcome.Report = report

	if r.cfg.History != nil {
		rec := storage.Record{
			RunID:       runID,
			Repo:        r.cfg.SourceRepo.String(),
			IssueNumber: issue.Number,
			IssueTitle:  issue.Title,
			IssueURL:    issue.URL,
			Labels:      found,
			ReportURL:   report.URL,
			LabeledAt:   r.now(),
		}
		if err := r.cfg.History.RecordRun(ctx, rec); err != nil {
			// Report is already filed; the issue may be labeled again next run
			logger.Error("failed to record labeling history", zap.Error(err))
		}
	}
	return outcome, nil
}

func (r *Runner) prune(ctx context.Context, logger *zap.Logger) int {
	if r.cfg.History == nil || !r.cfg.Retention.Enabled {
		return 0
	}
	cutoff := r.now().Add(-r.cfg.Retention.MaxAge())
	deleted, err := r.cfg.History.Prune(ctx, cutoff, r.cfg.Retention.MaxRecords)
	if err != nil {
		logger.Warn("failed to prune labeling history", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		logger.Info("pruned labeling history", zap.Int("deleted", deleted))
	}
	return deleted
}

// reportBody links the report back to the labeled issue
func reportBody(issue tracker.Issue, found []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Labels suggested for %s (#%d) by @%s.\n\n", issue.URL, issue.Number, issue.Creator)
	for _, l := range found {
		fmt.Fprintf(&b, "- `%s`\n", l)
	}
	return b.String()
}
