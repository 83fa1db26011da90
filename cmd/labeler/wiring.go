package main

import (
	"context"
	"fmt"

	"github.com/steveyegge/labeler/internal/ai"
	"github.com/steveyegge/labeler/internal/config"
	"github.com/steveyegge/labeler/internal/labels"
	"github.com/steveyegge/labeler/internal/runner"
	"github.com/steveyegge/labeler/internal/storage"
	"github.com/steveyegge/labeler/internal/storage/sqlite"
	"github.com/steveyegge/labeler/internal/tracker"
)

// newLabeler wires the completion client to the extraction pipeline
func newLabeler() (*labels.Labeler, error) {
	client, err := ai.NewCompletionClient(ai.CompletionConfig{
		Endpoint:      cfg.Endpoint,
		APIKey:        cfg.APIKey,
		Retry:         cfg.RetryConfig(),
		RatePerMinute: cfg.RatePerMinute,
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	return labels.NewLabeler(client, tax, logger), nil
}

// newSummarizer prefers Anthropic and falls back to truncation without a key
func newSummarizer() (ai.Summarizer, error) {
	if cfg.AnthropicAPIKey == "" {
		logger.Info("ANTHROPIC_API_KEY not set, issue bodies will be truncated instead of summarized")
		return ai.TruncatingSummarizer{}, nil
	}
	return ai.NewAnthropicSummarizer(ai.SummarizerConfig{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.SummaryModel,
		Logger: logger,
	})
}

func openHistory(ctx context.Context) (*sqlite.Store, error) {
	return sqlite.Open(ctx, &storage.Config{Path: cfg.DBPath})
}

// newRunner assembles a runner; the caller closes the returned history
func newRunner(ctx context.Context) (*runner.Runner, storage.History, error) {
	source, err := tracker.ParseRepo(cfg.SourceRepo)
	if err != nil {
		return nil, nil, err
	}
	var report tracker.Repo
	if cfg.ReportRepo != "" {
		if report, err = tracker.ParseRepo(cfg.ReportRepo); err != nil {
			return nil, nil, err
		}
	}

	retention, err := config.HistoryRetentionConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}

	tr, err := tracker.NewGitHubTracker(ctx, tracker.GitHubConfig{Token: cfg.GitHubToken, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	summarizer, err := newSummarizer()
	if err != nil {
		return nil, nil, err
	}
	labeler, err := newLabeler()
	if err != nil {
		return nil, nil, err
	}
	history, err := openHistory(ctx)
	if err != nil {
		return nil, nil, err
	}

	r, err := runner.New(runner.Config{
		SourceRepo: source,
		ReportRepo: report,
		PerPage:    cfg.PerPage,
		Retention:  retention,
		Tracker:    tr,
		Summarizer: summarizer,
		Labeler:    labeler,
		History:    history,
		Logger:     logger,
	})
	if err != nil {
		_ = history.Close()
		return nil, nil, err
	}
	return r, history, nil
}
