package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// GitHubConfig holds GitHub client configuration
type GitHubConfig struct {
	Token   string // Personal access token; empty means unauthenticated (read-only, low rate limit)
	BaseURL string // API root override, e.g. an httptest server or GitHub Enterprise
	Logger  *zap.Logger
}

// GitHubTracker implements Tracker on the GitHub REST API
type GitHubTracker struct {
	client *github.Client
	logger *zap.Logger
}

var _ Tracker = (*GitHubTracker)(nil)

// NewGitHubTracker creates a GitHub-backed tracker
func NewGitHubTracker(ctx context.Context, cfg GitHubConfig) (*GitHubTracker, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(httpClient)

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubTracker{client: client, logger: logger.Named("tracker")}, nil
}

// ListOpenIssues returns the first page of open issues, newest first.
// Pull requests are included and flagged; the caller decides what to skip.
func (t *GitHubTracker) ListOpenIssues(ctx context.Context, repo Repo, perPage int) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	ghIssues, resp, err := t.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", repo, err)
	}
	if resp != nil {
		t.logger.Debug("listed issues",
			zap.Stringer("repo", repo),
			zap.Int("count", len(ghIssues)),
			zap.Int("rate_remaining", resp.Rate.Remaining))
	}

	issues := make([]Issue, 0, len(ghIssues))
	for _, gi := range ghIssues {
		issues = append(issues, convertIssue(gi))
	}
	return issues, nil
}

// CreateReport opens an issue in repo carrying all labels at once
func (t *GitHubTracker) CreateReport(ctx context.Context, repo Repo, title, body string, labels []string) (*Report, error) {
	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	}
	created, _, err := t.client.Issues.Create(ctx, repo.Owner, repo.Name, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create report issue in %s: %w", repo, err)
	}

	report := &Report{Number: created.GetNumber(), URL: created.GetHTMLURL()}
	t.logger.Info("created report issue",
		zap.Stringer("repo", repo),
		zap.Int("number", report.Number),
		zap.Strings("labels", labels))
	return report, nil
}

func convertIssue(gi *github.Issue) Issue {
	issue := Issue{
		Number:        gi.GetNumber(),
		Title:         gi.GetTitle(),
		Body:          gi.GetBody(),
		Creator:       gi.GetUser().GetLogin(),
		URL:           gi.GetHTMLURL(),
		CreatedAt:     gi.GetCreatedAt().Time,
		IsPullRequest: gi.IsPullRequest(),
	}
	for _, l := range gi.Labels {
		issue.Labels = append(issue.Labels, l.GetName())
	}
	return issue
}
