// Package tracker reads issues from and files label reports to GitHub.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Repo names a repository as owner/name
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses "owner/name"
func ParseRepo(s string) (Repo, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("invalid repository %q: want owner/name", s)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Issue is the subset of a tracker issue the labeler needs
type Issue struct {
	Number        int
	Title         string
	Body          string
	Creator       string
	URL           string
	Labels        []string
	CreatedAt     time.Time
	IsPullRequest bool
}

// Report is an issue created to carry the labels assigned to another issue
type Report struct {
	Number int
	URL    string
}

// Tracker is the issue source and report sink used by the runner
type Tracker interface {
	ListOpenIssues(ctx context.Context, repo Repo, perPage int) ([]Issue, error)
	CreateReport(ctx context.Context, repo Repo, title, body string, labels []string) (*Report, error)
}
