package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/labeler/internal/config"
	"github.com/steveyegge/labeler/internal/labels"
	"github.com/steveyegge/labeler/internal/storage"
	"github.com/steveyegge/labeler/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeTracker struct {
	issues    []tracker.Issue
	listErr   error
	reportErr error
	reports   []fakeReport
}

type fakeReport struct {
	repo   tracker.Repo
	title  string
	body   string
	labels []string
}

func (f *fakeTracker) ListOpenIssues(_ context.Context, _ tracker.Repo, _ int) ([]tracker.Issue, error) {
	return f.issues, f.listErr
}

func (f *fakeTracker) CreateReport(_ context.Context, repo tracker.Repo, title, body string, labels []string) (*tracker.Report, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	f.reports = append(f.reports, fakeReport{repo: repo, title: title, body: body, labels: labels})
	return &tracker.Report{Number: len(f.reports), URL: "https://github.com/octo/reports/issues/1"}, nil
}

type echoSummarizer struct {
	err error
}

func (s echoSummarizer) Summarize(_ context.Context, body string) (string, error) {
	return "essence: " + body, s.err
}

// scriptedLabeler answers by matching the issue title embedded in the prompt
type scriptedLabeler struct {
	byTitle map[string][]string
	errs    map[string]error
	prompts []string
}

func (l *scriptedLabeler) Label(_ context.Context, prompt string) ([]string, error) {
	l.prompts = append(l.prompts, prompt)
	for title, err := range l.errs {
		if strings.Contains(prompt, "`"+title+"`") {
			return nil, err
		}
	}
	for title, found := range l.byTitle {
		if strings.Contains(prompt, "`"+title+"`") {
			return found, nil
		}
	}
	return []string{}, nil
}

type memHistory struct {
	records []storage.Record
	pruned  []time.Time
}

func (h *memHistory) RecordRun(_ context.Context, rec storage.Record) error {
	h.records = append(h.records, rec)
	return nil
}

func (h *memHistory) WasLabeled(_ context.Context, repo string, number int) (bool, error) {
	for _, r := range h.records {
		if r.Repo == repo && r.IssueNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (h *memHistory) Recent(_ context.Context, limit int) ([]storage.Record, error) {
	return h.records, nil
}

func (h *memHistory) Prune(_ context.Context, cutoff time.Time, _ int) (int, error) {
	h.pruned = append(h.pruned, cutoff)
	return 0, nil
}

func (h *memHistory) Close() error { return nil }

var (
	source  = tracker.Repo{Owner: "WasmEdge", Name: "WasmEdge"}
	reports = tracker.Repo{Owner: "octo", Name: "reports"}
)

func newTestRunner(t *testing.T, tr *fakeTracker, lab *scriptedLabeler, hist storage.History, logger *zap.Logger) *Runner {
	t.Helper()
	cfg := Config{
		SourceRepo: source,
		ReportRepo: reports,
		PerPage:    10,
		Retention:  config.DefaultHistoryRetentionConfig(),
		Tracker:    tr,
		Summarizer: echoSummarizer{},
		Labeler:    lab,
		Logger:     logger,
		Now:        func() time.Time { return time.Date(2024, 5, 1, 2, 2, 0, 0, time.UTC) },
	}
	if hist != nil {
		cfg.History = hist
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func TestRunOnce_StopsAtFirstLabeledIssue(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{
		{Number: 10, Title: "Feature PR", IsPullRequest: true},
		{Number: 9, Title: "Vague question", Body: "hmm", Creator: "carol"},
		{Number: 8, Title: "Crash in CLI", Body: "segfault", Creator: "alice", URL: "https://github.com/WasmEdge/WasmEdge/issues/8"},
		{Number: 7, Title: "Docs typo", Body: "typo", Creator: "bob"},
	}}
	lab := &scriptedLabeler{byTitle: map[string][]string{
		"Crash in CLI": {"bug", "c-CLI"},
		"Docs typo":    {"documentation"},
	}}
	hist := &memHistory{}

	result, err := newTestRunner(t, tr, lab, hist, nil).RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Examined)
	require.NotNil(t, result.Labeled)
	assert.Equal(t, 8, result.Labeled.Issue.Number)
	assert.Equal(t, []string{"bug", "c-CLI"}, result.Labeled.Labels)
	require.NotNil(t, result.Labeled.Report)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, Skip{Number: 10, Reason: SkipPullRequest}, result.Skipped[0])
	assert.Equal(t, Skip{Number: 9, Reason: SkipNoLabels}, result.Skipped[1])

	// Issue 7 never reached the labeler
	assert.Len(t, lab.prompts, 2)

	require.Len(t, tr.reports, 1)
	assert.Equal(t, reports, tr.reports[0].repo)
	assert.Equal(t, "Crash in CLI", tr.reports[0].title)
	assert.Equal(t, []string{"bug", "c-CLI"}, tr.reports[0].labels)
	assert.Contains(t, tr.reports[0].body, "https://github.com/WasmEdge/WasmEdge/issues/8")

	require.Len(t, hist.records, 1)
	assert.Equal(t, result.RunID, hist.records[0].RunID)
	assert.Equal(t, "WasmEdge/WasmEdge", hist.records[0].Repo)
	assert.Equal(t, 8, hist.records[0].IssueNumber)
	assert.Len(t, hist.pruned, 1)
}

func TestRunOnce_PromptCarriesIssueFields(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{{Number: 1, Title: "Crash in CLI", Body: "segfault on start", Creator: "alice"}}}
	lab := &scriptedLabeler{byTitle: map[string][]string{"Crash in CLI": {"bug"}}}

	_, err := newTestRunner(t, tr, lab, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, lab.prompts, 1)
	p := lab.prompts[0]
	assert.Contains(t, p, "Can you assign labels to the GitHub issue titled `Crash in CLI` created by `alice`, stating `essence: segfault on start`?")
	assert.True(t, strings.HasSuffix(p, labels.ResponseMarker))
}

func TestRunOnce_SkipsAlreadyLabeled(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{
		{Number: 2, Title: "Crash in CLI"},
		{Number: 1, Title: "Docs typo"},
	}}
	lab := &scriptedLabeler{byTitle: map[string][]string{
		"Crash in CLI": {"bug"},
		"Docs typo":    {"documentation"},
	}}
	hist := &memHistory{records: []storage.Record{{Repo: "WasmEdge/WasmEdge", IssueNumber: 2}}}

	result, err := newTestRunner(t, tr, lab, hist, nil).RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Labeled)
	assert.Equal(t, 1, result.Labeled.Issue.Number)
	assert.Equal(t, []Skip{{Number: 2, Reason: SkipAlreadyDone}}, result.Skipped)
}

func TestRunOnce_FailuresAreSkippedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	completionErr := errors.New("completion failed after 2 attempts")
	tr := &fakeTracker{issues: []tracker.Issue{
		{Number: 3, Title: "Endpoint down"},
		{Number: 2, Title: "No section"},
		{Number: 1, Title: "Crash in CLI"},
	}}
	lab := &scriptedLabeler{
		byTitle: map[string][]string{"Crash in CLI": {"bug"}},
		errs: map[string]error{
			"Endpoint down": completionErr,
			"No section":    labels.ErrSectionNotFound,
		},
	}

	result, err := newTestRunner(t, tr, lab, nil, zap.New(core)).RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Labeled)
	assert.Equal(t, 1, result.Labeled.Issue.Number)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, SkipLabelFailed, result.Skipped[0].Reason)
	assert.ErrorIs(t, result.Skipped[0].Err, completionErr)
	assert.Equal(t, SkipNoLabels, result.Skipped[1].Reason)
	assert.ErrorIs(t, result.Skipped[1].Err, labels.ErrSectionNotFound)

	assert.Equal(t, 1, logs.FilterMessage("failed to label issue").Len())
	assert.Equal(t, 1, logs.FilterMessage("labeling pass finished").Len())
}

func TestRunOnce_ReportFailureMovesOn(t *testing.T) {
	tr := &fakeTracker{
		issues:    []tracker.Issue{{Number: 2, Title: "Crash in CLI"}, {Number: 1, Title: "Docs typo"}},
		reportErr: errors.New("403 Forbidden"),
	}
	lab := &scriptedLabeler{byTitle: map[string][]string{"Crash in CLI": {"bug"}, "Docs typo": {"documentation"}}}
	hist := &memHistory{}

	result, err := newTestRunner(t, tr, lab, hist, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Labeled)
	assert.Equal(t, 2, result.Examined)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, SkipReportFailed, result.Skipped[0].Reason)
	assert.Empty(t, hist.records)
}

func TestRunOnce_SummaryFailure(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{{Number: 1, Title: "Crash in CLI"}}}
	lab := &scriptedLabeler{byTitle: map[string][]string{"Crash in CLI": {"bug"}}}
	r := newTestRunner(t, tr, lab, nil, nil)
	r.cfg.Summarizer = echoSummarizer{err: errors.New("overloaded")}

	result, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result.Labeled)
	assert.Equal(t, []string{SkipSummaryFailed}, []string{result.Skipped[0].Reason})
	assert.Empty(t, lab.prompts)
}

func TestRunOnce_DryRun(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{{Number: 1, Title: "Crash in CLI"}}}
	lab := &scriptedLabeler{byTitle: map[string][]string{"Crash in CLI": {"bug"}}}
	hist := &memHistory{}
	r := newTestRunner(t, tr, lab, hist, nil)
	r.cfg.ReportRepo = tracker.Repo{}
	require.True(t, r.DryRun())

	result, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Labeled)
	assert.Nil(t, result.Labeled.Report)
	assert.Empty(t, tr.reports)
	assert.Empty(t, hist.records)
}

func TestRunOnce_ListFailure(t *testing.T) {
	tr := &fakeTracker{listErr: errors.New("rate limited")}
	_, err := newTestRunner(t, tr, &scriptedLabeler{}, nil, nil).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRunOnce_CanceledContext(t *testing.T) {
	tr := &fakeTracker{issues: []tracker.Issue{{Number: 1, Title: "Crash in CLI"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestRunner(t, tr, &scriptedLabeler{}, nil, nil).RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Examined)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Tracker: &fakeTracker{}, Summarizer: echoSummarizer{}, Labeler: &scriptedLabeler{}})
	assert.Error(t, err, "source repository is required")
}
