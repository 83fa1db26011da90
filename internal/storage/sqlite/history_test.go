package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/steveyegge/labeler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordRunAndRecent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 2, 2, 0, 0, time.UTC)

	require.NoError(t, store.RecordRun(ctx, storage.Record{
		RunID:       "run-1",
		Repo:        "WasmEdge/WasmEdge",
		IssueNumber: 41,
		IssueTitle:  "Older issue",
		Labels:      []string{"documentation"},
		LabeledAt:   base,
	}))
	require.NoError(t, store.RecordRun(ctx, storage.Record{
		RunID:       "run-2",
		Repo:        "WasmEdge/WasmEdge",
		IssueNumber: 42,
		IssueTitle:  "Crash in CLI",
		IssueURL:    "https://github.com/WasmEdge/WasmEdge/issues/42",
		Labels:      []string{"bug", "c-CLI", "segfault"},
		ReportURL:   "https://github.com/octo/reports/issues/7",
		LabeledAt:   base.Add(24 * time.Hour),
	}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	newest := records[0]
	assert.Equal(t, 42, newest.IssueNumber)
	assert.Equal(t, "run-2", newest.RunID)
	assert.NotEmpty(t, newest.ID)
	assert.Equal(t, []string{"bug", "c-CLI", "segfault"}, newest.Labels)
	assert.Equal(t, "https://github.com/octo/reports/issues/7", newest.ReportURL)
	assert.True(t, newest.LabeledAt.Equal(base.Add(24*time.Hour)))

	assert.Equal(t, 41, records[1].IssueNumber)
	assert.Equal(t, []string{"documentation"}, records[1].Labels)

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 42, limited[0].IssueNumber)

	none, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWasLabeled(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	labeled, err := store.WasLabeled(ctx, "WasmEdge/WasmEdge", 42)
	require.NoError(t, err)
	assert.False(t, labeled)

	require.NoError(t, store.RecordRun(ctx, storage.Record{Repo: "WasmEdge/WasmEdge", IssueNumber: 42, Labels: []string{"bug"}}))

	labeled, err = store.WasLabeled(ctx, "WasmEdge/WasmEdge", 42)
	require.NoError(t, err)
	assert.True(t, labeled)

	labeled, err = store.WasLabeled(ctx, "other/repo", 42)
	require.NoError(t, err)
	assert.False(t, labeled)
}

func TestRecordRunReplacesExisting(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, storage.Record{Repo: "a/b", IssueNumber: 1, Labels: []string{"bug", "c-CLI"}}))
	require.NoError(t, store.RecordRun(ctx, storage.Record{Repo: "a/b", IssueNumber: 1, Labels: []string{"documentation"}}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"documentation"}, records[0].Labels)

	var orphans int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM record_labels WHERE record_id NOT IN (SELECT id FROM records)`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestRecordRunRejectsIncompleteRecord(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, store.RecordRun(ctx, storage.Record{IssueNumber: 1}))
	assert.Error(t, store.RecordRun(ctx, storage.Record{Repo: "a/b"}))
}

func TestPrune(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.RecordRun(ctx, storage.Record{
			Repo:        "a/b",
			IssueNumber: i,
			Labels:      []string{"bug"},
			LabeledAt:   now.Add(-time.Duration(6-i) * 24 * time.Hour),
		}))
	}

	// Issue 1 is 5 days old, issue 2 is 4 days old
	deleted, err := store.Prune(ctx, now.Add(-72*time.Hour-time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = store.Prune(ctx, now.Add(-365*24*time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 5, records[0].IssueNumber)
	assert.Equal(t, 4, records[1].IssueNumber)

	var labelRows int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM record_labels`).Scan(&labelRows))
	assert.Equal(t, 2, labelRows)

	_, err = store.Prune(ctx, now, -1)
	assert.Error(t, err)
}

func TestNewOnDiskPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(ctx, &storage.Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(ctx, storage.Record{Repo: "a/b", IssueNumber: 9, Labels: []string{"bug"}}))
	require.NoError(t, store.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	labeled, err := reopened.WasLabeled(ctx, "a/b", 9)
	require.NoError(t, err)
	assert.True(t, labeled)
}
