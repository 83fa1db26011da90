package storage

import (
	"context"
	"time"
)

// Record is one labeled issue and the report that carried its labels
type Record struct {
	ID          string
	RunID       string
	Repo        string // owner/name of the source repository
	IssueNumber int
	IssueTitle  string
	IssueURL    string
	Labels      []string
	ReportURL   string
	LabeledAt   time.Time
}

// History defines the interface for labeling history backends
type History interface {
	// RecordRun stores a labeled issue. Recording the same repo and issue
	// number again replaces the earlier record.
	RecordRun(ctx context.Context, rec Record) error

	// WasLabeled reports whether an issue already has a record
	WasLabeled(ctx context.Context, repo string, number int) (bool, error)

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Prune deletes records labeled before cutoff, then the oldest records
	// beyond maxRecords (0 = no cap). It returns the number deleted.
	Prune(ctx context.Context, cutoff time.Time, maxRecords int) (int, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".labeler/history.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".labeler/history.db",
	}
}
