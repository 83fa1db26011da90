// Package sqlite stores labeling history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/steveyegge/labeler/internal/storage"
	"github.com/steveyegge/labeler/internal/storage/migrations"
)

const memoryPath = ":memory:"

// Store implements storage.History using SQLite
type Store struct {
	db *sql.DB
}

var _ storage.History = (*Store)(nil)

// New opens (creating if needed) the history database at path and applies
// pending schema migrations. The special path ":memory:" keeps everything in memory.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := memoryPath
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.NewManager(schemaMigrations...).Apply(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Open creates a store from a storage.Config
func Open(ctx context.Context, cfg *storage.Config) (*Store, error) {
	if cfg == nil {
		cfg = storage.DefaultConfig()
	}
	path := cfg.Path
	if path == "" {
		path = storage.DefaultConfig().Path
	}
	return New(ctx, path)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
