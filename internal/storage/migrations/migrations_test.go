package migrations

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Example migration for testing
var exampleMigration = Migration{
	Version:     1,
	Description: "Add example test table",
	Up: `
		CREATE TABLE IF NOT EXISTS test_table (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`,
	Down: `
		DROP TABLE IF EXISTS test_table
	`,
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	manager := NewManager(exampleMigration)
	if err := manager.Apply(ctx, db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	version, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}

	if _, err := db.Exec("INSERT INTO test_table (id, name) VALUES (1, 'test')"); err != nil {
		t.Fatalf("test table not created: %v", err)
	}

	// Applying again is a no-op
	if err := manager.Apply(ctx, db); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	if err := manager.Rollback(ctx, db); err != nil {
		t.Fatalf("failed to rollback migration: %v", err)
	}

	var v int
	err = db.QueryRow("SELECT version FROM schema_version WHERE version = 1").Scan(&v)
	if err != sql.ErrNoRows {
		t.Errorf("expected version record to be removed, got err=%v", err)
	}

	if _, err := db.Exec("INSERT INTO test_table (id, name) VALUES (1, 'test')"); err == nil {
		t.Error("test table should have been dropped")
	}

	if err := manager.Rollback(ctx, db); err == nil {
		t.Error("expected error rolling back with nothing applied")
	}
}

func TestApplyFailureLeavesVersion(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	manager := NewManager(exampleMigration, Migration{Version: 2, Description: "broken", Up: "CREATE TABLEX nope"})
	if err := manager.Apply(ctx, db); err == nil {
		t.Fatal("expected broken migration to fail")
	}

	version, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("failed to read version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after failed migration 2, got %d", version)
	}
}

func TestMigrationOrdering(t *testing.T) {
	manager := NewManager()

	// Register migrations out of order
	manager.Register(Migration{Version: 3, Description: "Third"})
	manager.Register(Migration{Version: 1, Description: "First"})
	manager.Register(Migration{Version: 2, Description: "Second"})

	manager.sortMigrations()

	if len(manager.migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(manager.migrations))
	}
	for i, want := range []int{1, 2, 3} {
		if manager.migrations[i].Version != want {
			t.Errorf("migration %d: expected version %d, got %d", i, want, manager.migrations[i].Version)
		}
	}
}
