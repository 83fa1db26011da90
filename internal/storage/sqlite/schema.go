package sqlite

import "github.com/steveyegge/labeler/internal/storage/migrations"

// schemaMigrations is the history schema, oldest first
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "Create labeling records",
		Up: `
			CREATE TABLE IF NOT EXISTS records (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL,
				repo TEXT NOT NULL,
				issue_number INTEGER NOT NULL,
				issue_title TEXT NOT NULL DEFAULT '',
				issue_url TEXT NOT NULL DEFAULT '',
				report_url TEXT NOT NULL DEFAULT '',
				labeled_at INTEGER NOT NULL,
				UNIQUE (repo, issue_number)
			);

			CREATE TABLE IF NOT EXISTS record_labels (
				record_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				label TEXT NOT NULL,
				PRIMARY KEY (record_id, position),
				FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
			);
		`,
		Down: `
			DROP TABLE IF EXISTS record_labels;
			DROP TABLE IF EXISTS records;
		`,
	},
	{
		Version:     2,
		Description: "Index records by label time and label name",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_records_labeled_at ON records(labeled_at);
			CREATE INDEX IF NOT EXISTS idx_record_labels_label ON record_labels(label);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_record_labels_label;
			DROP INDEX IF EXISTS idx_records_labeled_at;
		`,
	},
}
