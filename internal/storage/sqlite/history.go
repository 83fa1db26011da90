package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/labeler/internal/storage"
)

// RecordRun stores rec, replacing any earlier record for the same repo and issue
func (s *Store) RecordRun(ctx context.Context, rec storage.Record) error {
	if rec.Repo == "" || rec.IssueNumber <= 0 {
		return fmt.Errorf("record needs a repo and a positive issue number (got %q #%d)", rec.Repo, rec.IssueNumber)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.LabeledAt.IsZero() {
		rec.LabeledAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM records WHERE repo = ? AND issue_number = ?`,
		rec.Repo, rec.IssueNumber).Scan(&previous)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to look up existing record: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `DELETE FROM record_labels WHERE record_id = ?`, previous); err != nil {
			return fmt.Errorf("failed to delete previous labels: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, previous); err != nil {
			return fmt.Errorf("failed to delete previous record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, run_id, repo, issue_number, issue_title, issue_url, report_url, labeled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.Repo, rec.IssueNumber, rec.IssueTitle, rec.IssueURL, rec.ReportURL,
		rec.LabeledAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	for i, label := range rec.Labels {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO record_labels (record_id, position, label)
			VALUES (?, ?, ?)
		`, rec.ID, i, label); err != nil {
			return fmt.Errorf("failed to insert label %q: %w", label, err)
		}
	}

	return tx.Commit()
}

// WasLabeled reports whether repo#number has a record
func (s *Store) WasLabeled(ctx context.Context, repo string, number int) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE repo = ? AND issue_number = ?)`,
		repo, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return exists == 1, nil
}

// Recent returns up to limit records, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]storage.Record, error) {
	if limit <= 0 {
		return []storage.Record{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, repo, issue_number, issue_title, issue_url, report_url, labeled_at
		FROM records
		ORDER BY labeled_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []storage.Record{}
	for rows.Next() {
		var rec storage.Record
		var labeledAt int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Repo, &rec.IssueNumber, &rec.IssueTitle,
			&rec.IssueURL, &rec.ReportURL, &labeledAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.LabeledAt = time.UnixMilli(labeledAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	for i := range records {
		labels, err := s.labels(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Labels = labels
	}
	return records, nil
}

func (s *Store) labels(ctx context.Context, recordID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label FROM record_labels WHERE record_id = ? ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Prune deletes records labeled before cutoff and then the oldest records
// beyond maxRecords (0 = no cap)
func (s *Store) Prune(ctx context.Context, cutoff time.Time, maxRecords int) (int, error) {
	if maxRecords < 0 {
		return 0, fmt.Errorf("max records cannot be negative")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM records WHERE labeled_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}
	byAge, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	var byCount int64
	if maxRecords > 0 {
		result, err = tx.ExecContext(ctx, `
			DELETE FROM records WHERE id IN (
				SELECT id FROM records
				ORDER BY labeled_at DESC, rowid DESC
				LIMIT -1 OFFSET ?
			)
		`, maxRecords)
		if err != nil {
			return 0, fmt.Errorf("failed to delete excess records: %w", err)
		}
		if byCount, err = result.RowsAffected(); err != nil {
			return 0, fmt.Errorf("failed to check rows affected: %w", err)
		}
	}

	// Orphans remain if foreign keys were off when the record was deleted
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM record_labels WHERE record_id NOT IN (SELECT id FROM records)`); err != nil {
		return 0, fmt.Errorf("failed to delete orphaned labels: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return int(byAge + byCount), nil
}
