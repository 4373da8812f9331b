package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite, the default single-node
// backend.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the review database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS alert_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id TEXT NOT NULL UNIQUE,
		patient_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		suggested_severity TEXT NOT NULL,
		reviewed_severity TEXT NOT NULL,
		disposition TEXT NOT NULL,
		agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		reviewer_id TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_patient ON alert_reviews(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_created ON alert_reviews(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(s scanner) (*Review, error) {
	rv := &Review{}
	var suggested, reviewed, disposition string

	err := s.Scan(
		&rv.ID, &rv.AlertID, &rv.PatientID, &rv.Metric,
		&suggested, &reviewed, &disposition, &rv.Agreed,
		&rv.Notes, &rv.ReviewerID, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rv.SuggestedSeverity = severityFromString(suggested)
	rv.ReviewedSeverity = severityFromString(reviewed)
	rv.Disposition = Disposition(disposition)
	return rv, nil
}

// Save stores or updates the review for an alert.
func (s *SQLiteStore) Save(ctx context.Context, review *Review) error {
	if !review.Disposition.IsValid() {
		return fmt.Errorf("invalid disposition: %q", review.Disposition)
	}

	now := time.Now()

	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM alert_reviews WHERE alert_id = ?", review.AlertID,
	).Scan(&existingID)

	if err == nil {
		review.ID = existingID
		review.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE alert_reviews SET
				patient_id = ?,
				metric = ?,
				suggested_severity = ?,
				reviewed_severity = ?,
				disposition = ?,
				agreed = ?,
				notes = ?,
				reviewer_id = ?,
				updated_at = ?
			WHERE id = ?
		`,
			review.PatientID,
			review.Metric,
			string(review.SuggestedSeverity),
			string(review.ReviewedSeverity),
			string(review.Disposition),
			review.Agreed,
			review.Notes,
			review.ReviewerID,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	review.CreatedAt = now
	review.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_reviews (
			alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.AlertID,
		review.PatientID,
		review.Metric,
		string(review.SuggestedSeverity),
		string(review.ReviewedSeverity),
		string(review.Disposition),
		review.Agreed,
		review.Notes,
		review.ReviewerID,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	review.ID = id

	return nil
}

// Get retrieves the review for an alert.
func (s *SQLiteStore) Get(ctx context.Context, alertID string) (*Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		FROM alert_reviews
		WHERE alert_id = ?
		LIMIT 1
	`, alertID)

	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rv, nil
}

// List returns reviews with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		FROM alert_reviews
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rv)
	}
	return result, rows.Err()
}

// Count returns the total number of reviews.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_reviews").Scan(&count)
	return count, err
}

// Delete removes a review by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM alert_reviews WHERE id = ?", id)
	return err
}

const maxExportLimit = 1000000

// ExportJSON writes all reviews as a JSON document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list reviews: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Reviews:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON loads reviews, skipping alerts that already have one.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rv := range export.Reviews {
		existing, err := s.Get(ctx, rv.AlertID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, rv); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
