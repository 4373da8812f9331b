package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL for deployments that
// share reviews across instances. The schema must already exist.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection from a URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates the review for an alert.
func (s *PostgresStore) Save(ctx context.Context, review *Review) error {
	if !review.Disposition.IsValid() {
		return fmt.Errorf("invalid disposition: %q", review.Disposition)
	}

	now := time.Now()

	query := `
		INSERT INTO alert_reviews (
			alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (alert_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			metric = EXCLUDED.metric,
			suggested_severity = EXCLUDED.suggested_severity,
			reviewed_severity = EXCLUDED.reviewed_severity,
			disposition = EXCLUDED.disposition,
			agreed = EXCLUDED.agreed,
			notes = EXCLUDED.notes,
			reviewer_id = EXCLUDED.reviewer_id,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
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
	).Scan(&review.ID, &review.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	review.UpdatedAt = now
	return nil
}

// Get retrieves the review for an alert.
func (s *PostgresStore) Get(ctx context.Context, alertID string) (*Review, error) {
	query := `
		SELECT id, alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		FROM alert_reviews
		WHERE alert_id = $1
		LIMIT 1
	`

	row := s.db.QueryRowContext(ctx, query, alertID)
	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return rv, nil
}

// List returns reviews with pagination, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Review, error) {
	query := `
		SELECT id, alert_id, patient_id, metric,
			suggested_severity, reviewed_severity, disposition, agreed,
			notes, reviewer_id, created_at, updated_at
		FROM alert_reviews
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_reviews").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// Delete removes a review by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM alert_reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// ExportJSON writes all reviews as a JSON document.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
