// Package review stores clinician dispositions of raised alerts. It records
// whether the clinician agreed with the generated severity, which feeds
// threshold tuning.
package review

import (
	"context"
	"io"
	"time"

	"github.com/postop-risk-server/internal/domain"
)

// Disposition is the clinician's judgement of an alert.
type Disposition string

const (
	DispositionConfirmed  Disposition = "confirmed"
	DispositionFalseAlarm Disposition = "false_alarm"
	DispositionEscalated  Disposition = "escalated"
	DispositionDowngraded Disposition = "downgraded"
)

// IsValid reports whether the disposition is a known value.
func (d Disposition) IsValid() bool {
	switch d {
	case DispositionConfirmed, DispositionFalseAlarm, DispositionEscalated, DispositionDowngraded:
		return true
	}
	return false
}

// Review is a clinician's assessment of one alert. One review exists per
// alert; saving again replaces the earlier disposition.
type Review struct {
	ID                int64                `json:"id,omitempty"`
	AlertID           string               `json:"alert_id"`
	PatientID         string               `json:"patient_id"`
	Metric            string               `json:"metric"`
	SuggestedSeverity domain.AlertSeverity `json:"suggested_severity"`
	ReviewedSeverity  domain.AlertSeverity `json:"reviewed_severity"`
	Disposition       Disposition          `json:"disposition"`
	Agreed            bool                 `json:"agreed"`
	Notes             string               `json:"notes,omitempty"`
	ReviewerID        string               `json:"reviewer_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Store defines alert review storage operations.
type Store interface {
	// Save stores or updates the review for an alert. A review for the
	// same alert ID replaces the previous one.
	Save(ctx context.Context, review *Review) error

	// Get retrieves the review for an alert, or nil when none exists.
	Get(ctx context.Context, alertID string) (*Review, error)

	// List returns reviews with pagination, newest first.
	List(ctx context.Context, limit, offset int) ([]*Review, error)

	// Count returns the total number of reviews.
	Count(ctx context.Context) (int64, error)

	// Delete removes a review by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON writes all reviews as a JSON document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads reviews from a JSON document, skipping alerts that
	// already have one. Returns imported and skipped counts.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases store resources.
	Close() error
}

func severityFromString(s string) domain.AlertSeverity {
	return domain.AlertSeverity(s)
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Reviews    []*Review `json:"reviews"`
}
