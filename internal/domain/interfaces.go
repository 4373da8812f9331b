package domain

import (
	"context"
)

// StateStore holds the only mutable engine state: per-patient Bayesian priors,
// the bounded trend history, and the running assessment count. Implementations
// must be safe for concurrent use across patients; the engine serializes
// writes for a single patient itself.
type StateStore interface {
	// Prior returns the smoothing state for a patient and category.
	// The boolean is false when no prior exists yet.
	Prior(ctx context.Context, patientID string, category RiskCategory) (BayesianPrior, bool, error)

	// RecordAssessment commits one completed assessment: it stores the
	// updated prior for every category in priors, appends the trend point
	// to the patient's FIFO history (bounded at MaxTrendHistory), and
	// increments the assessment count. Implementations apply all writes
	// or none, so a failed assessment records nothing.
	RecordAssessment(ctx context.Context, patientID string, priors map[RiskCategory]BayesianPrior, point RiskTrendPoint) error

	// TrendHistory returns the patient's trend points, oldest first.
	TrendHistory(ctx context.Context, patientID string) ([]RiskTrendPoint, error)

	// AssessmentCount returns how many assessments have been recorded for
	// the patient, including points evicted from the bounded history.
	AssessmentCount(ctx context.Context, patientID string) (int, error)

	// ResetPriors clears the smoothing state only, e.g. after a new
	// surgical episode. Trend history and counters survive.
	ResetPriors(ctx context.Context, patientID string) error

	// ClearPatient removes all state held for the patient.
	ClearPatient(ctx context.Context, patientID string) error
}

// AssessmentRepository persists assessments and their alerts. The engine
// itself never performs I/O; the owning service layer persists results
// through this interface.
type AssessmentRepository interface {
	SaveAssessment(ctx context.Context, assessment *RiskAssessment) error
	GetAssessment(ctx context.Context, assessmentID string) (*RiskAssessment, error)
	ListAssessments(ctx context.Context, patientID string, limit, offset int) ([]*RiskAssessment, error)
	ListAlerts(ctx context.Context, patientID string, limit, offset int) ([]*RiskAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error
}

// AlertNotifier forwards raised alerts to an external notification
// collaborator (webhook, message broker). Delivery templating is out of
// scope here; implementations receive the full alert record.
type AlertNotifier interface {
	Notify(ctx context.Context, alert *RiskAlert) error
	Close() error
}

// ConfigManager exposes validated application configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
}
