package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// MetricReadings carries every value the alert thresholds can be evaluated
// against for one assessment: the six smoothed category scores plus the raw
// clinical and compliance metrics.
type MetricReadings struct {
	Scores                          domain.CategoryScores
	Temperature                     float64
	HeartRate                       float64
	OxygenSaturation                float64
	ConsecutiveMissedMedicationDays int
	PainLevel                       int
}

// Value returns the reading for a metric.
func (r MetricReadings) Value(m domain.AlertMetric) (float64, error) {
	switch m {
	case domain.MetricOverallRiskScore:
		return r.Scores.Overall, nil
	case domain.MetricInfectionRiskScore:
		return r.Scores.Infection, nil
	case domain.MetricReadmissionRiskScore:
		return r.Scores.Readmission, nil
	case domain.MetricFallRiskScore:
		return r.Scores.Fall, nil
	case domain.MetricMentalHealthRiskScore:
		return r.Scores.MentalHealth, nil
	case domain.MetricMedNonAdherenceRiskScore:
		return r.Scores.MedicationNonAdherence, nil
	case domain.MetricTemperature:
		return r.Temperature, nil
	case domain.MetricHeartRate:
		return r.HeartRate, nil
	case domain.MetricOxygenSaturation:
		return r.OxygenSaturation, nil
	case domain.MetricConsecutiveMissedMedDays:
		return float64(r.ConsecutiveMissedMedicationDays), nil
	case domain.MetricPainLevel:
		return float64(r.PainLevel), nil
	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidMetric, m)
	}
}

// DefaultThresholds returns the built-in alert threshold set. Levels for the
// six category scores sit on the upper tier boundaries; vital thresholds
// follow common post-operative escalation practice. Oxygen saturation is
// inverted, so its levels descend.
func DefaultThresholds() []domain.AlertThreshold {
	return []domain.AlertThreshold{
		{Category: domain.CategoryOverall, Metric: domain.MetricOverallRiskScore, WarningLevel: 50, UrgentLevel: 65, CriticalLevel: 80, Enabled: true},
		{Category: domain.CategoryInfection, Metric: domain.MetricInfectionRiskScore, WarningLevel: 50, UrgentLevel: 70, CriticalLevel: 85, Enabled: true},
		{Category: domain.CategoryReadmission, Metric: domain.MetricReadmissionRiskScore, WarningLevel: 50, UrgentLevel: 70, CriticalLevel: 85, Enabled: true},
		{Category: domain.CategoryFall, Metric: domain.MetricFallRiskScore, WarningLevel: 50, UrgentLevel: 70, CriticalLevel: 85, Enabled: true},
		{Category: domain.CategoryMentalHealth, Metric: domain.MetricMentalHealthRiskScore, WarningLevel: 50, UrgentLevel: 70, CriticalLevel: 85, Enabled: true},
		{Category: domain.CategoryMedicationNonAdherence, Metric: domain.MetricMedNonAdherenceRiskScore, WarningLevel: 50, UrgentLevel: 70, CriticalLevel: 85, Enabled: true},
		{Category: domain.CategoryInfection, Metric: domain.MetricTemperature, WarningLevel: 38.0, UrgentLevel: 38.5, CriticalLevel: 39.0, Enabled: true},
		{Category: domain.CategoryOverall, Metric: domain.MetricHeartRate, WarningLevel: 100, UrgentLevel: 115, CriticalLevel: 130, Enabled: true},
		{Category: domain.CategoryOverall, Metric: domain.MetricOxygenSaturation, WarningLevel: 94, UrgentLevel: 92, CriticalLevel: 88, Enabled: true},
		{Category: domain.CategoryMedicationNonAdherence, Metric: domain.MetricConsecutiveMissedMedDays, WarningLevel: 2, UrgentLevel: 4, CriticalLevel: 7, Enabled: true},
		{Category: domain.CategoryOverall, Metric: domain.MetricPainLevel, WarningLevel: 6, UrgentLevel: 8, CriticalLevel: 9, Enabled: true},
	}
}

// AlertGenerator evaluates configured thresholds against assessment metrics.
// Threshold configuration is mutable and safe for concurrent use.
type AlertGenerator struct {
	logger *logrus.Logger

	mu         sync.RWMutex
	thresholds map[domain.AlertMetric]domain.AlertThreshold
}

// NewAlertGenerator creates a generator with the given threshold set;
// nil selects the defaults.
func NewAlertGenerator(logger *logrus.Logger, thresholds []domain.AlertThreshold) *AlertGenerator {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	m := make(map[domain.AlertMetric]domain.AlertThreshold, len(thresholds))
	for _, t := range thresholds {
		m[t.Metric] = t
	}
	return &AlertGenerator{
		logger:     logger,
		thresholds: m,
	}
}

// Thresholds returns the configured thresholds ordered by metric name.
func (g *AlertGenerator) Thresholds() []domain.AlertThreshold {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.AlertThreshold, 0, len(g.thresholds))
	for _, t := range g.thresholds {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metric < out[j].Metric })
	return out
}

// Threshold looks up the configuration for one metric.
func (g *AlertGenerator) Threshold(metric domain.AlertMetric) (domain.AlertThreshold, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.thresholds[metric]
	return t, ok
}

// AddThreshold registers a threshold for a metric not yet configured.
func (g *AlertGenerator) AddThreshold(t domain.AlertThreshold) error {
	if err := validateThreshold(t); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.thresholds[t.Metric]; exists {
		return domain.NewValidationError("metric", "threshold already configured for metric", string(t.Metric))
	}
	g.thresholds[t.Metric] = t
	return nil
}

// UpdateThreshold replaces the configuration for an existing metric.
// Returns ErrNotFound when the metric has no threshold.
func (g *AlertGenerator) UpdateThreshold(t domain.AlertThreshold) error {
	if err := validateThreshold(t); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.thresholds[t.Metric]; !exists {
		return fmt.Errorf("threshold for %s: %w", t.Metric, domain.ErrNotFound)
	}
	g.thresholds[t.Metric] = t
	return nil
}

// RemoveThreshold deletes a metric's threshold. Returns false when none
// was configured.
func (g *AlertGenerator) RemoveThreshold(metric domain.AlertMetric) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.thresholds[metric]; !exists {
		return false
	}
	delete(g.thresholds, metric)
	return true
}

func validateThreshold(t domain.AlertThreshold) error {
	if !t.Metric.IsValid() {
		return domain.NewValidationError("metric", "unknown alert metric", string(t.Metric))
	}
	if !t.Category.IsValid() {
		return domain.NewValidationError("category", "unknown risk category", string(t.Category))
	}
	if t.Metric.Inverted() {
		if !(t.CriticalLevel <= t.UrgentLevel && t.UrgentLevel <= t.WarningLevel) {
			return domain.NewValidationError("levels", "inverted metric levels must descend from warning to critical", t.Metric.String())
		}
	} else if !(t.WarningLevel <= t.UrgentLevel && t.UrgentLevel <= t.CriticalLevel) {
		return domain.NewValidationError("levels", "levels must ascend from warning to critical", t.Metric.String())
	}
	return nil
}

// Evaluate runs every enabled threshold against the readings. Bands are
// checked critical, then urgent, then warning: the first (highest-severity)
// match wins and each threshold fires at most one alert per evaluation.
func (g *AlertGenerator) Evaluate(patientID string, readings MetricReadings, at time.Time) []domain.RiskAlert {
	thresholds := g.Thresholds()

	var alerts []domain.RiskAlert
	for _, t := range thresholds {
		if !t.Enabled {
			continue
		}
		value, err := readings.Value(t.Metric)
		if err != nil {
			g.logger.WithError(err).WithField("metric", t.Metric).Warn("Skipping threshold with unreadable metric")
			continue
		}

		severity, level, hit := matchBand(t, value)
		if !hit {
			continue
		}

		alerts = append(alerts, domain.RiskAlert{
			ID:               uuid.New().String(),
			PatientID:        patientID,
			Severity:         severity,
			Category:         t.Category,
			Message:          alertMessage(severity, t.Metric, value, level),
			TriggeringFactor: t.Metric,
			CurrentValue:     value,
			Threshold:        level,
			Timestamp:        at,
			Acknowledged:     false,
		})
	}

	if len(alerts) > 0 {
		g.logger.WithFields(logrus.Fields{
			"patient_id": patientID,
			"alerts":     len(alerts),
		}).Info("Threshold alerts raised")
	}
	return alerts
}

// matchBand finds the highest band the value crosses. Inverted metrics
// (oxygen saturation) compare with <= because lower readings are worse.
func matchBand(t domain.AlertThreshold, value float64) (domain.AlertSeverity, float64, bool) {
	crossed := func(level float64) bool {
		if t.Metric.Inverted() {
			return value <= level
		}
		return value >= level
	}
	switch {
	case crossed(t.CriticalLevel):
		return domain.SeverityCritical, t.CriticalLevel, true
	case crossed(t.UrgentLevel):
		return domain.SeverityUrgent, t.UrgentLevel, true
	case crossed(t.WarningLevel):
		return domain.SeverityWarning, t.WarningLevel, true
	default:
		return "", 0, false
	}
}

func alertMessage(severity domain.AlertSeverity, metric domain.AlertMetric, value, level float64) string {
	direction := "at or above"
	if metric.Inverted() {
		direction = "at or below"
	}
	return fmt.Sprintf("%s: %s %.1f %s %s threshold %.1f",
		severityLabel(severity), metric, value, direction, severity, level)
}

func severityLabel(s domain.AlertSeverity) string {
	switch s {
	case domain.SeverityCritical:
		return "CRITICAL"
	case domain.SeverityUrgent:
		return "URGENT"
	case domain.SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}
