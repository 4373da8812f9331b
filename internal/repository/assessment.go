// Package repository persists completed risk assessments and their alerts
// to Postgres. Persistence is optional; the engine itself never touches it.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// AssessmentRepository stores assessments and alerts in Postgres.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAssessmentRepository creates a repository over an existing pool.
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

// categoryScoresDoc is the JSONB shape stored per assessment. Keeping the
// six category scores in one document avoids a seven-way join for reads.
type categoryScoresDoc struct {
	Overall                domain.RiskCategoryScore `json:"overall"`
	Infection              domain.RiskCategoryScore `json:"infection"`
	Readmission            domain.RiskCategoryScore `json:"readmission"`
	Fall                   domain.RiskCategoryScore `json:"fall"`
	MentalHealth           domain.RiskCategoryScore `json:"mental_health"`
	MedicationNonAdherence domain.RiskCategoryScore `json:"medication_non_adherence"`
}

// SaveAssessment inserts the assessment and its alerts in one transaction.
func (r *AssessmentRepository) SaveAssessment(ctx context.Context, assessment *domain.RiskAssessment) error {
	doc := categoryScoresDoc{
		Overall:                assessment.Overall,
		Infection:              assessment.Infection,
		Readmission:            assessment.Readmission,
		Fall:                   assessment.Fall,
		MentalHealth:           assessment.MentalHealth,
		MedicationNonAdherence: assessment.MedicationNonAdherence,
	}
	scores, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding category scores: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assessments (
			id, patient_id, assessed_at, scores, lace_index, charlson_index
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		assessment.AssessmentID,
		assessment.PatientID,
		assessment.Timestamp,
		scores,
		assessment.LACEIndexScore,
		assessment.CharlsonComorbidityIndex,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id": assessment.AssessmentID,
			"patient_id":    assessment.PatientID,
			"error":         err,
		}).Error("Failed to insert assessment")
		return fmt.Errorf("inserting assessment: %w", err)
	}

	for _, alert := range assessment.Alerts {
		_, err = tx.Exec(ctx, `
			INSERT INTO alerts (
				id, assessment_id, patient_id, severity, category, message,
				triggering_factor, current_value, threshold, raised_at, acknowledged
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			alert.ID,
			assessment.AssessmentID,
			alert.PatientID,
			string(alert.Severity),
			string(alert.Category),
			alert.Message,
			string(alert.TriggeringFactor),
			alert.CurrentValue,
			alert.Threshold,
			alert.Timestamp,
			alert.Acknowledged,
		)
		if err != nil {
			return fmt.Errorf("inserting alert %s: %w", alert.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id": assessment.AssessmentID,
		"patient_id":    assessment.PatientID,
		"alerts":        len(assessment.Alerts),
	}).Info("Assessment persisted")

	return nil
}

// GetAssessment retrieves one assessment with its alerts.
func (r *AssessmentRepository) GetAssessment(ctx context.Context, assessmentID string) (*domain.RiskAssessment, error) {
	var (
		assessment domain.RiskAssessment
		scores     []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, patient_id, assessed_at, scores, lace_index, charlson_index
		FROM assessments
		WHERE id = $1`, assessmentID,
	).Scan(
		&assessment.AssessmentID,
		&assessment.PatientID,
		&assessment.Timestamp,
		&scores,
		&assessment.LACEIndexScore,
		&assessment.CharlsonComorbidityIndex,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": assessmentID,
			"error":         err,
		}).Error("Failed to get assessment")
		return nil, fmt.Errorf("getting assessment: %w", err)
	}

	if err := unpackScores(scores, &assessment); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, severity, category, message, triggering_factor,
			   current_value, threshold, raised_at, acknowledged
		FROM alerts
		WHERE assessment_id = $1
		ORDER BY raised_at`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("getting assessment alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, err
	}
	assessment.Alerts = make([]domain.RiskAlert, 0, len(alerts))
	for _, alert := range alerts {
		assessment.Alerts = append(assessment.Alerts, *alert)
	}

	return &assessment, nil
}

// ListAssessments returns a patient's assessments, newest first. Alerts are
// not hydrated; use GetAssessment for the full record.
func (r *AssessmentRepository) ListAssessments(ctx context.Context, patientID string, limit, offset int) ([]*domain.RiskAssessment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, assessed_at, scores, lace_index, charlson_index
		FROM assessments
		WHERE patient_id = $1
		ORDER BY assessed_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list assessments")
		return nil, fmt.Errorf("listing assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*domain.RiskAssessment
	for rows.Next() {
		var (
			assessment domain.RiskAssessment
			scores     []byte
		)
		err := rows.Scan(
			&assessment.AssessmentID,
			&assessment.PatientID,
			&assessment.Timestamp,
			&scores,
			&assessment.LACEIndexScore,
			&assessment.CharlsonComorbidityIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		if err := unpackScores(scores, &assessment); err != nil {
			return nil, err
		}
		assessments = append(assessments, &assessment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}

	return assessments, nil
}

// ListAlerts returns a patient's alerts, newest first.
func (r *AssessmentRepository) ListAlerts(ctx context.Context, patientID string, limit, offset int) ([]*domain.RiskAlert, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, severity, category, message, triggering_factor,
			   current_value, threshold, raised_at, acknowledged
		FROM alerts
		WHERE patient_id = $1
		ORDER BY raised_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": patientID,
			"error":      err,
		}).Error("Failed to list alerts")
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// AcknowledgeAlert marks an alert as reviewed.
func (r *AssessmentRepository) AcknowledgeAlert(ctx context.Context, alertID string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, alertID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"alert_id": alertID,
			"error":    err,
		}).Error("Failed to acknowledge alert")
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("alert not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("alert_id", alertID).Info("Alert acknowledged")
	return nil
}

func unpackScores(raw []byte, assessment *domain.RiskAssessment) error {
	var doc categoryScoresDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding category scores: %w", err)
	}
	assessment.Overall = doc.Overall
	assessment.Infection = doc.Infection
	assessment.Readmission = doc.Readmission
	assessment.Fall = doc.Fall
	assessment.MentalHealth = doc.MentalHealth
	assessment.MedicationNonAdherence = doc.MedicationNonAdherence
	return nil
}

func scanAlerts(rows pgx.Rows) ([]*domain.RiskAlert, error) {
	var alerts []*domain.RiskAlert
	for rows.Next() {
		var (
			alert    domain.RiskAlert
			severity string
			category string
			metric   string
		)
		err := rows.Scan(
			&alert.ID,
			&alert.PatientID,
			&severity,
			&category,
			&alert.Message,
			&metric,
			&alert.CurrentValue,
			&alert.Threshold,
			&alert.Timestamp,
			&alert.Acknowledged,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		alert.Severity = domain.AlertSeverity(severity)
		alert.Category = domain.RiskCategory(category)
		alert.TriggeringFactor = domain.AlertMetric(metric)
		alerts = append(alerts, &alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert rows: %w", err)
	}

	return alerts, nil
}
