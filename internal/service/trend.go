package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// DefaultTrendLookbackDays is the window used when the caller does not
// specify one.
const DefaultTrendLookbackDays = 30

// trendPredictionHorizonDays is how far past the last observed point the
// fitted line is extrapolated.
const trendPredictionHorizonDays = 7

// degenerateTrendScore is reported as the 7-day prediction when a patient
// has no history at all.
const degenerateTrendScore = 30.0

// TrendAnalyzer regresses per-patient score history from the state store.
type TrendAnalyzer struct {
	logger *logrus.Logger
	store  domain.StateStore
	now    func() time.Time
}

// NewTrendAnalyzer creates a trend analyzer over the given state store.
func NewTrendAnalyzer(logger *logrus.Logger, store domain.StateStore) *TrendAnalyzer {
	return &TrendAnalyzer{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// AnalyzeTrend fits ordinary least squares over the patient's score series
// for one category within the lookback window. With fewer than two points
// the result degenerates to a stable, zero-slope analysis.
func (t *TrendAnalyzer) AnalyzeTrend(ctx context.Context, patientID string, category domain.RiskCategory, daysBack int) (*domain.TrendAnalysis, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCategory, category)
	}
	if daysBack <= 0 {
		daysBack = DefaultTrendLookbackDays
	}

	history, err := t.store.TrendHistory(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading trend history: %w", err)
	}

	cutoff := t.now().AddDate(0, 0, -daysBack)
	var xs, ys []float64
	var first time.Time
	for _, pt := range history {
		if pt.Timestamp.Before(cutoff) {
			continue
		}
		if first.IsZero() {
			first = pt.Timestamp
		}
		score, err := pt.Scores.Score(category)
		if err != nil {
			return nil, err
		}
		xs = append(xs, pt.Timestamp.Sub(first).Hours()/24)
		ys = append(ys, score)
	}

	analysis := &domain.TrendAnalysis{
		PatientID:      patientID,
		Category:       category,
		PointsAnalyzed: len(ys),
	}

	if len(ys) < 2 {
		analysis.Direction = domain.TrendStable
		analysis.PredictedScoreIn7Days = degenerateTrendScore
		if len(ys) == 1 {
			analysis.PredictedScoreIn7Days = ys[0]
			analysis.Intercept = ys[0]
		}
		return analysis, nil
	}

	slope, intercept, rSquared := fitOLS(xs, ys)

	analysis.Slope = slope
	analysis.Intercept = intercept
	analysis.RSquared = rSquared
	analysis.Direction = trendDirection(slope)
	analysis.SignificantChange = (slope > 0.5 || slope < -0.5) && rSquared > 0.3
	analysis.PredictedScoreIn7Days = clampScore(slope*(xs[len(xs)-1]+trendPredictionHorizonDays) + intercept)

	t.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"category":   category,
		"points":     len(ys),
		"slope":      slope,
		"r_squared":  rSquared,
		"direction":  analysis.Direction,
	}).Debug("Trend analysis completed")

	return analysis, nil
}

// fitOLS computes the closed-form least-squares slope, intercept and
// coefficient of determination for the (x, y) series. rSquared is 0 when
// the series has no variance.
func fitOLS(xs, ys []float64) (slope, intercept, rSquared float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// All observations at the same x offset; no fit possible.
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i := range xs {
		fit := slope*xs[i] + intercept
		ssRes += (ys[i] - fit) * (ys[i] - fit)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 0
	}
	return slope, intercept, 1 - ssRes/ssTot
}

func trendDirection(slope float64) domain.TrendDirection {
	switch {
	case slope > 2:
		return domain.TrendRapidlyWorsening
	case slope > 0.5:
		return domain.TrendWorsening
	case slope < -0.5:
		return domain.TrendImproving
	default:
		return domain.TrendStable
	}
}
