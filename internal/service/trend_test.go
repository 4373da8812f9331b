package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
	"github.com/postop-risk-server/internal/state"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func newTrendFixture(t *testing.T) (*TrendAnalyzer, domain.StateStore, time.Time) {
	t.Helper()
	ref := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store := state.NewMemoryStore()
	analyzer := NewTrendAnalyzer(testLogger(), store)
	analyzer.now = func() time.Time { return ref }
	return analyzer, store, ref
}

func appendOverallPoint(t *testing.T, store domain.StateStore, patientID string, at time.Time, overall float64) {
	t.Helper()
	err := store.RecordAssessment(context.Background(), patientID, nil, domain.RiskTrendPoint{
		Timestamp: at,
		Scores:    domain.CategoryScores{Overall: overall},
	})
	require.NoError(t, err)
}

func TestAnalyzeTrendPerfectLinearSeries(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)

	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -2), 10)
	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -1), 20)
	appendOverallPoint(t, store, "p1", ref, 30)

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, got.PointsAnalyzed)
	assert.InDelta(t, 10.0, got.Slope, 1e-9)
	assert.InDelta(t, 10.0, got.Intercept, 1e-9)
	assert.InDelta(t, 1.0, got.RSquared, 1e-9)
	assert.Equal(t, domain.TrendRapidlyWorsening, got.Direction)
	assert.True(t, got.SignificantChange)
	// Extrapolating 10 points/day seven days out clamps at 100.
	assert.InDelta(t, 100.0, got.PredictedScoreIn7Days, 1e-9)
}

func TestAnalyzeTrendImproving(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)

	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -3), 60)
	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -2), 57)
	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -1), 54)
	appendOverallPoint(t, store, "p1", ref, 51)

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.InDelta(t, -3.0, got.Slope, 1e-9)
	assert.Equal(t, domain.TrendImproving, got.Direction)
	assert.True(t, got.SignificantChange)
	assert.InDelta(t, 60-3*10, got.PredictedScoreIn7Days, 1e-9)
}

func TestAnalyzeTrendFlatSeries(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)

	for i := 4; i >= 0; i-- {
		appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -i), 45)
	}

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.Zero(t, got.Slope)
	// No variance in the series leaves nothing for the fit to explain.
	assert.Zero(t, got.RSquared)
	assert.Equal(t, domain.TrendStable, got.Direction)
	assert.False(t, got.SignificantChange)
	assert.InDelta(t, 45.0, got.PredictedScoreIn7Days, 1e-9)
}

func TestAnalyzeTrendNoisySlopeNotSignificant(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)

	// A sawtooth with a mild upward drift: slope clears the magnitude
	// gate but the fit explains too little variance to call it a change.
	values := []float64{40, 60, 38, 62, 41, 63}
	for i, v := range values {
		appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, i-len(values)+1), v)
	}

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.Greater(t, got.Slope, 0.5)
	assert.Less(t, got.RSquared, 0.3)
	assert.False(t, got.SignificantChange)
}

func TestAnalyzeTrendSinglePoint(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)
	appendOverallPoint(t, store, "p1", ref, 62)

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, got.PointsAnalyzed)
	assert.Equal(t, domain.TrendStable, got.Direction)
	assert.Zero(t, got.Slope)
	assert.InDelta(t, 62.0, got.PredictedScoreIn7Days, 1e-9)
	assert.InDelta(t, 62.0, got.Intercept, 1e-9)
}

func TestAnalyzeTrendNoHistory(t *testing.T) {
	analyzer, _, _ := newTrendFixture(t)

	got, err := analyzer.AnalyzeTrend(context.Background(), "ghost", domain.CategoryOverall, 0)
	require.NoError(t, err)

	assert.Zero(t, got.PointsAnalyzed)
	assert.Equal(t, domain.TrendStable, got.Direction)
	assert.InDelta(t, degenerateTrendScore, got.PredictedScoreIn7Days, 1e-9)
}

func TestAnalyzeTrendLookbackWindowExcludesOldPoints(t *testing.T) {
	analyzer, store, ref := newTrendFixture(t)

	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -40), 95)
	appendOverallPoint(t, store, "p1", ref.AddDate(0, 0, -1), 30)
	appendOverallPoint(t, store, "p1", ref, 31)

	got, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.CategoryOverall, 30)
	require.NoError(t, err)

	assert.Equal(t, 2, got.PointsAnalyzed)
	assert.InDelta(t, 1.0, got.Slope, 1e-9)
	assert.Equal(t, domain.TrendWorsening, got.Direction)
}

func TestAnalyzeTrendInvalidCategory(t *testing.T) {
	analyzer, _, _ := newTrendFixture(t)

	_, err := analyzer.AnalyzeTrend(context.Background(), "p1", domain.RiskCategory("cardiac"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}
