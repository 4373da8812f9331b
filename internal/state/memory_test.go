package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
)

func recordPoint(t *testing.T, store *MemoryStore, patientID string, point domain.RiskTrendPoint) {
	t.Helper()
	require.NoError(t, store.RecordAssessment(context.Background(), patientID, nil, point))
}

func TestMemoryStorePriors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.Prior(ctx, "p1", domain.CategoryOverall)
	require.NoError(t, err)
	assert.False(t, ok)

	prior := domain.BayesianPrior{Mean: 42.0, Variance: 150.0, ObservationCount: 3}
	priors := map[domain.RiskCategory]domain.BayesianPrior{domain.CategoryOverall: prior}
	require.NoError(t, store.RecordAssessment(ctx, "p1", priors, domain.RiskTrendPoint{Timestamp: time.Now()}))

	got, ok, err := store.Prior(ctx, "p1", domain.CategoryOverall)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, prior, got)

	// Other categories and patients remain untouched.
	_, ok, err = store.Prior(ctx, "p1", domain.CategoryInfection)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Prior(ctx, "p2", domain.CategoryOverall)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreRecordAssessmentCommitsAllState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	priors := make(map[domain.RiskCategory]domain.BayesianPrior, len(domain.AllCategories))
	for i, cat := range domain.AllCategories {
		priors[cat] = domain.BayesianPrior{Mean: float64(30 + i), Variance: 100, ObservationCount: 1}
	}
	point := domain.RiskTrendPoint{Timestamp: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	point.Scores.Overall = 35

	require.NoError(t, store.RecordAssessment(ctx, "p1", priors, point))

	// One commit advances every category's prior, the history, and the
	// count together.
	for cat, want := range priors {
		got, ok, err := store.Prior(ctx, "p1", cat)
		require.NoError(t, err)
		require.True(t, ok, "prior missing for %s", cat)
		assert.Equal(t, want, got)
	}

	history, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, point, history[0])

	count, err := store.AssessmentCount(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreTrendHistoryBounded(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	total := domain.MaxTrendHistory + 10
	for i := 0; i < total; i++ {
		point := domain.RiskTrendPoint{Timestamp: base.AddDate(0, 0, i)}
		point.Scores.Overall = float64(i)
		recordPoint(t, store, "p1", point)
	}

	history, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, history, domain.MaxTrendHistory)

	// Oldest points were evicted FIFO; the count still reflects every append.
	assert.Equal(t, float64(10), history[0].Scores.Overall)
	assert.Equal(t, float64(total-1), history[len(history)-1].Scores.Overall)

	count, err := store.AssessmentCount(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, total, count)
}

func TestMemoryStoreResetPriorsKeepsHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	priors := map[domain.RiskCategory]domain.BayesianPrior{
		domain.CategoryFall: {Mean: 50, Variance: 100, ObservationCount: 2},
	}
	require.NoError(t, store.RecordAssessment(ctx, "p1", priors, domain.RiskTrendPoint{Timestamp: time.Now()}))

	require.NoError(t, store.ResetPriors(ctx, "p1"))

	_, ok, err := store.Prior(ctx, "p1", domain.CategoryFall)
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	count, err := store.AssessmentCount(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreClearPatient(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	priors := map[domain.RiskCategory]domain.BayesianPrior{
		domain.CategoryOverall: {Mean: 50, Variance: 100, ObservationCount: 1},
	}
	require.NoError(t, store.RecordAssessment(ctx, "p1", priors, domain.RiskTrendPoint{Timestamp: time.Now()}))

	require.NoError(t, store.ClearPatient(ctx, "p1"))

	_, ok, err := store.Prior(ctx, "p1", domain.CategoryOverall)
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, history)

	count, err := store.AssessmentCount(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreHistoryCopyIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	point := domain.RiskTrendPoint{Timestamp: time.Now()}
	point.Scores.Overall = 40
	recordPoint(t, store, "p1", point)

	history, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	history[0].Scores.Overall = 99

	again, err := store.TrendHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, float64(40), again[0].Scores.Overall)
}
