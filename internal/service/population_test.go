package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
)

func uniformCohort(overall float64, n int, group domain.AgeGroup, complexity domain.SurgeryComplexity) []domain.BaselinePatientProfile {
	out := make([]domain.BaselinePatientProfile, n)
	for i := range out {
		out[i] = domain.BaselinePatientProfile{
			AgeGroup:          group,
			SurgeryComplexity: complexity,
			RiskScores:        domain.CategoryScores{Overall: overall},
		}
	}
	return out
}

func TestCompareToPopulationAtTheMean(t *testing.T) {
	profiles := []domain.BaselinePatientProfile{
		{RiskScores: domain.CategoryScores{Overall: 30}},
		{RiskScores: domain.CategoryScores{Overall: 50}},
		{RiskScores: domain.CategoryScores{Overall: 70}},
	}
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 0)

	got, err := analyzer.CompareToPopulation(50, domain.CategoryOverall)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, got.PopulationMean, 1e-9)
	assert.InDelta(t, 0.0, got.ZScore, 1e-9)
	assert.InDelta(t, 50.0, got.Percentile, 1e-4)
	assert.Equal(t, 3, got.CohortSize)
}

func TestCompareToPopulationZScoreAndPercentile(t *testing.T) {
	profiles := []domain.BaselinePatientProfile{
		{RiskScores: domain.CategoryScores{Overall: 40}},
		{RiskScores: domain.CategoryScores{Overall: 60}},
	}
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 0)

	// Mean 50, stddev 10: a score of 60 sits one standard deviation up.
	got, err := analyzer.CompareToPopulation(60, domain.CategoryOverall)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, got.ZScore, 1e-9)
	assert.InDelta(t, 84.134, got.Percentile, 0.01)

	below, err := analyzer.CompareToPopulation(40, domain.CategoryOverall)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, below.ZScore, 1e-9)
	assert.InDelta(t, 100-got.Percentile, below.Percentile, 1e-6)
}

func TestCompareToPopulationZeroVariance(t *testing.T) {
	analyzer := NewPopulationAnalyzer(testLogger(),
		uniformCohort(50, 10, domain.AgeGroup50To64, domain.ComplexityModerate), 0)

	got, err := analyzer.CompareToPopulation(90, domain.CategoryOverall)
	require.NoError(t, err)

	// Degenerate cohort: the z-score is pinned to zero instead of dividing
	// by a zero standard deviation.
	assert.Zero(t, got.ZScore)
	assert.InDelta(t, 50.0, got.Percentile, 1e-9)
}

func TestCompareToPopulationInvalidCategory(t *testing.T) {
	analyzer := NewPopulationAnalyzer(testLogger(), GenerateBaselineCohort(0, 20), 0)
	_, err := analyzer.CompareToPopulation(50, domain.RiskCategory("cardiac"))
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestCompareToSubgroup(t *testing.T) {
	profiles := append(
		uniformCohort(20, 6, domain.AgeGroupUnder50, domain.ComplexityMinor),
		uniformCohort(80, 6, domain.AgeGroup80Plus, domain.ComplexityComplex)...)
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 5)

	got, err := analyzer.CompareToSubgroup(70, domain.CategoryOverall, domain.CohortFilter{
		AgeGroup: domain.AgeGroup80Plus,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, got.CohortSize)
	assert.InDelta(t, 80.0, got.PopulationMean, 1e-9)
}

func TestCompareToSubgroupFallsBackWhenTooSmall(t *testing.T) {
	profiles := append(
		uniformCohort(20, 8, domain.AgeGroupUnder50, domain.ComplexityMinor),
		uniformCohort(80, 2, domain.AgeGroup80Plus, domain.ComplexityComplex)...)
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 5)

	got, err := analyzer.CompareToSubgroup(50, domain.CategoryOverall, domain.CohortFilter{
		AgeGroup: domain.AgeGroup80Plus,
	})
	require.NoError(t, err)

	// Two members is below the minimum subgroup size, so the comparison
	// runs against the full cohort instead.
	assert.Equal(t, len(profiles), got.CohortSize)
	assert.InDelta(t, 32.0, got.PopulationMean, 1e-9)
}

func TestCompareToSubgroupCachesStatistics(t *testing.T) {
	profiles := uniformCohort(40, 10, domain.AgeGroup65To79, domain.ComplexityMajor)
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 5)
	filter := domain.CohortFilter{AgeGroup: domain.AgeGroup65To79}

	first, err := analyzer.CompareToSubgroup(40, domain.CategoryOverall, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.subgroupCache.Len())

	second, err := analyzer.CompareToSubgroup(40, domain.CategoryOverall, filter)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, analyzer.subgroupCache.Len())
}

func TestFilteredProfiles(t *testing.T) {
	profiles := append(
		uniformCohort(20, 3, domain.AgeGroupUnder50, domain.ComplexityMinor),
		uniformCohort(80, 4, domain.AgeGroupUnder50, domain.ComplexityComplex)...)
	analyzer := NewPopulationAnalyzer(testLogger(), profiles, 5)

	assert.Len(t, analyzer.FilteredProfiles(domain.CohortFilter{}), 7)
	assert.Len(t, analyzer.FilteredProfiles(domain.CohortFilter{
		SurgeryComplexity: domain.ComplexityComplex,
	}), 4)
	assert.Empty(t, analyzer.FilteredProfiles(domain.CohortFilter{
		AgeGroup: domain.AgeGroup80Plus,
	}))
}

func TestNormalCDF(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{0, 0.5},
		{1, 0.841345},
		{-1, 0.158655},
		{1.96, 0.975002},
		{-1.96, 0.024998},
		{3, 0.998650},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, normalCDF(tt.z), 1e-5, "z=%v", tt.z)
	}
}
