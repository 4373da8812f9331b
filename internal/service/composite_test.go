package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postop-risk-server/internal/domain"
)

func TestCategoryWeightsSumToOne(t *testing.T) {
	for _, cat := range domain.AllCategories {
		w, err := CategoryWeights(cat)
		require.NoError(t, err, "category %s", cat)

		var sum float64
		for _, d := range domain.AllDomains {
			sum += w.Weight(d)
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "category %s", cat)
	}
}

func TestCategoryWeightsUnknownCategory(t *testing.T) {
	_, err := CategoryWeights(domain.RiskCategory("cardiac"))
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestCompositeScoreWeightedMean(t *testing.T) {
	scores := map[domain.ScoringDomain]DomainScore{
		domain.DomainDemographics: {Score: 10},
		domain.DomainSurgical:     {Score: 20},
		domain.DomainCompliance:   {Score: 30},
		domain.DomainClinical:     {Score: 40},
		domain.DomainBehavioral:   {Score: 50},
	}

	got, err := CompositeScore(domain.CategoryOverall, scores)
	require.NoError(t, err)
	// 0.20*10 + 0.25*20 + 0.20*30 + 0.25*40 + 0.10*50
	assert.InDelta(t, 28.0, got, 1e-9)

	got, err = CompositeScore(domain.CategoryMentalHealth, scores)
	require.NoError(t, err)
	// 0.15*10 + 0.15*20 + 0.20*30 + 0.10*40 + 0.40*50
	assert.InDelta(t, 34.5, got, 1e-9)
}

func TestCompositeScoreRenormalizesMissingDomains(t *testing.T) {
	scores := map[domain.ScoringDomain]DomainScore{
		domain.DomainDemographics: {Score: 60},
		domain.DomainSurgical:     {Score: 60},
	}

	got, err := CompositeScore(domain.CategoryOverall, scores)
	require.NoError(t, err)
	// Missing domains drop from numerator and denominator alike, so a
	// uniform 60 stays exactly 60 instead of being diluted toward zero.
	assert.InDelta(t, 60.0, got, 1e-9)
}

func TestCompositeScoreNoDomains(t *testing.T) {
	got, err := CompositeScore(domain.CategoryOverall, map[domain.ScoringDomain]DomainScore{})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCompositeScoreUnknownCategory(t *testing.T) {
	_, err := CompositeScore(domain.RiskCategory("bogus"), map[domain.ScoringDomain]DomainScore{
		domain.DomainClinical: {Score: 50},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestBlendReadmissionWithLACE(t *testing.T) {
	tests := []struct {
		name      string
		composite float64
		lace      int
		want      float64
	}{
		{"zero lace halves the composite", 60, 0, 30},
		{"max lace", 40, 19, 70},
		{"mid lace", 50, 10, 0.5*50 + 0.5*(10.0/19.0*100)},
		{"clamped at 100", 100, 19, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BlendReadmissionWithLACE(tt.composite, tt.lace), 1e-9)
		})
	}
}
