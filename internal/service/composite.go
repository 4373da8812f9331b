package service

import (
	"github.com/postop-risk-server/internal/domain"
)

// DomainWeights is the fixed weight vector one category applies over the
// five scoring domains. Each vector sums to 1; the weighted mean still
// renormalizes by the applied weight sum so a missing domain cannot skew
// the composite.
type DomainWeights struct {
	Demographics float64
	Surgical     float64
	Compliance   float64
	Clinical     float64
	Behavioral   float64
}

// Weight returns the vector entry for a domain.
func (w DomainWeights) Weight(d domain.ScoringDomain) float64 {
	switch d {
	case domain.DomainDemographics:
		return w.Demographics
	case domain.DomainSurgical:
		return w.Surgical
	case domain.DomainCompliance:
		return w.Compliance
	case domain.DomainClinical:
		return w.Clinical
	case domain.DomainBehavioral:
		return w.Behavioral
	default:
		return 0
	}
}

// categoryWeights holds the per-category weight vectors. Distinct per
// category; the infection vector follows the clinically dominant signal
// (vitals and labs carry 40%).
var categoryWeights = map[domain.RiskCategory]DomainWeights{
	domain.CategoryOverall: {
		Demographics: 0.20, Surgical: 0.25, Compliance: 0.20, Clinical: 0.25, Behavioral: 0.10,
	},
	domain.CategoryInfection: {
		Demographics: 0.15, Surgical: 0.25, Compliance: 0.10, Clinical: 0.40, Behavioral: 0.10,
	},
	domain.CategoryReadmission: {
		Demographics: 0.20, Surgical: 0.25, Compliance: 0.25, Clinical: 0.20, Behavioral: 0.10,
	},
	domain.CategoryFall: {
		Demographics: 0.30, Surgical: 0.15, Compliance: 0.10, Clinical: 0.25, Behavioral: 0.20,
	},
	domain.CategoryMentalHealth: {
		Demographics: 0.15, Surgical: 0.15, Compliance: 0.20, Clinical: 0.10, Behavioral: 0.40,
	},
	domain.CategoryMedicationNonAdherence: {
		Demographics: 0.15, Surgical: 0.05, Compliance: 0.45, Clinical: 0.10, Behavioral: 0.25,
	},
}

// CategoryWeights returns the weight vector for a category.
func CategoryWeights(c domain.RiskCategory) (DomainWeights, error) {
	w, ok := categoryWeights[c]
	if !ok {
		return DomainWeights{}, domain.ErrInvalidCategory
	}
	return w, nil
}

// CompositeScore combines the five domain scores into one category's raw
// composite using the weighted-mean rule. Domains absent from the map are
// excluded from numerator and denominator alike.
func CompositeScore(category domain.RiskCategory, scores map[domain.ScoringDomain]DomainScore) (float64, error) {
	weights, err := CategoryWeights(category)
	if err != nil {
		return 0, err
	}
	var num, den float64
	for _, d := range domain.AllDomains {
		ds, ok := scores[d]
		if !ok {
			continue
		}
		w := weights.Weight(d)
		num += w * ds.Score
		den += w
	}
	if den == 0 {
		return 0, nil
	}
	return clampScore(num / den), nil
}

// laceWeight is the share of the readmission composite replaced by the
// normalized LACE index.
const laceWeight = 0.5

// BlendReadmissionWithLACE folds the LACE index into the readmission
// category: 0.5·composite + 0.5·(LACE/19·100).
func BlendReadmissionWithLACE(composite float64, lace int) float64 {
	laceScore := float64(lace) / 19.0 * 100.0
	return clampScore((1-laceWeight)*composite + laceWeight*laceScore)
}
