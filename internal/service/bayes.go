package service

import (
	"github.com/postop-risk-server/internal/domain"
)

// DefaultObservationVariance is the fixed measurement-noise assumption
// σ_obs² used by the conjugate normal-normal update.
const DefaultObservationVariance = 100.0

// priorWeightFloor guarantees the population prior never fully vanishes
// from the reported score, however many observations accumulate.
const priorWeightFloor = 0.1

// Smoother blends raw composite scores with per-patient Bayesian state.
// It is pure math over a prior; persistence of the prior belongs to the
// state store.
type Smoother struct {
	obsVariance float64
}

// NewSmoother creates a smoother. A non-positive obsVariance selects the
// default measurement-noise assumption.
func NewSmoother(obsVariance float64) *Smoother {
	if obsVariance <= 0 {
		obsVariance = DefaultObservationVariance
	}
	return &Smoother{obsVariance: obsVariance}
}

// InitialPrior seeds a patient's first prior for a category from the
// baseline population: mean = population mean, variance = stdDev², and one
// weak pseudo-observation.
func (s *Smoother) InitialPrior(stats domain.CategoryStats) domain.BayesianPrior {
	return domain.BayesianPrior{
		Mean:             stats.Mean,
		Variance:         stats.StdDev * stats.StdDev,
		ObservationCount: 1,
	}
}

// Observe folds the raw observation x into the prior. It returns the
// posterior to store and the reported smoothed score.
//
// The posterior is the precision-weighted conjugate update. The reported
// score is a second blend, priorWeight·posteriorMean + (1−priorWeight)·x
// with priorWeight = max(0.1, 1/(observationCount+1)): early assessments
// lean on the population prior, later ones converge to the raw trajectory.
func (s *Smoother) Observe(prior domain.BayesianPrior, x float64) (domain.BayesianPrior, float64) {
	priorVariance := prior.Variance
	if priorVariance <= 0 {
		// A degenerate prior would make the precision blow up; treat it
		// as no more certain than a single observation.
		priorVariance = s.obsVariance
	}

	posteriorPrecision := 1/priorVariance + 1/s.obsVariance
	posteriorMean := (prior.Mean/priorVariance + x/s.obsVariance) / posteriorPrecision
	posteriorVariance := 1 / posteriorPrecision

	updated := domain.BayesianPrior{
		Mean:             posteriorMean,
		Variance:         posteriorVariance,
		ObservationCount: prior.ObservationCount + 1,
	}

	priorWeight := 1 / float64(prior.ObservationCount+1)
	if priorWeight < priorWeightFloor {
		priorWeight = priorWeightFloor
	}
	reported := clampScore(priorWeight*posteriorMean + (1-priorWeight)*x)

	return updated, reported
}
