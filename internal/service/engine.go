package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
)

// RiskEngine computes post-operative risk assessments. It owns no I/O:
// all mutable state lives behind the injected StateStore, so independent
// engine instances (per tenant, per test) never interfere.
//
// Writes for a single patient are serialized through a per-patient lock;
// assessments for different patients proceed fully in parallel.
type RiskEngine struct {
	logger     *logrus.Logger
	store      domain.StateStore
	smoother   *Smoother
	alerts     *AlertGenerator
	population *PopulationAnalyzer
	trends     *TrendAnalyzer

	patientLocks sync.Map // patientID -> *sync.Mutex
	now          func() time.Time
}

// NewRiskEngine constructs an engine. The baseline cohort is generated
// here, deterministically from the configured seed, and is read-only for
// the engine's lifetime.
func NewRiskEngine(logger *logrus.Logger, store domain.StateStore, cfg domain.EngineConfig, thresholds []domain.AlertThreshold) *RiskEngine {
	if cfg.BaselineCohortSize <= 0 {
		cfg.BaselineCohortSize = DefaultBaselineCohortSize
	}
	if cfg.BaselineSeed == 0 {
		cfg.BaselineSeed = DefaultBaselineSeed
	}
	if cfg.ObservationVariance <= 0 {
		cfg.ObservationVariance = DefaultObservationVariance
	}
	if cfg.MinSubgroupSize <= 0 {
		cfg.MinSubgroupSize = DefaultMinSubgroupSize
	}

	profiles := GenerateBaselineCohort(cfg.BaselineSeed, cfg.BaselineCohortSize)

	engine := &RiskEngine{
		logger:     logger,
		store:      store,
		smoother:   NewSmoother(cfg.ObservationVariance),
		alerts:     NewAlertGenerator(logger, thresholds),
		population: NewPopulationAnalyzer(logger, profiles, cfg.MinSubgroupSize),
		now:        time.Now,
	}
	engine.trends = NewTrendAnalyzer(logger, store)

	logger.WithFields(logrus.Fields{
		"baseline_profiles": len(profiles),
		"thresholds":        len(engine.alerts.Thresholds()),
	}).Info("Risk engine initialized")

	return engine
}

func (e *RiskEngine) lockPatient(patientID string) func() {
	v, _ := e.patientLocks.LoadOrStore(patientID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AssessRisk is the primary entry point. It scores the five input domains,
// combines them per category, folds the LACE index into readmission,
// smooths each category against the patient's Bayesian prior, evaluates
// alert thresholds, and records a trend point. The returned assessment is
// an immutable snapshot; only the patient's prior and history mutate.
func (e *RiskEngine) AssessRisk(ctx context.Context, input *domain.PatientRiskInput) (*domain.RiskAssessment, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment input: %w", err)
	}

	unlock := e.lockPatient(input.PatientID)
	defer unlock()

	now := e.now()
	domainScores := ScoreAllDomains(input)

	charlson := ComputeCharlsonIndex(input.Surgical.Comorbidities, input.Demographics.AgeYears)
	lace := ComputeLACEIndex(input.LengthOfStayDays, input.Surgical.EmergencyAdmission, charlson, input.EDVisitsLast6Months)

	assessment := &domain.RiskAssessment{
		AssessmentID:             uuid.New().String(),
		PatientID:                input.PatientID,
		Timestamp:                now,
		LACEIndexScore:           lace,
		CharlsonComorbidityIndex: charlson,
	}

	missing := missingOptionalFields(input)

	// Updated priors are staged and committed in one store write below,
	// so a failure anywhere in the loop leaves no category advanced.
	updatedPriors := make(map[domain.RiskCategory]domain.BayesianPrior, len(domain.AllCategories))

	for _, cat := range domain.AllCategories {
		raw, err := CompositeScore(cat, domainScores)
		if err != nil {
			return nil, fmt.Errorf("computing %s composite: %w", cat, err)
		}
		if cat == domain.CategoryReadmission {
			raw = BlendReadmissionWithLACE(raw, lace)
		}

		smoothed, updated, err := e.smoothCategory(ctx, input.PatientID, cat, raw)
		if err != nil {
			return nil, err
		}
		updatedPriors[cat] = updated

		score := domain.RiskCategoryScore{
			Score:           smoothed,
			Tier:            domain.TierForScore(smoothed),
			Confidence:      scoreConfidence(updated.ObservationCount, missing),
			TopContributors: topContributors(cat, domainScores, 5),
			Methodology:     methodologyFor(cat),
		}
		if err := setCategoryScore(assessment, cat, score); err != nil {
			return nil, err
		}
	}

	readings := MetricReadings{
		Scores:                          assessment.SmoothedScores(),
		Temperature:                     input.Clinical.TemperatureCelsius,
		HeartRate:                       input.Clinical.HeartRate,
		OxygenSaturation:                input.Clinical.OxygenSaturation,
		ConsecutiveMissedMedicationDays: input.Compliance.ConsecutiveMissedMedicationDays,
		PainLevel:                       input.Clinical.PainLevel,
	}
	assessment.Alerts = e.alerts.Evaluate(input.PatientID, readings, now)

	point := domain.RiskTrendPoint{Timestamp: now, Scores: assessment.SmoothedScores()}
	if err := e.store.RecordAssessment(ctx, input.PatientID, updatedPriors, point); err != nil {
		return nil, fmt.Errorf("recording assessment: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"patient_id":    input.PatientID,
		"assessment_id": assessment.AssessmentID,
		"overall_score": assessment.Overall.Score,
		"overall_tier":  assessment.Overall.Tier,
		"lace":          lace,
		"charlson":      charlson,
		"alerts":        len(assessment.Alerts),
	}).Info("Risk assessment completed")

	return assessment, nil
}

// smoothCategory folds the raw composite into the patient's prior for the
// category, creating the prior from population statistics on first contact.
// The updated prior is returned unsaved; the caller commits all categories
// together through StateStore.RecordAssessment.
func (e *RiskEngine) smoothCategory(ctx context.Context, patientID string, cat domain.RiskCategory, raw float64) (float64, domain.BayesianPrior, error) {
	prior, ok, err := e.store.Prior(ctx, patientID, cat)
	if err != nil {
		return 0, domain.BayesianPrior{}, fmt.Errorf("loading prior for %s: %w", cat, err)
	}
	if !ok {
		stats, err := e.population.Stats().Stats(cat)
		if err != nil {
			return 0, domain.BayesianPrior{}, err
		}
		prior = e.smoother.InitialPrior(stats)
	}

	updated, reported := e.smoother.Observe(prior, raw)
	return reported, updated, nil
}

// scoreConfidence grows with accumulated observations and shrinks with
// missing optional inputs, clamped to [0.3, 0.99].
func scoreConfidence(observationCount, missingOptional int) float64 {
	obs := observationCount
	if obs > 8 {
		obs = 8
	}
	conf := 0.45 + 0.06*float64(obs) - 0.05*float64(missingOptional)
	if conf < 0.3 {
		return 0.3
	}
	if conf > 0.99 {
		return 0.99
	}
	return conf
}

func missingOptionalFields(in *domain.PatientRiskInput) int {
	missing := 0
	if in.Compliance.WoundCareCompletionRate == nil {
		missing++
	}
	if in.Clinical.WBC == nil {
		missing++
	}
	if in.Clinical.CRP == nil {
		missing++
	}
	if in.Behavioral.MoodScoreAverage == nil {
		missing++
	}
	if in.Behavioral.SleepHoursAverage == nil {
		missing++
	}
	return missing
}

// topContributors ranks every domain contributor by its effective pull on
// the category composite (domain weight × factor weight × normalized value)
// and returns the strongest n.
func topContributors(cat domain.RiskCategory, scores map[domain.ScoringDomain]DomainScore, n int) []domain.RiskContributor {
	weights, err := CategoryWeights(cat)
	if err != nil {
		return nil
	}

	type ranked struct {
		contributor domain.RiskContributor
		pull        float64
	}
	var all []ranked
	for _, d := range domain.AllDomains {
		ds, ok := scores[d]
		if !ok {
			continue
		}
		dw := weights.Weight(d)
		for _, c := range ds.Contributors {
			all = append(all, ranked{contributor: c, pull: dw * c.Weight * c.NormalizedContribution})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].pull > all[j].pull })

	if n > len(all) {
		n = len(all)
	}
	out := make([]domain.RiskContributor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, all[i].contributor)
	}
	return out
}

func methodologyFor(cat domain.RiskCategory) string {
	if cat == domain.CategoryReadmission {
		return "weighted domain composite blended 50/50 with normalized LACE index, Bayesian-smoothed"
	}
	return "weighted domain composite, Bayesian-smoothed against population prior"
}

func setCategoryScore(a *domain.RiskAssessment, cat domain.RiskCategory, s domain.RiskCategoryScore) error {
	switch cat {
	case domain.CategoryOverall:
		a.Overall = s
	case domain.CategoryInfection:
		a.Infection = s
	case domain.CategoryReadmission:
		a.Readmission = s
	case domain.CategoryFall:
		a.Fall = s
	case domain.CategoryMentalHealth:
		a.MentalHealth = s
	case domain.CategoryMedicationNonAdherence:
		a.MedicationNonAdherence = s
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCategory, cat)
	}
	return nil
}

// AnalyzeTrend regresses the patient's score history for one category.
func (e *RiskEngine) AnalyzeTrend(ctx context.Context, patientID string, category domain.RiskCategory, daysBack int) (*domain.TrendAnalysis, error) {
	return e.trends.AnalyzeTrend(ctx, patientID, category, daysBack)
}

// CompareToPopulation locates a score within the full baseline cohort.
func (e *RiskEngine) CompareToPopulation(score float64, category domain.RiskCategory) (*domain.PopulationComparison, error) {
	return e.population.CompareToPopulation(score, category)
}

// CompareToSubgroup locates a score within a filtered cohort.
func (e *RiskEngine) CompareToSubgroup(score float64, category domain.RiskCategory, filter domain.CohortFilter) (*domain.PopulationComparison, error) {
	return e.population.CompareToSubgroup(score, category, filter)
}

// AlertThresholds returns the configured thresholds.
func (e *RiskEngine) AlertThresholds() []domain.AlertThreshold {
	return e.alerts.Thresholds()
}

// AddAlertThreshold registers a threshold for an unconfigured metric.
func (e *RiskEngine) AddAlertThreshold(t domain.AlertThreshold) error {
	return e.alerts.AddThreshold(t)
}

// UpdateAlertThreshold replaces an existing metric's threshold.
func (e *RiskEngine) UpdateAlertThreshold(t domain.AlertThreshold) error {
	return e.alerts.UpdateThreshold(t)
}

// RemoveAlertThreshold deletes a metric's threshold, reporting whether one
// was configured.
func (e *RiskEngine) RemoveAlertThreshold(metric domain.AlertMetric) bool {
	return e.alerts.RemoveThreshold(metric)
}

// BaselineProfiles returns the read-only synthetic cohort.
func (e *RiskEngine) BaselineProfiles() []domain.BaselinePatientProfile {
	return e.population.Profiles()
}

// FilteredProfiles returns the cohort members matching the filter.
func (e *RiskEngine) FilteredProfiles(filter domain.CohortFilter) []domain.BaselinePatientProfile {
	return e.population.FilteredProfiles(filter)
}

// PopulationStats returns the baseline statistics per category.
func (e *RiskEngine) PopulationStats() domain.PopulationStats {
	return e.population.Stats()
}

// ComputeCharlsonIndex exposes the Charlson calculation for callers that
// need it outside a full assessment.
func (e *RiskEngine) ComputeCharlsonIndex(comorbidities []string, ageYears int) int {
	return ComputeCharlsonIndex(comorbidities, ageYears)
}

// ComputeLACEIndex exposes the LACE calculation for callers that need it
// outside a full assessment.
func (e *RiskEngine) ComputeLACEIndex(lengthOfStayDays int, emergencyAdmission bool, charlson, edVisits int) int {
	return ComputeLACEIndex(lengthOfStayDays, emergencyAdmission, charlson, edVisits)
}

// ResetPriors clears a patient's smoothing state, e.g. after a new
// surgical episode. Trend history survives.
func (e *RiskEngine) ResetPriors(ctx context.Context, patientID string) error {
	unlock := e.lockPatient(patientID)
	defer unlock()
	return e.store.ResetPriors(ctx, patientID)
}

// ClearPatientData removes everything held for a patient.
func (e *RiskEngine) ClearPatientData(ctx context.Context, patientID string) error {
	unlock := e.lockPatient(patientID)
	defer unlock()
	return e.store.ClearPatient(ctx, patientID)
}

// AssessmentCount reports how many assessments have been recorded for a
// patient.
func (e *RiskEngine) AssessmentCount(ctx context.Context, patientID string) (int, error) {
	return e.store.AssessmentCount(ctx, patientID)
}
