// Package domain contains the core business entities and types for
// post-operative risk assessment: category scores, composite assessments,
// Bayesian smoothing state, trend analysis and threshold alerts.
package domain

import (
	"errors"
	"fmt"
)

// RiskCategory identifies one of the six assessed risk dimensions.
type RiskCategory string

const (
	CategoryOverall                RiskCategory = "overall"
	CategoryInfection              RiskCategory = "infection"
	CategoryReadmission            RiskCategory = "readmission"
	CategoryFall                   RiskCategory = "fall"
	CategoryMentalHealth           RiskCategory = "mentalHealth"
	CategoryMedicationNonAdherence RiskCategory = "medicationNonAdherence"
)

// AllCategories lists every risk category in a stable order.
// Iteration over this slice replaces dynamic string-keyed lookups so the
// compiler can check exhaustiveness at each use site.
var AllCategories = []RiskCategory{
	CategoryOverall,
	CategoryInfection,
	CategoryReadmission,
	CategoryFall,
	CategoryMentalHealth,
	CategoryMedicationNonAdherence,
}

// RiskTier is the coarse bucket derived from a continuous 0-100 score.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierModerate RiskTier = "moderate"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// TierForScore maps a 0-100 score onto its risk tier.
// Band boundaries are fixed at 25/50/75.
func TierForScore(score float64) RiskTier {
	switch {
	case score < 25:
		return TierLow
	case score < 50:
		return TierModerate
	case score < 75:
		return TierHigh
	default:
		return TierCritical
	}
}

// ScoringDomain identifies one of the five heterogeneous input domains.
type ScoringDomain string

const (
	DomainDemographics ScoringDomain = "demographics"
	DomainSurgical     ScoringDomain = "surgical"
	DomainCompliance   ScoringDomain = "compliance"
	DomainClinical     ScoringDomain = "clinical"
	DomainBehavioral   ScoringDomain = "behavioral"
)

// AllDomains lists the scoring domains in weight-vector order.
var AllDomains = []ScoringDomain{
	DomainDemographics,
	DomainSurgical,
	DomainCompliance,
	DomainClinical,
	DomainBehavioral,
}

// AlertSeverity ranks raised alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityUrgent   AlertSeverity = "urgent"
	SeverityCritical AlertSeverity = "critical"
)

// AlertMetric identifies a value an alert threshold is evaluated against.
// Kept as an enumerated type rather than free-form strings so threshold
// configuration cannot reference a metric the engine does not produce.
type AlertMetric string

const (
	MetricOverallRiskScore         AlertMetric = "overallRiskScore"
	MetricInfectionRiskScore       AlertMetric = "infectionRiskScore"
	MetricReadmissionRiskScore     AlertMetric = "readmissionRiskScore"
	MetricFallRiskScore            AlertMetric = "fallRiskScore"
	MetricMentalHealthRiskScore    AlertMetric = "mentalHealthRiskScore"
	MetricMedNonAdherenceRiskScore AlertMetric = "medicationNonAdherenceRiskScore"
	MetricTemperature              AlertMetric = "temperature"
	MetricHeartRate                AlertMetric = "heartRate"
	MetricOxygenSaturation         AlertMetric = "oxygenSaturation"
	MetricConsecutiveMissedMedDays AlertMetric = "consecutiveMissedMedicationDays"
	MetricPainLevel                AlertMetric = "painLevel"
)

// Inverted reports whether lower values of the metric are worse.
// Oxygen saturation is the only inverted metric: a reading at or below a
// threshold level fires, instead of at or above.
func (m AlertMetric) Inverted() bool {
	return m == MetricOxygenSaturation
}

// TrendDirection classifies the slope of a patient's score series.
type TrendDirection string

const (
	TrendStable           TrendDirection = "stable"
	TrendImproving        TrendDirection = "improving"
	TrendWorsening        TrendDirection = "worsening"
	TrendRapidlyWorsening TrendDirection = "rapidly_worsening"
)

// AgeGroup buckets patients for subgroup comparison and baseline generation.
type AgeGroup string

const (
	AgeGroupUnder50 AgeGroup = "under_50"
	AgeGroup50To64  AgeGroup = "50_to_64"
	AgeGroup65To79  AgeGroup = "65_to_79"
	AgeGroup80Plus  AgeGroup = "80_plus"
)

// AllAgeGroups lists the age groups in ascending order.
var AllAgeGroups = []AgeGroup{AgeGroupUnder50, AgeGroup50To64, AgeGroup65To79, AgeGroup80Plus}

// AgeGroupForAge buckets an age in years into its group.
func AgeGroupForAge(years int) AgeGroup {
	switch {
	case years < 50:
		return AgeGroupUnder50
	case years < 65:
		return AgeGroup50To64
	case years < 80:
		return AgeGroup65To79
	default:
		return AgeGroup80Plus
	}
}

// SurgeryComplexity grades the surgical procedure.
type SurgeryComplexity string

const (
	ComplexityMinor    SurgeryComplexity = "minor"
	ComplexityModerate SurgeryComplexity = "moderate"
	ComplexityMajor    SurgeryComplexity = "major"
	ComplexityComplex  SurgeryComplexity = "complex"
)

// AllComplexities lists surgery complexities in ascending order of severity.
var AllComplexities = []SurgeryComplexity{ComplexityMinor, ComplexityModerate, ComplexityMajor, ComplexityComplex}

// SmokingStatus captures the patient's smoking history.
type SmokingStatus string

const (
	SmokingNever   SmokingStatus = "never"
	SmokingFormer  SmokingStatus = "former"
	SmokingCurrent SmokingStatus = "current"
)

// Outcome labels a baseline profile's recovery outcome.
type Outcome string

const (
	OutcomeGood       Outcome = "good"
	OutcomeModerate   Outcome = "moderate"
	OutcomePoor       Outcome = "poor"
	OutcomeReadmitted Outcome = "readmitted"
)

// Sentinel errors for configuration-style lookups.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidCategory = errors.New("invalid risk category")
	ErrInvalidMetric   = errors.New("invalid alert metric")
)

// IsValid reports whether the category is one of the six assessed dimensions.
func (c RiskCategory) IsValid() bool {
	switch c {
	case CategoryOverall, CategoryInfection, CategoryReadmission,
		CategoryFall, CategoryMentalHealth, CategoryMedicationNonAdherence:
		return true
	default:
		return false
	}
}

func (c RiskCategory) String() string { return string(c) }

// IsValid reports whether the tier is a known bucket.
func (t RiskTier) IsValid() bool {
	switch t {
	case TierLow, TierModerate, TierHigh, TierCritical:
		return true
	default:
		return false
	}
}

func (t RiskTier) String() string { return string(t) }

// IsValid reports whether the severity is one of the four ranked levels.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityUrgent, SeverityCritical:
		return true
	default:
		return false
	}
}

func (s AlertSeverity) String() string { return string(s) }

// Rank orders severities for comparison; higher is more severe.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityUrgent:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether the metric is one the engine produces.
func (m AlertMetric) IsValid() bool {
	switch m {
	case MetricOverallRiskScore, MetricInfectionRiskScore, MetricReadmissionRiskScore,
		MetricFallRiskScore, MetricMentalHealthRiskScore, MetricMedNonAdherenceRiskScore,
		MetricTemperature, MetricHeartRate, MetricOxygenSaturation,
		MetricConsecutiveMissedMedDays, MetricPainLevel:
		return true
	default:
		return false
	}
}

func (m AlertMetric) String() string { return string(m) }

// IsValid reports whether the direction is a known trend classification.
func (d TrendDirection) IsValid() bool {
	switch d {
	case TrendStable, TrendImproving, TrendWorsening, TrendRapidlyWorsening:
		return true
	default:
		return false
	}
}

func (d TrendDirection) String() string { return string(d) }

// IsValid reports whether the age group is a known bucket.
func (g AgeGroup) IsValid() bool {
	switch g {
	case AgeGroupUnder50, AgeGroup50To64, AgeGroup65To79, AgeGroup80Plus:
		return true
	default:
		return false
	}
}

func (g AgeGroup) String() string { return string(g) }

// IsValid reports whether the complexity is a known grade.
func (sc SurgeryComplexity) IsValid() bool {
	switch sc {
	case ComplexityMinor, ComplexityModerate, ComplexityMajor, ComplexityComplex:
		return true
	default:
		return false
	}
}

func (sc SurgeryComplexity) String() string { return string(sc) }

// IsValid reports whether the smoking status is a known value.
func (ss SmokingStatus) IsValid() bool {
	switch ss {
	case SmokingNever, SmokingFormer, SmokingCurrent:
		return true
	default:
		return false
	}
}

// IsValid reports whether the outcome label is known.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeGood, OutcomeModerate, OutcomePoor, OutcomeReadmitted:
		return true
	default:
		return false
	}
}

// CategoryScores carries one value per risk category with fixed fields,
// replacing the string-keyed score maps of earlier designs.
type CategoryScores struct {
	Overall                float64 `json:"overall"`
	Infection              float64 `json:"infection"`
	Readmission            float64 `json:"readmission"`
	Fall                   float64 `json:"fall"`
	MentalHealth           float64 `json:"mentalHealth"`
	MedicationNonAdherence float64 `json:"medicationNonAdherence"`
}

// Score returns the value for a category.
func (cs CategoryScores) Score(c RiskCategory) (float64, error) {
	switch c {
	case CategoryOverall:
		return cs.Overall, nil
	case CategoryInfection:
		return cs.Infection, nil
	case CategoryReadmission:
		return cs.Readmission, nil
	case CategoryFall:
		return cs.Fall, nil
	case CategoryMentalHealth:
		return cs.MentalHealth, nil
	case CategoryMedicationNonAdherence:
		return cs.MedicationNonAdherence, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidCategory, c)
	}
}

// Set assigns the value for a category.
func (cs *CategoryScores) Set(c RiskCategory, v float64) error {
	switch c {
	case CategoryOverall:
		cs.Overall = v
	case CategoryInfection:
		cs.Infection = v
	case CategoryReadmission:
		cs.Readmission = v
	case CategoryFall:
		cs.Fall = v
	case CategoryMentalHealth:
		cs.MentalHealth = v
	case CategoryMedicationNonAdherence:
		cs.MedicationNonAdherence = v
	default:
		return fmt.Errorf("%w: %s", ErrInvalidCategory, c)
	}
	return nil
}
