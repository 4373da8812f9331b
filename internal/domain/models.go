package domain

import (
	"time"
)

// DemographicsRecord holds the patient's static demographic inputs.
// Units: age in years, BMI in kg/m².
type DemographicsRecord struct {
	AgeYears      int           `json:"ageYears"`
	BMI           float64       `json:"bmi"`
	SmokingStatus SmokingStatus `json:"smokingStatus"`
	LivesAlone    bool          `json:"livesAlone"`
}

// SurgicalRecord holds surgery and comorbidity inputs.
// Comorbidities use the Charlson condition identifiers (see ComorbidityWeights).
type SurgicalRecord struct {
	Complexity         SurgeryComplexity `json:"complexity"`
	ASAClass           int               `json:"asaClass"` // 1..5
	DurationMinutes    float64           `json:"durationMinutes"`
	EmergencyAdmission bool              `json:"emergencyAdmission"`
	Comorbidities      []string          `json:"comorbidities"`
}

// ComplianceRecord holds adherence behavior since surgery. Rates are in [0,1].
type ComplianceRecord struct {
	MedicationAdherenceRate         float64  `json:"medicationAdherenceRate"`
	AppointmentAttendanceRate       float64  `json:"appointmentAttendanceRate"`
	ExerciseCompletionRate          float64  `json:"exerciseCompletionRate"`
	WoundCareCompletionRate         *float64 `json:"woundCareCompletionRate,omitempty"`
	ConsecutiveMissedMedicationDays int      `json:"consecutiveMissedMedicationDays"`
}

// ClinicalRecord holds the most recent vitals and labs.
// Units: temperature in Celsius, heart rate in bpm, blood pressure in mmHg,
// oxygen saturation in percent, pain on a 0-10 scale.
// Lab values are optional; absent labs are excluded from the clinical score.
type ClinicalRecord struct {
	TemperatureCelsius float64  `json:"temperatureCelsius"`
	HeartRate          float64  `json:"heartRate"`
	SystolicBP         float64  `json:"systolicBP"`
	OxygenSaturation   float64  `json:"oxygenSaturation"`
	PainLevel          int      `json:"painLevel"`
	WBC                *float64 `json:"wbc,omitempty"` // 10⁹/L
	CRP                *float64 `json:"crp,omitempty"` // mg/L
}

// BehavioralRecord holds app-derived behavioral signals. Rates are in [0,1],
// mood is a 1-10 self-report average, sleep in hours per night.
type BehavioralRecord struct {
	AppEngagementRate  float64  `json:"appEngagementRate"`
	SymptomLoggingRate float64  `json:"symptomLoggingRate"`
	MoodScoreAverage   *float64 `json:"moodScoreAverage,omitempty"`
	SleepHoursAverage  *float64 `json:"sleepHoursAverage,omitempty"`
}

// PatientRiskInput aggregates the five domain records for one assessment.
// LengthOfStayDays and EDVisitsLast6Months feed only the LACE index.
type PatientRiskInput struct {
	PatientID           string             `json:"patientId"`
	Demographics        DemographicsRecord `json:"demographics"`
	Surgical            SurgicalRecord     `json:"surgical"`
	Compliance          ComplianceRecord   `json:"compliance"`
	Clinical            ClinicalRecord     `json:"clinical"`
	Behavioral          BehavioralRecord   `json:"behavioral"`
	LengthOfStayDays    int                `json:"lengthOfStayDays,omitempty"`
	EDVisitsLast6Months int                `json:"edVisitsLast6Months,omitempty"`
}

// RiskContributor is one named, weighted factor inside a domain score.
// Produced fresh per scoring call and never mutated afterward.
type RiskContributor struct {
	Factor                 string  `json:"factor"`
	Weight                 float64 `json:"weight"` // in (0,1]
	RawValue               string  `json:"rawValue"`
	NormalizedContribution float64 `json:"normalizedContribution"` // in [0,100]
	Description            string  `json:"description,omitempty"`
}

// RiskCategoryScore is the reported result for one category.
type RiskCategoryScore struct {
	Score           float64           `json:"score"` // [0,100]
	Tier            RiskTier          `json:"tier"`
	Confidence      float64           `json:"confidence"` // [0.3,0.99]
	TopContributors []RiskContributor `json:"topContributors"`
	Methodology     string            `json:"methodology,omitempty"`
}

// RiskAssessment is one immutable snapshot produced per AssessRisk call.
type RiskAssessment struct {
	AssessmentID             string            `json:"assessmentId"`
	PatientID                string            `json:"patientId"`
	Timestamp                time.Time         `json:"timestamp"`
	Overall                  RiskCategoryScore `json:"overall"`
	Infection                RiskCategoryScore `json:"infection"`
	Readmission              RiskCategoryScore `json:"readmission"`
	Fall                     RiskCategoryScore `json:"fall"`
	MentalHealth             RiskCategoryScore `json:"mentalHealth"`
	MedicationNonAdherence   RiskCategoryScore `json:"medicationNonAdherence"`
	LACEIndexScore           int               `json:"laceIndexScore"`           // [0,19]
	CharlsonComorbidityIndex int               `json:"charlsonComorbidityIndex"` // >=0
	Alerts                   []RiskAlert       `json:"alerts"`
}

// CategoryScore returns the reported score record for a category.
func (a *RiskAssessment) CategoryScore(c RiskCategory) (RiskCategoryScore, error) {
	switch c {
	case CategoryOverall:
		return a.Overall, nil
	case CategoryInfection:
		return a.Infection, nil
	case CategoryReadmission:
		return a.Readmission, nil
	case CategoryFall:
		return a.Fall, nil
	case CategoryMentalHealth:
		return a.MentalHealth, nil
	case CategoryMedicationNonAdherence:
		return a.MedicationNonAdherence, nil
	default:
		return RiskCategoryScore{}, ErrInvalidCategory
	}
}

// SmoothedScores collects the six reported scores as a fixed-field struct.
func (a *RiskAssessment) SmoothedScores() CategoryScores {
	return CategoryScores{
		Overall:                a.Overall.Score,
		Infection:              a.Infection.Score,
		Readmission:            a.Readmission.Score,
		Fall:                   a.Fall.Score,
		MentalHealth:           a.MentalHealth.Score,
		MedicationNonAdherence: a.MedicationNonAdherence.Score,
	}
}

// BayesianPrior is the per-patient, per-category smoothing state.
// It lives only in the state store and is never part of assessment output.
type BayesianPrior struct {
	Mean             float64 `json:"mean"`
	Variance         float64 `json:"variance"`
	ObservationCount int     `json:"observationCount"`
}

// RiskTrendPoint is a timestamped snapshot of the six smoothed scores,
// appended to a per-patient FIFO history bounded at MaxTrendHistory.
type RiskTrendPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	Scores    CategoryScores `json:"scores"`
}

// MaxTrendHistory bounds the per-patient trend history; the oldest point is
// evicted first once the bound is reached.
const MaxTrendHistory = 365

// AlertThreshold configures one metric's alert bands. Thresholds are looked
// up by Metric; at most one alert fires per threshold per evaluation.
type AlertThreshold struct {
	Category      RiskCategory `json:"category"`
	Metric        AlertMetric  `json:"metric"`
	WarningLevel  float64      `json:"warningLevel"`
	UrgentLevel   float64      `json:"urgentLevel"`
	CriticalLevel float64      `json:"criticalLevel"`
	Enabled       bool         `json:"enabled"`
}

// RiskAlert is a threshold crossing raised during an assessment.
type RiskAlert struct {
	ID               string        `json:"id"`
	PatientID        string        `json:"patientId"`
	Severity         AlertSeverity `json:"severity"`
	Category         RiskCategory  `json:"category"`
	Message          string        `json:"message"`
	TriggeringFactor AlertMetric   `json:"triggeringFactor"`
	CurrentValue     float64       `json:"currentValue"`
	Threshold        float64       `json:"threshold"`
	Timestamp        time.Time     `json:"timestamp"`
	Acknowledged     bool          `json:"acknowledged"`
}

// TrendAnalysis is the result of regressing a patient's score history.
type TrendAnalysis struct {
	PatientID             string         `json:"patientId"`
	Category              RiskCategory   `json:"category"`
	Direction             TrendDirection `json:"direction"`
	Slope                 float64        `json:"slope"` // points per day
	Intercept             float64        `json:"intercept"`
	RSquared              float64        `json:"rSquared"`
	SignificantChange     bool           `json:"significantChange"`
	PredictedScoreIn7Days float64        `json:"predictedScoreIn7Days"`
	PointsAnalyzed        int            `json:"pointsAnalyzed"`
}

// PopulationComparison locates a patient score within a comparison cohort.
type PopulationComparison struct {
	Category       RiskCategory `json:"category"`
	PatientScore   float64      `json:"patientScore"`
	PopulationMean float64      `json:"populationMean"`
	PopulationStd  float64      `json:"populationStdDev"`
	ZScore         float64      `json:"zScore"`
	Percentile     float64      `json:"percentile"` // [0,100]
	CohortSize     int          `json:"cohortSize"`
}

// CohortFilter narrows the baseline population for subgroup comparison.
// Zero-value fields match everything.
type CohortFilter struct {
	AgeGroup          AgeGroup          `json:"ageGroup,omitempty"`
	SurgeryComplexity SurgeryComplexity `json:"surgeryComplexity,omitempty"`
}

// Matches reports whether the profile satisfies the filter.
func (f CohortFilter) Matches(p *BaselinePatientProfile) bool {
	if f.AgeGroup != "" && p.AgeGroup != f.AgeGroup {
		return false
	}
	if f.SurgeryComplexity != "" && p.SurgeryComplexity != f.SurgeryComplexity {
		return false
	}
	return true
}

// BaselinePatientProfile is one synthetic cohort member, generated once at
// engine construction and read-only afterward.
type BaselinePatientProfile struct {
	ProfileID         string            `json:"profileId"`
	AgeYears          int               `json:"ageYears"`
	AgeGroup          AgeGroup          `json:"ageGroup"`
	BMI               float64           `json:"bmi"`
	ComorbidityCount  int               `json:"comorbidityCount"`
	ASAClass          int               `json:"asaClass"`
	SurgeryComplexity SurgeryComplexity `json:"surgeryComplexity"`
	RiskScores        CategoryScores    `json:"riskScores"`
	Outcome           Outcome           `json:"outcome"`
}

// CategoryStats is the baseline mean and standard deviation for one category.
type CategoryStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// PopulationStats holds baseline statistics per category.
type PopulationStats struct {
	Overall                CategoryStats `json:"overall"`
	Infection              CategoryStats `json:"infection"`
	Readmission            CategoryStats `json:"readmission"`
	Fall                   CategoryStats `json:"fall"`
	MentalHealth           CategoryStats `json:"mentalHealth"`
	MedicationNonAdherence CategoryStats `json:"medicationNonAdherence"`
}

// Stats returns the statistics for a category.
func (ps PopulationStats) Stats(c RiskCategory) (CategoryStats, error) {
	switch c {
	case CategoryOverall:
		return ps.Overall, nil
	case CategoryInfection:
		return ps.Infection, nil
	case CategoryReadmission:
		return ps.Readmission, nil
	case CategoryFall:
		return ps.Fall, nil
	case CategoryMentalHealth:
		return ps.MentalHealth, nil
	case CategoryMedicationNonAdherence:
		return ps.MedicationNonAdherence, nil
	default:
		return CategoryStats{}, ErrInvalidCategory
	}
}

// Set assigns the statistics for a category.
func (ps *PopulationStats) Set(c RiskCategory, s CategoryStats) error {
	switch c {
	case CategoryOverall:
		ps.Overall = s
	case CategoryInfection:
		ps.Infection = s
	case CategoryReadmission:
		ps.Readmission = s
	case CategoryFall:
		ps.Fall = s
	case CategoryMentalHealth:
		ps.MentalHealth = s
	case CategoryMedicationNonAdherence:
		ps.MedicationNonAdherence = s
	default:
		return ErrInvalidCategory
	}
	return nil
}
