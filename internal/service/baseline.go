package service

import (
	"fmt"
	"math"

	"github.com/postop-risk-server/internal/domain"
)

// Synthetic baseline cohort generation. The cohort is the engine's sole
// source of population statistics, so it must be reproducible: a fixed
// linear-congruential generator with a constant default seed drives every
// draw, in a fixed order per profile.

// DefaultBaselineSeed seeds the cohort generator when no seed is configured.
const DefaultBaselineSeed uint64 = 987654321

// DefaultBaselineCohortSize is the default number of synthetic profiles.
const DefaultBaselineCohortSize = 250

// lcg is a 32-bit linear-congruential generator (Numerical Recipes
// constants). Good enough for aggregate cohort statistics and fully
// deterministic across platforms.
type lcg struct {
	state uint64
}

func newLCG(seed uint64) *lcg {
	return &lcg{state: seed}
}

func (r *lcg) next() uint32 {
	r.state = (1664525*r.state + 1013904223) % (1 << 32)
	return uint32(r.state)
}

// Float64 returns a draw in [0,1).
func (r *lcg) Float64() float64 {
	return float64(r.next()) / float64(uint64(1)<<32)
}

// Intn returns a draw in [0,n).
func (r *lcg) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float64() * float64(n))
}

// Range returns a draw in [lo,hi).
func (r *lcg) Range(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Normal returns a draw from N(mean, sd²) via the Box-Muller transform.
// Consumes exactly two uniform draws.
func (r *lcg) Normal(mean, sd float64) float64 {
	u1 := r.Float64()
	u2 := r.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + sd*z
}

// baselineconditionPool is the comorbidity pool sampled during generation.
var baselineConditionPool = []string{
	"myocardial_infarction",
	"congestive_heart_failure",
	"copd",
	"diabetes",
	"diabetes_with_complications",
	"renal_disease",
	"cerebrovascular_disease",
	"malignancy",
}

// GenerateBaselineCohort produces size deterministic synthetic profiles.
// The per-profile draw order is fixed; changing it changes the cohort.
func GenerateBaselineCohort(seed uint64, size int) []domain.BaselinePatientProfile {
	if size <= 0 {
		size = DefaultBaselineCohortSize
	}
	if seed == 0 {
		seed = DefaultBaselineSeed
	}
	rng := newLCG(seed)

	profiles := make([]domain.BaselinePatientProfile, 0, size)
	for i := 0; i < size; i++ {
		profiles = append(profiles, generateProfile(rng, i))
	}
	return profiles
}

func generateProfile(rng *lcg, index int) domain.BaselinePatientProfile {
	// Draw order: age group, age, BMI, comorbidities, ASA, complexity,
	// then the synthetic input fields, then per-category jitter, then outcome.
	group := domain.AllAgeGroups[rng.Intn(len(domain.AllAgeGroups))]
	age := ageWithinGroup(rng, group)

	bmi := rng.Normal(27, 5)
	if bmi < 16 {
		bmi = 16
	}
	if bmi > 55 {
		bmi = 55
	}

	// Comorbidity presence probability grows linearly with age.
	comorbidityProb := 0.02 + 0.005*float64(age)
	if comorbidityProb > 0.45 {
		comorbidityProb = 0.45
	}
	var comorbidities []string
	for _, cond := range baselineConditionPool {
		if rng.Float64() < comorbidityProb {
			comorbidities = append(comorbidities, cond)
		}
	}

	asa := asaForComorbidityCount(rng, len(comorbidities))
	complexity := domain.AllComplexities[rng.Intn(len(domain.AllComplexities))]

	input := synthesizeInput(rng, age, bmi, asa, complexity, comorbidities)

	scores := ScoreAllDomains(&input)
	charlson := ComputeCharlsonIndex(comorbidities, age)
	lace := ComputeLACEIndex(input.LengthOfStayDays, input.Surgical.EmergencyAdmission, charlson, input.EDVisitsLast6Months)

	var riskScores domain.CategoryScores
	for _, cat := range domain.AllCategories {
		composite, _ := CompositeScore(cat, scores)
		if cat == domain.CategoryReadmission {
			composite = BlendReadmissionWithLACE(composite, lace)
		}
		// Bounded jitter keeps the cohort from collapsing onto the
		// deterministic scoring surface.
		jittered := clampScore(composite + rng.Range(-5, 5))
		_ = riskScores.Set(cat, jittered)
	}

	return domain.BaselinePatientProfile{
		ProfileID:         fmt.Sprintf("baseline-%04d", index+1),
		AgeYears:          age,
		AgeGroup:          group,
		BMI:               bmi,
		ComorbidityCount:  len(comorbidities),
		ASAClass:          asa,
		SurgeryComplexity: complexity,
		RiskScores:        riskScores,
		Outcome:           sampleOutcome(rng, riskScores.Overall),
	}
}

func ageWithinGroup(rng *lcg, group domain.AgeGroup) int {
	switch group {
	case domain.AgeGroupUnder50:
		return 18 + rng.Intn(32) // 18..49
	case domain.AgeGroup50To64:
		return 50 + rng.Intn(15) // 50..64
	case domain.AgeGroup65To79:
		return 65 + rng.Intn(15) // 65..79
	default:
		return 80 + rng.Intn(16) // 80..95
	}
}

func asaForComorbidityCount(rng *lcg, count int) int {
	switch {
	case count == 0:
		return 1 + rng.Intn(2) // I or II
	case count <= 2:
		return 2 + rng.Intn(2) // II or III
	default:
		return 3 + rng.Intn(2) // III or IV
	}
}

func synthesizeInput(rng *lcg, age int, bmi float64, asa int, complexity domain.SurgeryComplexity, comorbidities []string) domain.PatientRiskInput {
	smokeDraw := rng.Float64()
	smoking := domain.SmokingNever
	switch {
	case smokeDraw < 0.15:
		smoking = domain.SmokingCurrent
	case smokeDraw < 0.45:
		smoking = domain.SmokingFormer
	}

	livesAlone := rng.Float64() < 0.15+0.003*float64(age)
	emergency := rng.Float64() < 0.20

	duration := surgeryDurationMinutes(rng, complexity)

	mood := rng.Range(4, 9)
	sleep := rng.Range(5, 9)

	return domain.PatientRiskInput{
		PatientID: "baseline",
		Demographics: domain.DemographicsRecord{
			AgeYears:      age,
			BMI:           bmi,
			SmokingStatus: smoking,
			LivesAlone:    livesAlone,
		},
		Surgical: domain.SurgicalRecord{
			Complexity:         complexity,
			ASAClass:           asa,
			DurationMinutes:    duration,
			EmergencyAdmission: emergency,
			Comorbidities:      comorbidities,
		},
		Compliance: domain.ComplianceRecord{
			MedicationAdherenceRate:         rng.Range(0.6, 1.0),
			AppointmentAttendanceRate:       rng.Range(0.6, 1.0),
			ExerciseCompletionRate:          rng.Range(0.4, 1.0),
			ConsecutiveMissedMedicationDays: rng.Intn(3),
		},
		Clinical: domain.ClinicalRecord{
			TemperatureCelsius: rng.Normal(36.9, 0.5),
			HeartRate:          rng.Normal(78, 12),
			SystolicBP:         rng.Normal(125, 15),
			OxygenSaturation:   clampScore(rng.Normal(97, 1.5)),
			PainLevel:          rng.Intn(7),
		},
		Behavioral: domain.BehavioralRecord{
			AppEngagementRate:  rng.Range(0.3, 1.0),
			SymptomLoggingRate: rng.Range(0.3, 1.0),
			MoodScoreAverage:   &mood,
			SleepHoursAverage:  &sleep,
		},
		LengthOfStayDays:    1 + rng.Intn(8),
		EDVisitsLast6Months: rng.Intn(3),
	}
}

func surgeryDurationMinutes(rng *lcg, complexity domain.SurgeryComplexity) float64 {
	switch complexity {
	case domain.ComplexityMinor:
		return rng.Range(20, 70)
	case domain.ComplexityModerate:
		return rng.Range(60, 150)
	case domain.ComplexityMajor:
		return rng.Range(120, 300)
	default:
		return rng.Range(240, 480)
	}
}

// sampleOutcome draws the recovery outcome from a distribution conditioned
// on the profile's overall risk score.
func sampleOutcome(rng *lcg, overall float64) domain.Outcome {
	draw := rng.Float64()
	switch domain.TierForScore(overall) {
	case domain.TierLow:
		switch {
		case draw < 0.80:
			return domain.OutcomeGood
		case draw < 0.95:
			return domain.OutcomeModerate
		case draw < 0.99:
			return domain.OutcomePoor
		default:
			return domain.OutcomeReadmitted
		}
	case domain.TierModerate:
		switch {
		case draw < 0.55:
			return domain.OutcomeGood
		case draw < 0.85:
			return domain.OutcomeModerate
		case draw < 0.95:
			return domain.OutcomePoor
		default:
			return domain.OutcomeReadmitted
		}
	case domain.TierHigh:
		switch {
		case draw < 0.25:
			return domain.OutcomeGood
		case draw < 0.60:
			return domain.OutcomeModerate
		case draw < 0.85:
			return domain.OutcomePoor
		default:
			return domain.OutcomeReadmitted
		}
	default:
		switch {
		case draw < 0.10:
			return domain.OutcomeGood
		case draw < 0.35:
			return domain.OutcomeModerate
		case draw < 0.70:
			return domain.OutcomePoor
		default:
			return domain.OutcomeReadmitted
		}
	}
}

// ComputePopulationStats derives per-category mean and standard deviation
// from the cohort.
func ComputePopulationStats(profiles []domain.BaselinePatientProfile) domain.PopulationStats {
	var stats domain.PopulationStats
	if len(profiles) == 0 {
		return stats
	}
	for _, cat := range domain.AllCategories {
		var sum float64
		for i := range profiles {
			v, _ := profiles[i].RiskScores.Score(cat)
			sum += v
		}
		mean := sum / float64(len(profiles))

		var ss float64
		for i := range profiles {
			v, _ := profiles[i].RiskScores.Score(cat)
			d := v - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(len(profiles)))

		_ = stats.Set(cat, domain.CategoryStats{Mean: mean, StdDev: std})
	}
	return stats
}
