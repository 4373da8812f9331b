package service

import (
	"fmt"

	"github.com/postop-risk-server/internal/domain"
)

// DomainScore is the output of one domain scorer: a 0-100 score plus the
// named, weighted factors that produced it.
type DomainScore struct {
	Score        float64
	Contributors []domain.RiskContributor
}

// weightedMean applies the weight-normalized mean Σ(w·v)/Σ(w) over the
// contributors' normalized values. Contributors for absent optional fields
// are never built, so they drop out of both numerator and denominator.
func weightedMean(contribs []domain.RiskContributor) float64 {
	var num, den float64
	for _, c := range contribs {
		num += c.Weight * c.NormalizedContribution
		den += c.Weight
	}
	if den == 0 {
		return 0
	}
	return clampScore(num / den)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func contributor(factor string, weight, normalized float64, raw, description string) domain.RiskContributor {
	return domain.RiskContributor{
		Factor:                 factor,
		Weight:                 weight,
		RawValue:               raw,
		NormalizedContribution: clampScore(normalized),
		Description:            description,
	}
}

// ScoreDemographics converts static demographic inputs into a 0-100 risk
// score. Age and BMI map through piecewise bands; smoking and living
// situation are categorical.
func ScoreDemographics(rec domain.DemographicsRecord) DomainScore {
	contribs := []domain.RiskContributor{
		contributor("age", 0.35, ageBand(rec.AgeYears),
			fmt.Sprintf("%d", rec.AgeYears), "age in years, banded by decade"),
		contributor("bmi", 0.25, bmiBand(rec.BMI),
			fmt.Sprintf("%.1f", rec.BMI), "body mass index band"),
		contributor("smokingStatus", 0.20, smokingBand(rec.SmokingStatus),
			string(rec.SmokingStatus), "smoking history"),
		contributor("livesAlone", 0.20, boolBand(rec.LivesAlone, 60, 10),
			fmt.Sprintf("%t", rec.LivesAlone), "lack of in-home support"),
	}
	return DomainScore{Score: weightedMean(contribs), Contributors: contribs}
}

func ageBand(years int) float64 {
	switch {
	case years < 40:
		return 5
	case years < 50:
		return 12
	case years < 60:
		return 22
	case years < 70:
		return 40
	case years < 80:
		return 60
	default:
		return 80
	}
}

func bmiBand(bmi float64) float64 {
	switch {
	case bmi < 18.5:
		return 55
	case bmi < 25:
		return 10
	case bmi < 30:
		return 30
	case bmi < 35:
		return 50
	case bmi < 40:
		return 70
	default:
		return 85
	}
}

func smokingBand(s domain.SmokingStatus) float64 {
	switch s {
	case domain.SmokingCurrent:
		return 70
	case domain.SmokingFormer:
		return 35
	default:
		// never, or unset
		return 5
	}
}

func boolBand(v bool, whenTrue, whenFalse float64) float64 {
	if v {
		return whenTrue
	}
	return whenFalse
}

// ScoreSurgical converts surgery factors into a 0-100 risk score.
func ScoreSurgical(rec domain.SurgicalRecord) DomainScore {
	contribs := []domain.RiskContributor{
		contributor("surgeryComplexity", 0.30, complexityBand(rec.Complexity),
			string(rec.Complexity), "procedure complexity grade"),
		contributor("asaClass", 0.30, asaBand(rec.ASAClass),
			fmt.Sprintf("%d", rec.ASAClass), "ASA physical status class"),
		contributor("durationMinutes", 0.20, durationBand(rec.DurationMinutes),
			fmt.Sprintf("%.0f", rec.DurationMinutes), "operative time band"),
		contributor("emergencyAdmission", 0.20, boolBand(rec.EmergencyAdmission, 75, 10),
			fmt.Sprintf("%t", rec.EmergencyAdmission), "unplanned admission"),
	}
	return DomainScore{Score: weightedMean(contribs), Contributors: contribs}
}

func complexityBand(c domain.SurgeryComplexity) float64 {
	switch c {
	case domain.ComplexityMinor:
		return 10
	case domain.ComplexityModerate:
		return 35
	case domain.ComplexityMajor:
		return 65
	case domain.ComplexityComplex:
		return 85
	default:
		return 35
	}
}

func asaBand(class int) float64 {
	switch class {
	case 1:
		return 5
	case 2:
		return 20
	case 3:
		return 45
	case 4:
		return 70
	default:
		return 90
	}
}

func durationBand(minutes float64) float64 {
	switch {
	case minutes < 60:
		return 10
	case minutes < 120:
		return 25
	case minutes < 240:
		return 45
	case minutes < 360:
		return 65
	default:
		return 80
	}
}

// ScoreCompliance converts adherence behavior into a 0-100 risk score.
// Rates invert directly: risk = (1 - rate) * 100.
func ScoreCompliance(rec domain.ComplianceRecord) DomainScore {
	contribs := []domain.RiskContributor{
		contributor("medicationAdherence", 0.35, (1-rec.MedicationAdherenceRate)*100,
			fmt.Sprintf("%.2f", rec.MedicationAdherenceRate), "inverted medication adherence rate"),
		contributor("appointmentAttendance", 0.20, (1-rec.AppointmentAttendanceRate)*100,
			fmt.Sprintf("%.2f", rec.AppointmentAttendanceRate), "inverted appointment attendance rate"),
		contributor("exerciseCompletion", 0.15, (1-rec.ExerciseCompletionRate)*100,
			fmt.Sprintf("%.2f", rec.ExerciseCompletionRate), "inverted exercise completion rate"),
		contributor("consecutiveMissedMedicationDays", 0.30, missedDaysBand(rec.ConsecutiveMissedMedicationDays),
			fmt.Sprintf("%d", rec.ConsecutiveMissedMedicationDays), "current missed-dose streak"),
	}
	if rec.WoundCareCompletionRate != nil {
		contribs = append(contribs,
			contributor("woundCareCompletion", 0.20, (1-*rec.WoundCareCompletionRate)*100,
				fmt.Sprintf("%.2f", *rec.WoundCareCompletionRate), "inverted wound-care completion rate"))
	}
	return DomainScore{Score: weightedMean(contribs), Contributors: contribs}
}

func missedDaysBand(days int) float64 {
	v := float64(days) * 20
	if v > 100 {
		return 100
	}
	return v
}

// ScoreClinical converts vitals and labs into a 0-100 risk score.
// WBC and CRP are optional labs; when absent they are excluded from the
// weighted mean rather than treated as zero risk.
func ScoreClinical(rec domain.ClinicalRecord) DomainScore {
	contribs := []domain.RiskContributor{
		contributor("temperature", 0.25, temperatureBand(rec.TemperatureCelsius),
			fmt.Sprintf("%.1f", rec.TemperatureCelsius), "body temperature in Celsius"),
		contributor("heartRate", 0.20, heartRateBand(rec.HeartRate),
			fmt.Sprintf("%.0f", rec.HeartRate), "resting heart rate"),
		contributor("systolicBP", 0.20, systolicBand(rec.SystolicBP),
			fmt.Sprintf("%.0f", rec.SystolicBP), "systolic blood pressure"),
		contributor("oxygenSaturation", 0.20, spo2Band(rec.OxygenSaturation),
			fmt.Sprintf("%.0f", rec.OxygenSaturation), "peripheral oxygen saturation"),
		contributor("painLevel", 0.15, painBand(rec.PainLevel),
			fmt.Sprintf("%d", rec.PainLevel), "self-reported pain, 0-10"),
	}
	if rec.WBC != nil {
		contribs = append(contribs,
			contributor("wbc", 0.15, wbcBand(*rec.WBC),
				fmt.Sprintf("%.1f", *rec.WBC), "white blood cell count"))
	}
	if rec.CRP != nil {
		contribs = append(contribs,
			contributor("crp", 0.15, crpBand(*rec.CRP),
				fmt.Sprintf("%.1f", *rec.CRP), "C-reactive protein"))
	}
	return DomainScore{Score: weightedMean(contribs), Contributors: contribs}
}

func temperatureBand(celsius float64) float64 {
	switch {
	case celsius < 36.0:
		return 40 // hypothermia
	case celsius < 37.5:
		return 5
	case celsius < 38.0:
		return 40
	case celsius < 38.5:
		return 60
	case celsius < 39.0:
		return 75
	default:
		return 90
	}
}

func heartRateBand(bpm float64) float64 {
	switch {
	case bpm < 50:
		return 50
	case bpm < 60:
		return 20
	case bpm <= 100:
		return 5
	case bpm <= 110:
		return 40
	case bpm <= 120:
		return 60
	default:
		return 80
	}
}

func systolicBand(mmHg float64) float64 {
	switch {
	case mmHg < 90:
		return 85 // hypotensive
	case mmHg < 100:
		return 55
	case mmHg < 140:
		return 5
	case mmHg < 160:
		return 30
	case mmHg < 180:
		return 55
	default:
		return 75
	}
}

func spo2Band(percent float64) float64 {
	switch {
	case percent >= 96:
		return 5
	case percent >= 94:
		return 30
	case percent >= 92:
		return 55
	case percent >= 90:
		return 75
	default:
		return 90
	}
}

func painBand(level int) float64 {
	switch {
	case level <= 2:
		return 5
	case level <= 4:
		return 25
	case level <= 6:
		return 45
	case level <= 8:
		return 65
	default:
		return 85
	}
}

func wbcBand(count float64) float64 {
	switch {
	case count < 4:
		return 60 // leukopenia
	case count <= 11:
		return 5
	case count <= 15:
		return 45
	default:
		return 75
	}
}

func crpBand(mgPerL float64) float64 {
	switch {
	case mgPerL < 10:
		return 5
	case mgPerL < 50:
		return 40
	case mgPerL < 100:
		return 65
	default:
		return 85
	}
}

// ScoreBehavioral converts app-derived signals into a 0-100 risk score.
// Mood and sleep averages are optional.
func ScoreBehavioral(rec domain.BehavioralRecord) DomainScore {
	contribs := []domain.RiskContributor{
		contributor("appEngagement", 0.35, (1-rec.AppEngagementRate)*100,
			fmt.Sprintf("%.2f", rec.AppEngagementRate), "inverted daily app engagement rate"),
		contributor("symptomLogging", 0.25, (1-rec.SymptomLoggingRate)*100,
			fmt.Sprintf("%.2f", rec.SymptomLoggingRate), "inverted symptom logging rate"),
	}
	if rec.MoodScoreAverage != nil {
		contribs = append(contribs,
			contributor("moodScore", 0.25, moodBand(*rec.MoodScoreAverage),
				fmt.Sprintf("%.1f", *rec.MoodScoreAverage), "inverted 1-10 mood average"))
	}
	if rec.SleepHoursAverage != nil {
		contribs = append(contribs,
			contributor("sleepHours", 0.15, sleepBand(*rec.SleepHoursAverage),
				fmt.Sprintf("%.1f", *rec.SleepHoursAverage), "nightly sleep band"))
	}
	return DomainScore{Score: weightedMean(contribs), Contributors: contribs}
}

func moodBand(avg float64) float64 {
	// 10 is best possible mood, 1 worst.
	return (10 - avg) / 9 * 100
}

func sleepBand(hours float64) float64 {
	switch {
	case hours < 4:
		return 75
	case hours < 6:
		return 45
	case hours <= 9:
		return 10
	default:
		return 35
	}
}

// ScoreAllDomains runs the five scorers over one input.
func ScoreAllDomains(in *domain.PatientRiskInput) map[domain.ScoringDomain]DomainScore {
	return map[domain.ScoringDomain]DomainScore{
		domain.DomainDemographics: ScoreDemographics(in.Demographics),
		domain.DomainSurgical:     ScoreSurgical(in.Surgical),
		domain.DomainCompliance:   ScoreCompliance(in.Compliance),
		domain.DomainClinical:     ScoreClinical(in.Clinical),
		domain.DomainBehavioral:   ScoreBehavioral(in.Behavioral),
	}
}
