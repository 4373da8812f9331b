package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

// wellFormedInput is in-range on every field, optional labs and behavior
// signals included, so each test case can break exactly one field.
func wellFormedInput() *PatientRiskInput {
	return &PatientRiskInput{
		PatientID: "p-validate",
		Demographics: DemographicsRecord{
			AgeYears:      61,
			BMI:           27.5,
			SmokingStatus: SmokingFormer,
		},
		Surgical: SurgicalRecord{
			Complexity:      ComplexityModerate,
			ASAClass:        2,
			DurationMinutes: 110,
		},
		Compliance: ComplianceRecord{
			MedicationAdherenceRate:   0.9,
			AppointmentAttendanceRate: 1.0,
			ExerciseCompletionRate:    0.7,
			WoundCareCompletionRate:   fptr(0.8),
		},
		Clinical: ClinicalRecord{
			TemperatureCelsius: 36.9,
			HeartRate:          74,
			SystolicBP:         122,
			OxygenSaturation:   97,
			PainLevel:          3,
			WBC:                fptr(7.4),
			CRP:                fptr(4.0),
		},
		Behavioral: BehavioralRecord{
			AppEngagementRate:  0.8,
			SymptomLoggingRate: 0.6,
			MoodScoreAverage:   fptr(7.0),
			SleepHoursAverage:  fptr(7.5),
		},
		LengthOfStayDays:    2,
		EDVisitsLast6Months: 0,
	}
}

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	assert.NoError(t, wellFormedInput().Validate())

	// Optional fields may be absent entirely.
	in := wellFormedInput()
	in.Compliance.WoundCareCompletionRate = nil
	in.Clinical.WBC = nil
	in.Clinical.CRP = nil
	in.Behavioral.MoodScoreAverage = nil
	in.Behavioral.SleepHoursAverage = nil
	in.Demographics.SmokingStatus = ""
	assert.NoError(t, in.Validate())
}

func TestValidateRejectsOutOfDomainFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PatientRiskInput)
		wantField string
	}{
		{"missing patient id", func(in *PatientRiskInput) { in.PatientID = "" }, "patientId"},
		{"age below zero", func(in *PatientRiskInput) { in.Demographics.AgeYears = -1 }, "demographics.ageYears"},
		{"age above 130", func(in *PatientRiskInput) { in.Demographics.AgeYears = 131 }, "demographics.ageYears"},
		{"bmi zero", func(in *PatientRiskInput) { in.Demographics.BMI = 0 }, "demographics.bmi"},
		{"bmi above 100", func(in *PatientRiskInput) { in.Demographics.BMI = 100.1 }, "demographics.bmi"},
		{"unknown smoking status", func(in *PatientRiskInput) { in.Demographics.SmokingStatus = "pipe" }, "demographics.smokingStatus"},
		{"unknown complexity", func(in *PatientRiskInput) { in.Surgical.Complexity = "routine" }, "surgical.complexity"},
		{"empty complexity", func(in *PatientRiskInput) { in.Surgical.Complexity = "" }, "surgical.complexity"},
		{"asa class zero", func(in *PatientRiskInput) { in.Surgical.ASAClass = 0 }, "surgical.asaClass"},
		{"asa class six", func(in *PatientRiskInput) { in.Surgical.ASAClass = 6 }, "surgical.asaClass"},
		{"negative duration", func(in *PatientRiskInput) { in.Surgical.DurationMinutes = -5 }, "surgical.durationMinutes"},
		{"adherence rate negative", func(in *PatientRiskInput) { in.Compliance.MedicationAdherenceRate = -0.1 }, "compliance.medicationAdherenceRate"},
		{"attendance rate above one", func(in *PatientRiskInput) { in.Compliance.AppointmentAttendanceRate = 1.2 }, "compliance.appointmentAttendanceRate"},
		{"exercise rate above one", func(in *PatientRiskInput) { in.Compliance.ExerciseCompletionRate = 1.01 }, "compliance.exerciseCompletionRate"},
		{"wound care rate above one", func(in *PatientRiskInput) { in.Compliance.WoundCareCompletionRate = fptr(1.5) }, "compliance.woundCareCompletionRate"},
		{"negative missed days", func(in *PatientRiskInput) { in.Compliance.ConsecutiveMissedMedicationDays = -1 }, "compliance.consecutiveMissedMedicationDays"},
		{"temperature below range", func(in *PatientRiskInput) { in.Clinical.TemperatureCelsius = 24.9 }, "clinical.temperatureCelsius"},
		{"temperature above range", func(in *PatientRiskInput) { in.Clinical.TemperatureCelsius = 45.1 }, "clinical.temperatureCelsius"},
		{"heart rate zero", func(in *PatientRiskInput) { in.Clinical.HeartRate = 0 }, "clinical.heartRate"},
		{"heart rate above 300", func(in *PatientRiskInput) { in.Clinical.HeartRate = 301 }, "clinical.heartRate"},
		{"systolic zero", func(in *PatientRiskInput) { in.Clinical.SystolicBP = 0 }, "clinical.systolicBP"},
		{"systolic above 300", func(in *PatientRiskInput) { in.Clinical.SystolicBP = 320 }, "clinical.systolicBP"},
		{"oxygen saturation zero", func(in *PatientRiskInput) { in.Clinical.OxygenSaturation = 0 }, "clinical.oxygenSaturation"},
		{"oxygen saturation above 100", func(in *PatientRiskInput) { in.Clinical.OxygenSaturation = 100.5 }, "clinical.oxygenSaturation"},
		{"pain below zero", func(in *PatientRiskInput) { in.Clinical.PainLevel = -1 }, "clinical.painLevel"},
		{"pain above ten", func(in *PatientRiskInput) { in.Clinical.PainLevel = 11 }, "clinical.painLevel"},
		{"negative wbc", func(in *PatientRiskInput) { in.Clinical.WBC = fptr(-0.1) }, "clinical.wbc"},
		{"negative crp", func(in *PatientRiskInput) { in.Clinical.CRP = fptr(-1) }, "clinical.crp"},
		{"engagement rate above one", func(in *PatientRiskInput) { in.Behavioral.AppEngagementRate = 1.1 }, "behavioral.appEngagementRate"},
		{"logging rate negative", func(in *PatientRiskInput) { in.Behavioral.SymptomLoggingRate = -0.01 }, "behavioral.symptomLoggingRate"},
		{"mood below one", func(in *PatientRiskInput) { in.Behavioral.MoodScoreAverage = fptr(0.5) }, "behavioral.moodScoreAverage"},
		{"mood above ten", func(in *PatientRiskInput) { in.Behavioral.MoodScoreAverage = fptr(10.5) }, "behavioral.moodScoreAverage"},
		{"negative sleep", func(in *PatientRiskInput) { in.Behavioral.SleepHoursAverage = fptr(-1) }, "behavioral.sleepHoursAverage"},
		{"sleep above 24", func(in *PatientRiskInput) { in.Behavioral.SleepHoursAverage = fptr(25) }, "behavioral.sleepHoursAverage"},
		{"negative length of stay", func(in *PatientRiskInput) { in.LengthOfStayDays = -1 }, "lengthOfStayDays"},
		{"negative ed visits", func(in *PatientRiskInput) { in.EDVisitsLast6Months = -2 }, "edVisitsLast6Months"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := wellFormedInput()
			tt.mutate(in)

			err := in.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestValidateAcceptsBoundaryValues(t *testing.T) {
	in := wellFormedInput()
	in.Demographics.AgeYears = 130
	in.Demographics.BMI = 100
	in.Surgical.ASAClass = 5
	in.Surgical.DurationMinutes = 0
	in.Compliance.MedicationAdherenceRate = 0
	in.Compliance.AppointmentAttendanceRate = 1
	in.Clinical.TemperatureCelsius = 45
	in.Clinical.HeartRate = 300
	in.Clinical.OxygenSaturation = 100
	in.Clinical.PainLevel = 10
	in.Behavioral.MoodScoreAverage = fptr(1)
	in.Behavioral.SleepHoursAverage = fptr(24)

	assert.NoError(t, in.Validate())
}
