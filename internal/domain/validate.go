package domain

// Input validation rejects values outside physiological or definitional
// domains before any scoring happens. Missing optional fields (nil pointers)
// are legal and are excluded from their domain's weighted mean downstream.

func rateInUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return NewValidationError(field, "rate must be in [0,1]", v)
	}
	return nil
}

// Validate checks the demographics record.
func (d *DemographicsRecord) Validate() error {
	if d.AgeYears < 0 || d.AgeYears > 130 {
		return NewValidationError("demographics.ageYears", "age must be in [0,130] years", d.AgeYears)
	}
	if d.BMI <= 0 || d.BMI > 100 {
		return NewValidationError("demographics.bmi", "BMI must be in (0,100]", d.BMI)
	}
	if d.SmokingStatus != "" && !d.SmokingStatus.IsValid() {
		return NewValidationError("demographics.smokingStatus", "unknown smoking status", string(d.SmokingStatus))
	}
	return nil
}

// Validate checks the surgical record.
func (s *SurgicalRecord) Validate() error {
	if !s.Complexity.IsValid() {
		return NewValidationError("surgical.complexity", "unknown surgery complexity", string(s.Complexity))
	}
	if s.ASAClass < 1 || s.ASAClass > 5 {
		return NewValidationError("surgical.asaClass", "ASA class must be in [1,5]", s.ASAClass)
	}
	if s.DurationMinutes < 0 {
		return NewValidationError("surgical.durationMinutes", "duration must be non-negative", s.DurationMinutes)
	}
	return nil
}

// Validate checks the compliance record.
func (c *ComplianceRecord) Validate() error {
	if err := rateInUnit("compliance.medicationAdherenceRate", c.MedicationAdherenceRate); err != nil {
		return err
	}
	if err := rateInUnit("compliance.appointmentAttendanceRate", c.AppointmentAttendanceRate); err != nil {
		return err
	}
	if err := rateInUnit("compliance.exerciseCompletionRate", c.ExerciseCompletionRate); err != nil {
		return err
	}
	if c.WoundCareCompletionRate != nil {
		if err := rateInUnit("compliance.woundCareCompletionRate", *c.WoundCareCompletionRate); err != nil {
			return err
		}
	}
	if c.ConsecutiveMissedMedicationDays < 0 {
		return NewValidationError("compliance.consecutiveMissedMedicationDays", "missed days must be non-negative", c.ConsecutiveMissedMedicationDays)
	}
	return nil
}

// Validate checks the clinical record.
func (c *ClinicalRecord) Validate() error {
	if c.TemperatureCelsius < 25 || c.TemperatureCelsius > 45 {
		return NewValidationError("clinical.temperatureCelsius", "temperature must be in [25,45] Celsius", c.TemperatureCelsius)
	}
	if c.HeartRate <= 0 || c.HeartRate > 300 {
		return NewValidationError("clinical.heartRate", "heart rate must be in (0,300] bpm", c.HeartRate)
	}
	if c.SystolicBP <= 0 || c.SystolicBP > 300 {
		return NewValidationError("clinical.systolicBP", "systolic pressure must be in (0,300] mmHg", c.SystolicBP)
	}
	if c.OxygenSaturation <= 0 || c.OxygenSaturation > 100 {
		return NewValidationError("clinical.oxygenSaturation", "oxygen saturation must be in (0,100] percent", c.OxygenSaturation)
	}
	if c.PainLevel < 0 || c.PainLevel > 10 {
		return NewValidationError("clinical.painLevel", "pain level must be in [0,10]", c.PainLevel)
	}
	if c.WBC != nil && *c.WBC < 0 {
		return NewValidationError("clinical.wbc", "WBC must be non-negative", *c.WBC)
	}
	if c.CRP != nil && *c.CRP < 0 {
		return NewValidationError("clinical.crp", "CRP must be non-negative", *c.CRP)
	}
	return nil
}

// Validate checks the behavioral record.
func (b *BehavioralRecord) Validate() error {
	if err := rateInUnit("behavioral.appEngagementRate", b.AppEngagementRate); err != nil {
		return err
	}
	if err := rateInUnit("behavioral.symptomLoggingRate", b.SymptomLoggingRate); err != nil {
		return err
	}
	if b.MoodScoreAverage != nil && (*b.MoodScoreAverage < 1 || *b.MoodScoreAverage > 10) {
		return NewValidationError("behavioral.moodScoreAverage", "mood score must be in [1,10]", *b.MoodScoreAverage)
	}
	if b.SleepHoursAverage != nil && (*b.SleepHoursAverage < 0 || *b.SleepHoursAverage > 24) {
		return NewValidationError("behavioral.sleepHoursAverage", "sleep hours must be in [0,24]", *b.SleepHoursAverage)
	}
	return nil
}

// Validate checks the full assessment input.
func (in *PatientRiskInput) Validate() error {
	if in.PatientID == "" {
		return NewValidationError("patientId", "patient id is required", in.PatientID)
	}
	if err := in.Demographics.Validate(); err != nil {
		return err
	}
	if err := in.Surgical.Validate(); err != nil {
		return err
	}
	if err := in.Compliance.Validate(); err != nil {
		return err
	}
	if err := in.Clinical.Validate(); err != nil {
		return err
	}
	if err := in.Behavioral.Validate(); err != nil {
		return err
	}
	if in.LengthOfStayDays < 0 {
		return NewValidationError("lengthOfStayDays", "length of stay must be non-negative", in.LengthOfStayDays)
	}
	if in.EDVisitsLast6Months < 0 {
		return NewValidationError("edVisitsLast6Months", "ED visit count must be non-negative", in.EDVisitsLast6Months)
	}
	return nil
}
