package service

// Charlson Comorbidity Index and LACE readmission index, computed from raw
// fields independently of the domain scorers.

// ComorbidityWeights maps Charlson condition identifiers to their integer
// weights (Charlson et al. 1987).
var ComorbidityWeights = map[string]int{
	"myocardial_infarction":         1,
	"congestive_heart_failure":      1,
	"peripheral_vascular_disease":   1,
	"cerebrovascular_disease":       1,
	"dementia":                      1,
	"copd":                          1,
	"connective_tissue_disease":     1,
	"peptic_ulcer_disease":          1,
	"mild_liver_disease":            1,
	"diabetes":                      1,
	"diabetes_with_complications":   2,
	"hemiplegia":                    2,
	"renal_disease":                 2,
	"malignancy":                    2,
	"leukemia":                      2,
	"lymphoma":                      2,
	"moderate_severe_liver_disease": 3,
	"metastatic_solid_tumor":        6,
	"aids":                          6,
}

// ComputeCharlsonIndex sums per-comorbidity weights and adds the age
// adjustment: 0 below 50, then +1 per decade, capped at +4 from 80 on.
// Unrecognized comorbidity identifiers contribute weight 1 so an unmapped
// condition still registers as burden rather than vanishing.
func ComputeCharlsonIndex(comorbidities []string, ageYears int) int {
	total := 0
	for _, c := range comorbidities {
		if w, ok := ComorbidityWeights[c]; ok {
			total += w
		} else {
			total++
		}
	}
	total += charlsonAgeAdjustment(ageYears)
	return total
}

func charlsonAgeAdjustment(ageYears int) int {
	switch {
	case ageYears < 50:
		return 0
	case ageYears < 60:
		return 1
	case ageYears < 70:
		return 2
	case ageYears < 80:
		return 3
	default:
		return 4
	}
}

// ComputeLACEIndex computes the 0-19 LACE readmission index:
// L length-of-stay band, A acuity (3 if emergency), C Charlson capped at 5,
// E emergency-department visits in the last 6 months capped at 4.
func ComputeLACEIndex(lengthOfStayDays int, emergencyAdmission bool, charlson, edVisitsLast6Months int) int {
	l := lengthOfStayBand(lengthOfStayDays)

	a := 0
	if emergencyAdmission {
		a = 3
	}

	c := charlson
	if c < 0 {
		c = 0
	}
	if c > 5 {
		c = 5
	}

	e := edVisitsLast6Months
	if e < 0 {
		e = 0
	}
	if e > 4 {
		e = 4
	}

	return l + a + c + e
}

func lengthOfStayBand(days int) int {
	switch {
	case days < 1:
		return 0
	case days == 1:
		return 1
	case days == 2:
		return 2
	case days == 3:
		return 3
	case days <= 6:
		return 4
	case days <= 13:
		return 5
	default:
		return 7
	}
}
