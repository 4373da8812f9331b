package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCharlsonIndex(t *testing.T) {
	tests := []struct {
		name          string
		comorbidities []string
		age           int
		want          int
	}{
		{"no comorbidities under 50", nil, 45, 0},
		{"single weight-1 condition", []string{"diabetes"}, 40, 1},
		{"weights accumulate", []string{"diabetes_with_complications", "renal_disease"}, 30, 4},
		{"metastatic tumor", []string{"metastatic_solid_tumor"}, 20, 6},
		{"age adds one per decade from 50", []string{"copd"}, 55, 2},
		{"age adjustment at 65", nil, 65, 2},
		{"age adjustment at 75", nil, 75, 3},
		{"age adjustment caps at 4", nil, 95, 4},
		{"unmapped condition counts as one", []string{"gout"}, 40, 1},
		{"mixed known and unknown", []string{"aids", "gout"}, 82, 6 + 1 + 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeCharlsonIndex(tt.comorbidities, tt.age))
		})
	}
}

func TestComputeLACEIndex(t *testing.T) {
	tests := []struct {
		name      string
		los       int
		emergency bool
		charlson  int
		edVisits  int
		want      int
	}{
		{"worked example", 5, true, 3, 2, 4 + 3 + 3 + 2},
		{"same-day elective", 0, false, 0, 0, 0},
		{"one day stay", 1, false, 0, 0, 1},
		{"two day stay", 2, false, 0, 0, 2},
		{"three day stay", 3, false, 0, 0, 3},
		{"four to six days", 6, false, 0, 0, 4},
		{"week-plus stay", 13, false, 0, 0, 5},
		{"two weeks or more", 14, false, 0, 0, 7},
		{"charlson capped at five", 0, false, 9, 0, 5},
		{"ed visits capped at four", 0, false, 0, 11, 4},
		{"negative inputs clamp to zero", -2, false, -1, -3, 0},
		{"maximum", 30, true, 8, 9, 7 + 3 + 5 + 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLACEIndex(tt.los, tt.emergency, tt.charlson, tt.edVisits)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 19)
		})
	}
}
