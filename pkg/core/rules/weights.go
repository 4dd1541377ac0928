package rules

import "fmt"

// Weights is the weight vector applied to each scoring term.
// The terms are the same in every horizon; each scheduler configures its own vector.
type Weights struct {
	// Fairness multiplies (average duty count - resident duty count)
	Fairness float64 `yaml:"fairness"`

	// Seniority multiplies the PGY level; applied negatively for primary duty and
	// positively for backup/supervisory roles
	Seniority float64 `yaml:"seniority"`

	// ExemptionPenalty is added (as a negative term) for chiefs and call-exempt residents
	ExemptionPenalty float64 `yaml:"exemptionPenalty"`

	// Spacing multiplies min(10, days since last duty)
	Spacing float64 `yaml:"spacing"`

	// NeverAssignedBonus replaces the spacing term for residents without any duty yet
	NeverAssignedBonus float64 `yaml:"neverAssignedBonus"`

	// Variety is a flat bonus when the duty type is absent from the last five duties
	Variety float64 `yaml:"variety"`

	// WeekendDistribution multiplies (weekendBlockMax - weekend blocks used in rotation block)
	WeekendDistribution float64 `yaml:"weekendDistribution"`

	// OnCallPenalty is subtracted when the resident already holds a call duty that day
	OnCallPenalty float64 `yaml:"onCallPenalty"`

	// SurgeonDeficit multiplies max(0, average surgeon hours - resident surgeon hours)
	SurgeonDeficit float64 `yaml:"surgeonDeficit"`

	// CaseTypeDeficit multiplies max(0, target share - current share) of the case type
	CaseTypeDeficit float64 `yaml:"caseTypeDeficit"`
}

// MaxSpacingDays caps the spacing term
const MaxSpacingDays = 10

// DefaultMonthlyWeights returns the call scheduler weight vector
func DefaultMonthlyWeights() Weights {
	return Weights{
		Fairness:            10,
		Seniority:           0.5,
		ExemptionPenalty:    1000,
		Spacing:             1,
		NeverAssignedBonus:  12,
		Variety:             2,
		WeekendDistribution: 3,
	}
}

// DefaultWeeklyWeights returns the clinical scheduler weight vector
func DefaultWeeklyWeights() Weights {
	return Weights{
		Fairness:           5,
		Seniority:          1,
		ExemptionPenalty:   0,
		Spacing:            0.5,
		NeverAssignedBonus: 6,
		Variety:            1,
		OnCallPenalty:      3,
		SurgeonDeficit:     2,
		CaseTypeDeficit:    10,
	}
}

// DefaultYearlyWeights returns the rotation scheduler weight vector
func DefaultYearlyWeights() Weights {
	return Weights{
		Fairness:        5,
		Seniority:       0.5,
		Variety:         3,
		CaseTypeDeficit: 10,
	}
}

func (w Weights) validate() error {
	values := []struct {
		name  string
		value float64
	}{
		{"fairness", w.Fairness},
		{"seniority", w.Seniority},
		{"exemptionPenalty", w.ExemptionPenalty},
		{"spacing", w.Spacing},
		{"neverAssignedBonus", w.NeverAssignedBonus},
		{"variety", w.Variety},
		{"weekendDistribution", w.WeekendDistribution},
		{"onCallPenalty", w.OnCallPenalty},
		{"surgeonDeficit", w.SurgeonDeficit},
		{"caseTypeDeficit", w.CaseTypeDeficit},
	}
	for _, v := range values {
		if v.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", v.name, v.value)
		}
		if v.value > 1e6 {
			return fmt.Errorf("%s is out of range, got %v", v.name, v.value)
		}
	}
	return nil
}
