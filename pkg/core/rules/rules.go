// Package rules holds the immutable engine configuration: regulatory caps,
// PGY targets, scoring weights, weekend and team rules, and optimizer settings.
// Rules are validated once at construction and passed by value to the schedulers.
package rules

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// ErrInvalidRules is returned when a rules value fails validation
var ErrInvalidRules = errors.New("invalid rules")

// StaffingMode controls whether PGY targets may be relaxed when a slot cannot be filled
type StaffingMode string

const (
	StaffingNormal   StaffingMode = "normal"
	StaffingShortage StaffingMode = "shortage"
	StaffingAuto     StaffingMode = "auto"
)

// CallStrategy controls which call duties are generated on weekdays
type CallStrategy string

const (
	// Strategy24h generates a single 24h call per weekday
	Strategy24h CallStrategy = "24h"
	// StrategySplit generates a Day call and a Night call per weekday
	StrategySplit CallStrategy = "split"
	// StrategyAuto chooses split when enough call-eligible residents are rostered
	StrategyAuto CallStrategy = "auto"
)

// CapStep is one row of the PARO cap step table
type CapStep struct {
	MinWorkingDays int `yaml:"minWorkingDays" validate:"min=0"`
	MaxDuties      int `yaml:"maxDuties" validate:"min=0"`
}

// TeamCompositionRules constrain OR team selection
type TeamCompositionRules struct {
	// MinPGYGap is the minimum PGY difference between primary and assistant
	MinPGYGap int `yaml:"minPGYGap" validate:"min=0,max=6"`

	// AllowPGY1OnThreePersonTeam permits PGY-1 assistants on 3-person teams regardless of gap
	AllowPGY1OnThreePersonTeam bool `yaml:"allowPGY1OnThreePersonTeam"`
}

// ClinicStaffingThresholds bound clinic staffing in the weekly horizon
type ClinicStaffingThresholds struct {
	// MinResidentsPerClinic below which an unfilled clinic is a hard violation
	MinResidentsPerClinic int `yaml:"minResidentsPerClinic" validate:"min=0"`

	// MaxClinicsPerResidentPerWeek is a hard cap on clinic sessions per resident
	MaxClinicsPerResidentPerWeek int `yaml:"maxClinicsPerResidentPerWeek" validate:"min=1"`
}

// Rules is the full engine configuration
type Rules struct {
	// ParoCapTable maps working days in the period to the regulatory duty ceiling
	ParoCapTable []CapStep `yaml:"paroCapTable" validate:"required,min=1,dive"`

	// PGYDutyRatios gives the "one in N working days" call target per PGY level
	PGYDutyRatios map[int]int `yaml:"pgyDutyRatios" validate:"required,min=1,dive,keys,min=1,max=7,endkeys,min=1"`

	// PointValues assigns a point value per duty type
	PointValues map[model.DutyType]float64 `yaml:"pointValues" validate:"required,min=1,dive,min=0"`

	// ProtectedDuties grant post-duty protection on the following day
	ProtectedDuties []model.DutyType `yaml:"protectedDuties" validate:"required,min=1"`

	// BackupRequiredFor lists primary duties that require a senior backup when held by a PGY-1
	BackupRequiredFor []model.DutyType `yaml:"backupRequiredFor"`

	// BackupMinPGY is the minimum PGY level for a backup resident
	BackupMinPGY int `yaml:"backupMinPGY" validate:"min=2,max=7"`

	// WeekendBlockMax is the maximum distinct weekend blocks per rotation block
	WeekendBlockMax int `yaml:"weekendBlockMax" validate:"min=1"`

	StaffingMode         StaffingMode `yaml:"staffingMode" validate:"oneof=normal shortage auto"`
	CallStrategy         CallStrategy `yaml:"callStrategy" validate:"oneof=24h split auto"`
	SplitRosterThreshold int          `yaml:"splitRosterThreshold" validate:"min=1"`

	TeamCompositionRules     TeamCompositionRules     `yaml:"teamCompositionRules"`
	ClinicStaffingThresholds ClinicStaffingThresholds `yaml:"clinicStaffingThresholds"`

	// CaseTypeTargets is the desired share of OR exposure per case type (weekly/yearly)
	CaseTypeTargets map[string]float64 `yaml:"caseTypeTargets" validate:"dive,min=0,max=1"`

	MonthlyWeights Weights `yaml:"monthlyWeights"`
	WeeklyWeights  Weights `yaml:"weeklyWeights"`
	YearlyWeights  Weights `yaml:"yearlyWeights"`

	Optimization Optimization `yaml:"optimization"`
}

// Optimization configures the simulated annealing pass
type Optimization struct {
	Enabled            bool    `yaml:"enabled"`
	Iterations         int     `yaml:"iterations" validate:"min=0"`
	InitialTemperature float64 `yaml:"initialTemperature" validate:"gt=0"`
	CoolingRate        float64 `yaml:"coolingRate" validate:"gt=0,lt=1"`
	MinTemperature     float64 `yaml:"minTemperature" validate:"gt=0"`
	HardPenalty        float64 `yaml:"hardPenalty" validate:"min=0"`
	SoftPenalty        float64 `yaml:"softPenalty" validate:"min=0"`
	VarianceBonus      float64 `yaml:"varianceBonus" validate:"min=0"`
	Seed               int64   `yaml:"seed"`
}

var validate = validator.New()

// Default returns the rules with their documented defaults
func Default() Rules {
	return Rules{
		ParoCapTable: []CapStep{
			{MinWorkingDays: 30, MaxDuties: 8},
			{MinWorkingDays: 27, MaxDuties: 7},
			{MinWorkingDays: 23, MaxDuties: 6},
			{MinWorkingDays: 19, MaxDuties: 5},
			{MinWorkingDays: 15, MaxDuties: 4},
			{MinWorkingDays: 11, MaxDuties: 3},
			{MinWorkingDays: 7, MaxDuties: 2},
			{MinWorkingDays: 4, MaxDuties: 1},
			{MinWorkingDays: 0, MaxDuties: 0},
		},
		PGYDutyRatios: map[int]int{1: 4, 2: 5, 3: 5, 4: 6, 5: 7, 6: 7, 7: 7},
		PointValues: map[model.DutyType]float64{
			model.Duty24h:      1.0,
			model.DutyNight:    1.0,
			model.DutyDay:      0.5,
			model.DutyWeekend:  1.5,
			model.DutyHoliday:  2.0,
			model.DutyBackup:   0.5,
			model.DutyPostCall: 0,
			model.DutyOR:       1.0,
			model.DutyClinic:   0.5,
		},
		ProtectedDuties:      []model.DutyType{model.Duty24h, model.DutyWeekend, model.DutyNight, model.DutyHoliday},
		BackupRequiredFor:    []model.DutyType{model.Duty24h, model.DutyNight, model.DutyWeekend, model.DutyHoliday},
		BackupMinPGY:         3,
		WeekendBlockMax:      2,
		StaffingMode:         StaffingAuto,
		CallStrategy:         StrategyAuto,
		SplitRosterThreshold: 10,
		TeamCompositionRules: TeamCompositionRules{
			MinPGYGap:                  1,
			AllowPGY1OnThreePersonTeam: true,
		},
		ClinicStaffingThresholds: ClinicStaffingThresholds{
			MinResidentsPerClinic:        1,
			MaxClinicsPerResidentPerWeek: 3,
		},
		CaseTypeTargets: map[string]float64{"spine": 0.5, "cranial": 0.5},
		MonthlyWeights:  DefaultMonthlyWeights(),
		WeeklyWeights:   DefaultWeeklyWeights(),
		YearlyWeights:   DefaultYearlyWeights(),
		Optimization: Optimization{
			Enabled:            true,
			Iterations:         10000,
			InitialTemperature: 100,
			CoolingRate:        0.995,
			MinTemperature:     0.01,
			HardPenalty:        10,
			SoftPenalty:        0.5,
			VarianceBonus:      0.05,
			Seed:               1,
		},
	}
}

// Validate checks struct-level constraints and cross-field consistency
func (r Rules) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	// The cap table must cover zero working days so every resident has a cap
	steps := r.sortedCapSteps()
	if steps[len(steps)-1].MinWorkingDays != 0 {
		return fmt.Errorf("%w: paroCapTable must contain a row with minWorkingDays 0", ErrInvalidRules)
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].MinWorkingDays == steps[i-1].MinWorkingDays {
			return fmt.Errorf("%w: paroCapTable has duplicate minWorkingDays %d", ErrInvalidRules, steps[i].MinWorkingDays)
		}
		if steps[i].MaxDuties > steps[i-1].MaxDuties {
			return fmt.Errorf("%w: paroCapTable must not increase as working days decrease", ErrInvalidRules)
		}
	}

	for _, d := range r.ProtectedDuties {
		if !d.IsValid() {
			return fmt.Errorf("%w: unknown protected duty %q", ErrInvalidRules, d)
		}
		if d == model.DutyDay {
			return fmt.Errorf("%w: day calls do not grant post-call protection", ErrInvalidRules)
		}
	}
	for _, d := range slices.Sorted(maps.Keys(r.PointValues)) {
		if !d.IsValid() {
			return fmt.Errorf("%w: unknown duty type %q in pointValues", ErrInvalidRules, d)
		}
	}
	for _, d := range r.BackupRequiredFor {
		if !d.IsValid() {
			return fmt.Errorf("%w: unknown duty type %q in backupRequiredFor", ErrInvalidRules, d)
		}
	}

	total := 0.0
	for _, share := range r.CaseTypeTargets {
		total += share
	}
	if total > 1.0+1e-9 {
		return fmt.Errorf("%w: caseTypeTargets sum to %.2f, must not exceed 1", ErrInvalidRules, total)
	}

	if r.Optimization.MinTemperature >= r.Optimization.InitialTemperature {
		return fmt.Errorf("%w: optimization.minTemperature must be below initialTemperature", ErrInvalidRules)
	}

	for _, set := range []struct {
		name    string
		weights Weights
	}{{"monthly", r.MonthlyWeights}, {"weekly", r.WeeklyWeights}, {"yearly", r.YearlyWeights}} {
		if err := set.weights.validate(); err != nil {
			return fmt.Errorf("%w: %sWeights: %v", ErrInvalidRules, set.name, err)
		}
	}

	return nil
}

func (r Rules) sortedCapSteps() []CapStep {
	steps := slices.Clone(r.ParoCapTable)
	sort.Slice(steps, func(i, j int) bool { return steps[i].MinWorkingDays > steps[j].MinWorkingDays })
	return steps
}

// ParoCap returns the regulatory duty ceiling for a resident with the given working days
func (r Rules) ParoCap(workingDays int) int {
	for _, step := range r.sortedCapSteps() {
		if workingDays >= step.MinWorkingDays {
			return step.MaxDuties
		}
	}
	return 0
}

// PGYTarget returns the normal-mode call target for a resident:
// floor(workingDays / ratio) for their PGY level, and 0 for chiefs and call-exempt residents.
func (r Rules) PGYTarget(resident model.Resident, workingDays int) int {
	if resident.IsExempt() {
		return 0
	}
	ratio, ok := r.PGYDutyRatios[resident.PGY]
	if !ok || ratio <= 0 {
		return 0
	}
	return workingDays / ratio
}

// Points returns the point value of a duty type (0 when not configured)
func (r Rules) Points(d model.DutyType) float64 {
	return r.PointValues[d]
}

// IsProtected reports whether the duty type grants post-duty protection
func (r Rules) IsProtected(d model.DutyType) bool {
	return slices.Contains(r.ProtectedDuties, d)
}

// RequiresBackup reports whether a PGY-1 holding this duty needs a senior backup
func (r Rules) RequiresBackup(d model.DutyType) bool {
	return slices.Contains(r.BackupRequiredFor, d)
}
