package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParoCap_StepTable(t *testing.T) {
	r := Default()

	assert.Equal(t, 8, r.ParoCap(31))
	assert.Equal(t, 7, r.ParoCap(29))
	assert.Equal(t, 7, r.ParoCap(28))
	assert.Equal(t, 7, r.ParoCap(27))
	assert.Equal(t, 6, r.ParoCap(26))
	assert.Equal(t, 1, r.ParoCap(4))
	assert.Equal(t, 0, r.ParoCap(1))
}

func TestPGYTarget(t *testing.T) {
	r := Default()

	assert.Equal(t, 7, r.PGYTarget(model.Resident{PGY: 1}, 31))
	assert.Equal(t, 4, r.PGYTarget(model.Resident{PGY: 5}, 31))
	assert.Equal(t, 0, r.PGYTarget(model.Resident{PGY: 5, IsChief: true}, 31))
	assert.Equal(t, 0, r.PGYTarget(model.Resident{PGY: 3, CallExempt: true}, 31))
	assert.Equal(t, 0, r.PGYTarget(model.Resident{PGY: 9}, 31), "unknown PGY level")
}

func TestIsProtected_DayCallIsNotProtected(t *testing.T) {
	r := Default()

	assert.True(t, r.IsProtected(model.Duty24h))
	assert.True(t, r.IsProtected(model.DutyWeekend))
	assert.True(t, r.IsProtected(model.DutyNight))
	assert.True(t, r.IsProtected(model.DutyHoliday))
	assert.False(t, r.IsProtected(model.DutyDay))
	assert.False(t, r.IsProtected(model.DutyBackup))
}

func TestValidate_RejectsDayCallProtection(t *testing.T) {
	r := Default()
	r.ProtectedDuties = append(r.ProtectedDuties, model.DutyDay)

	err := r.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRules))
}

func TestValidate_RejectsEmptyCapTable(t *testing.T) {
	r := Default()
	r.ParoCapTable = nil

	assert.Error(t, r.Validate())
}

func TestValidate_RejectsCapTableWithoutZeroRow(t *testing.T) {
	r := Default()
	r.ParoCapTable = []CapStep{{MinWorkingDays: 27, MaxDuties: 7}}

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minWorkingDays 0")
}

func TestValidate_RejectsIncreasingCapTable(t *testing.T) {
	r := Default()
	r.ParoCapTable = []CapStep{
		{MinWorkingDays: 20, MaxDuties: 3},
		{MinWorkingDays: 0, MaxDuties: 5},
	}

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not increase")
}

func TestValidate_RejectsNegativeWeight(t *testing.T) {
	r := Default()
	r.WeeklyWeights.SurgeonDeficit = -1

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weeklyWeights")
}

func TestValidate_ReportsFirstInvalidWeightDeterministically(t *testing.T) {
	r := Default()
	r.MonthlyWeights.Variety = -1
	r.MonthlyWeights.CaseTypeDeficit = -2
	r.WeeklyWeights.Fairness = -3
	r.YearlyWeights.Seniority = -4

	for i := 0; i < 20; i++ {
		err := r.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRules)
		assert.Contains(t, err.Error(), "monthlyWeights: variety must not be negative")
	}
}

func TestValidate_ReportsUnknownPointValueDeterministically(t *testing.T) {
	r := Default()
	r.PointValues["Zeta"] = 1
	r.PointValues["Alpha"] = 1

	for i := 0; i < 20; i++ {
		err := r.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"Alpha"`)
	}
}

func TestValidate_RejectsBadStaffingMode(t *testing.T) {
	r := Default()
	r.StaffingMode = "panic"

	assert.Error(t, r.Validate())
}

func TestValidate_RejectsCaseTypeTargetsAboveOne(t *testing.T) {
	r := Default()
	r.CaseTypeTargets = map[string]float64{"spine": 0.7, "cranial": 0.6}

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caseTypeTargets")
}

func TestValidate_RejectsCoolingRateOutOfRange(t *testing.T) {
	r := Default()
	r.Optimization.CoolingRate = 1.2

	assert.Error(t, r.Validate())
}
