package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

func yearResidents() []model.Resident {
	return []model.Resident{
		{ID: "pgy1", PGY: 1, Service: neuro, OnService: true, HolidayPoints: 8},
		{ID: "pgy2", PGY: 2, Service: neuro, OnService: true},
		{ID: "pgy3", PGY: 3, Service: neuro, OnService: true, HolidayPoints: 3},
		{ID: "pgy3b", PGY: 3, Service: neuro, OnService: true},
		{ID: "pgy4", PGY: 4, Service: neuro, OnService: true, HolidayPoints: 10},
		{ID: "pgy5", PGY: 5, Service: neuro, OnService: true},
		{ID: "visitor", PGY: 2, Service: "orthopaedics"},
	}
}

func academicYear() YearlyInput {
	return YearlyInput{
		Input: Input{
			Residents: yearResidents(),
			Rules:     testRules(),
		},
		AcademicYearStart: date("2025-07-01"),
		Rotations: []Rotation{
			{Name: "ward", Kind: RotationCore, Service: neuro, MinCapacity: 3, MaxCapacity: 3, Teams: []string{"red", "blue"}},
			{Name: "icu", Kind: RotationCore, Service: neuro, MinPGY: 3, MinCapacity: 1, MaxCapacity: 1, CaseType: "cranial", Hours: 60},
			{Name: "research", Kind: RotationElective, Service: neuro, MaxCapacity: 2},
		},
		ExternalRotators:     []Placement{{ResidentID: "visitor", Block: 1, Rotation: "ward"}},
		OffService:           []Placement{{ResidentID: "pgy1", Block: 2, Rotation: "plastics"}},
		ExamPGY:              5,
		ExamBlock:            10,
		HolidayLeaveCapacity: 2,
	}
}

func inBlock(s metrics.Schedule, block int) []model.DutyAssignment {
	var out []model.DutyAssignment
	for _, a := range s.Assignments {
		if a.Block == block {
			out = append(out, a)
		}
	}
	return out
}

func TestGenerateYearly_OneCellPerResidentBlock(t *testing.T) {
	s, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)

	cells := make(map[string]int)
	for _, a := range s.Assignments {
		if a.Type == model.DutyHolidayLeave {
			continue
		}
		require.NotZero(t, a.Block)
		cells[a.ResidentID+"|"+string(rune('A'+a.Block))]++
	}
	for cell, n := range cells {
		assert.Equal(t, 1, n, "cell %s", cell)
	}
	assert.Equal(t, 0, countRule(s.Violations, model.RuleDoubleBooking))
	assert.Equal(t, "AY2025-2026", s.PeriodKey)
}

func TestGenerateYearly_FixedPlacementsComeFirst(t *testing.T) {
	s, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)

	ward := 0
	for _, a := range inBlock(s, 1) {
		if a.Rotation == "ward" {
			ward++
		}
		if a.ResidentID == "visitor" {
			assert.Equal(t, model.DutyExternalRotation, a.Type)
		}
	}
	assert.Equal(t, 3, ward, "the external rotator takes one of the three ward seats")

	for _, a := range inBlock(s, 2) {
		if a.ResidentID == "pgy1" {
			assert.Equal(t, model.DutyExternalRotation, a.Type)
			assert.Equal(t, "plastics", a.Rotation)
		}
	}

	for _, a := range inBlock(s, 10) {
		if a.ResidentID == "pgy5" {
			assert.Equal(t, model.DutyExamLeave, a.Type)
		}
	}
	for _, a := range s.Assignments {
		if a.ResidentID == "visitor" && a.Block != 1 {
			assert.Fail(t, "the visitor is never eligible for program rotations")
		}
	}
}

func TestGenerateYearly_HolidayLeaveByPoints(t *testing.T) {
	s, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)

	var granted []string
	for _, a := range s.Assignments {
		if a.Type == model.DutyHolidayLeave {
			assert.Equal(t, 7, a.Block, "25 December falls in block 7")
			granted = append(granted, a.ResidentID)
		}
	}
	assert.ElementsMatch(t, []string{"pgy4", "pgy1"}, granted)
}

func TestGenerateYearly_HolidayLeaveKeepsCellOpen(t *testing.T) {
	in := academicYear()
	in.Residents = []model.Resident{{ID: "solo", PGY: 2, Service: neuro, OnService: true}}
	in.Rotations = []Rotation{{Name: "ward", Kind: RotationCore, Service: neuro, MinCapacity: 1, MaxCapacity: 1}}
	in.ExternalRotators, in.OffService, in.ExamPGY = nil, nil, 0
	in.HolidayLeaveCapacity = 1

	s, err := GenerateYearly(context.Background(), in, fixedClock)
	require.NoError(t, err)

	var types []model.DutyType
	for _, a := range inBlock(s, 7) {
		types = append(types, a.Type)
	}
	assert.ElementsMatch(t, []model.DutyType{model.DutyHolidayLeave, model.DutyCoreRotation}, types)
	assert.Equal(t, 13, s.Summary.RequiredSlots)
	assert.Equal(t, 13, s.Summary.FilledSlots)
	assert.Empty(t, s.Violations)
	assert.True(t, s.IsValid)
}

func TestGenerateYearly_ApprovedLeaveSkipsBlock(t *testing.T) {
	in := academicYear()
	in.Leave = []model.LeaveInterval{
		{ResidentID: "pgy2", Start: date("2025-07-01"), End: date("2025-07-28"), Status: model.LeaveApproved},
		{ResidentID: "pgy3", Start: date("2025-07-01"), End: date("2025-07-28"), Status: model.LeavePending},
	}

	s, err := GenerateYearly(context.Background(), in, fixedClock)
	require.NoError(t, err)

	placed := map[string]bool{}
	for _, a := range inBlock(s, 1) {
		placed[a.ResidentID] = true
	}
	assert.False(t, placed["pgy2"], "approved leave covers block 1")
	assert.True(t, placed["pgy3"], "pending leave is ignored")
	assert.Equal(t, 0, countRule(s.Violations, model.RuleLeaveConflict))

	inBlock2 := false
	for _, a := range inBlock(s, 2) {
		if a.ResidentID == "pgy2" {
			inBlock2 = true
		}
	}
	assert.True(t, inBlock2, "the resident is placed again once the leave ends")
}

func TestGenerateYearly_TeamBalancing(t *testing.T) {
	s, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)

	var members []model.DutyAssignment
	for _, a := range inBlock(s, 3) {
		if a.Rotation == "ward" && a.Type == model.DutyCoreRotation {
			members = append(members, a)
		}
	}
	require.Len(t, members, 3)

	pgy := make(map[string]int)
	for _, r := range yearResidents() {
		pgy[r.ID] = r.PGY
	}

	colors := map[string]int{}
	var junior model.DutyAssignment
	seniors := 0
	for _, a := range members {
		colors[a.TeamColor]++
		switch a.TeamRole {
		case model.TeamRoleSenior:
			seniors++
		case model.TeamRoleJunior:
			junior = a
		}
	}
	assert.Equal(t, map[string]int{"red": 1, "blue": 2}, colors, "snake draft: red, blue, blue")
	assert.Equal(t, 2, seniors)
	assert.Equal(t, "blue", junior.TeamColor)
	for _, a := range members {
		assert.LessOrEqual(t, pgy[junior.ResidentID], pgy[a.ResidentID])
	}
}

func TestGenerateYearly_UnderCapacity(t *testing.T) {
	in := academicYear()
	in.Residents = []model.Resident{{ID: "solo", PGY: 2, Service: neuro, OnService: true}}
	in.Rotations = []Rotation{{Name: "ward", Kind: RotationCore, Service: neuro, MinCapacity: 2, MaxCapacity: 2}}
	in.ExternalRotators, in.OffService, in.ExamPGY, in.HolidayLeaveCapacity = nil, nil, 0, 0

	s, err := GenerateYearly(context.Background(), in, fixedClock)
	require.NoError(t, err)

	assert.Equal(t, 13, countRule(s.Violations, model.RuleUnderCapacity))
	assert.Equal(t, 26, s.Summary.RequiredSlots)
	assert.Equal(t, 13, s.Summary.FilledSlots)
	assert.False(t, s.IsValid)
}

func TestGenerateYearly_PlacementConflict(t *testing.T) {
	in := academicYear()
	in.OffService = append(in.OffService, Placement{ResidentID: "pgy1", Block: 2, Rotation: "cardiology"})

	s, err := GenerateYearly(context.Background(), in, fixedClock)
	require.NoError(t, err)

	assert.Equal(t, 1, countRule(s.Violations, model.RulePlacementConflict))
}

func TestGenerateYearly_Deterministic(t *testing.T) {
	a, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)
	b, err := GenerateYearly(context.Background(), academicYear(), fixedClock)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateYearly_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*YearlyInput)
	}{
		{"missing start", func(in *YearlyInput) { in.AcademicYearStart = date("0001-01-01") }},
		{"unknown resident", func(in *YearlyInput) {
			in.OffService = []Placement{{ResidentID: "ghost", Block: 1, Rotation: "x"}}
		}},
		{"block out of range", func(in *YearlyInput) {
			in.ExternalRotators = []Placement{{ResidentID: "visitor", Block: 14, Rotation: "ward"}}
		}},
		{"duplicate rotation", func(in *YearlyInput) { in.Rotations = append(in.Rotations, in.Rotations[0]) }},
		{"capacity", func(in *YearlyInput) {
			in.Rotations = []Rotation{{Name: "ward", Kind: RotationCore, MinCapacity: 3, MaxCapacity: 1}}
		}},
		{"unknown kind", func(in *YearlyInput) { in.Rotations = []Rotation{{Name: "ward", Kind: "other"}} }},
		{"bad holiday period", func(in *YearlyInput) { in.HolidayPeriods = []string{"13-45"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := academicYear()
			tt.mutate(&in)

			_, err := GenerateYearly(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestGenerateYearly_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GenerateYearly(ctx, academicYear())
	assert.ErrorIs(t, err, context.Canceled)
}
