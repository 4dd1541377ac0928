package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

func date(s string) time.Time {
	d, err := time.Parse(calendar.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTracker(t *testing.T, residents []model.Resident, prior []model.DutyAssignment) *stats.Tracker {
	t.Helper()
	tracker, err := stats.New(stats.Init{
		Residents: residents,
		Prior:     prior,
		Period:    calendar.MonthPeriod(2025, time.August),
	})
	require.NoError(t, err)
	return tracker
}

// onlyWeights returns a scorer with every weight zero except the ones set by fn
func onlyWeights(fn func(w *rules.Weights)) Scorer {
	var w rules.Weights
	fn(&w)
	return Scorer{Weights: w, WeekendBlockMax: 2, CaseTypeTargets: map[string]float64{"spine": 0.5}}
}

func TestFairness_BelowAverageScoresHigher(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "busy"}, {ID: "idle"}}, []model.DutyAssignment{
		{ResidentID: "busy", Date: date("2025-08-01"), Type: model.Duty24h},
		{ResidentID: "busy", Date: date("2025-08-03"), Type: model.Duty24h},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.Fairness = 10 })
	slot := model.Slot{Date: date("2025-08-05"), Type: model.Duty24h}

	busy, _ := tracker.Get("busy")
	idle, _ := tracker.Get("idle")
	assert.Equal(t, -10.0, sc.Score(tracker, busy, slot, RolePrimary))
	assert.Equal(t, 10.0, sc.Score(tracker, idle, slot, RolePrimary))
}

func TestSeniority_SignDependsOnRole(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "r", PGY: 4}}, nil)
	sc := onlyWeights(func(w *rules.Weights) { w.Seniority = 0.5 })
	s := tracker.At(0)
	slot := model.Slot{Date: date("2025-08-05"), Type: model.DutyNight}

	assert.Equal(t, -2.0, sc.Breakdown(tracker, s, slot, RolePrimary).Seniority)
	assert.Equal(t, 2.0, sc.Breakdown(tracker, s, slot, RoleSupervisory).Seniority)
}

func TestExemptionPenalty(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "chief", IsChief: true}, {ID: "exempt", CallExempt: true}, {ID: "r"}}, nil)
	sc := NewScorer(rules.Default(), rules.DefaultMonthlyWeights())
	slot := model.Slot{Date: date("2025-08-05"), Type: model.Duty24h}

	assert.Equal(t, -1000.0, sc.Breakdown(tracker, tracker.At(0), slot, RolePrimary).Exemption)
	assert.Equal(t, -1000.0, sc.Breakdown(tracker, tracker.At(1), slot, RolePrimary).Exemption)
	assert.Equal(t, 0.0, sc.Breakdown(tracker, tracker.At(2), slot, RolePrimary).Exemption)

	best := sc.Best(tracker, tracker.All(), slot, RolePrimary)
	assert.Equal(t, "r", best.Resident.ID, "exempt residents are last resort")
}

func TestSpacing_CappedAndNeverAssignedBonus(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "recent"}, {ID: "long"}, {ID: "never"}}, []model.DutyAssignment{
		{ResidentID: "recent", Date: date("2025-08-03"), Type: model.Duty24h},
		{ResidentID: "long", Date: date("2025-07-01"), Type: model.Duty24h},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.Spacing = 1; w.NeverAssignedBonus = 12 })
	slot := model.Slot{Date: date("2025-08-05"), Type: model.Duty24h}

	assert.Equal(t, 2.0, sc.Breakdown(tracker, tracker.At(0), slot, RolePrimary).Spacing)
	assert.Equal(t, 10.0, sc.Breakdown(tracker, tracker.At(1), slot, RolePrimary).Spacing)
	assert.Equal(t, 12.0, sc.Breakdown(tracker, tracker.At(2), slot, RolePrimary).Spacing)
}

func TestVariety(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "r"}}, []model.DutyAssignment{
		{ResidentID: "r", Date: date("2025-08-01"), Type: model.DutyNight},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.Variety = 2 })
	s := tracker.At(0)

	assert.Equal(t, 0.0, sc.Breakdown(tracker, s, model.Slot{Date: date("2025-08-05"), Type: model.DutyNight}, RolePrimary).Variety)
	assert.Equal(t, 2.0, sc.Breakdown(tracker, s, model.Slot{Date: date("2025-08-05"), Type: model.DutyDay}, RolePrimary).Variety)
}

func TestWeekendDistribution(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "used"}, {ID: "fresh"}}, []model.DutyAssignment{
		{ResidentID: "used", Date: date("2025-08-02"), Type: model.DutyWeekend},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.WeekendDistribution = 3 })
	block := &model.RotationBlock{Number: 2, Start: date("2025-07-29"), End: date("2025-08-25")}
	slot := model.Slot{Date: date("2025-08-16"), Type: model.DutyWeekend, Block: block}

	assert.Equal(t, 3.0, sc.Breakdown(tracker, tracker.At(0), slot, RolePrimary).Weekend)
	assert.Equal(t, 6.0, sc.Breakdown(tracker, tracker.At(1), slot, RolePrimary).Weekend)

	weekday := model.Slot{Date: date("2025-08-13"), Type: model.Duty24h, Block: block}
	assert.Equal(t, 0.0, sc.Breakdown(tracker, tracker.At(1), weekday, RolePrimary).Weekend)
}

func TestOnCallPenalty_ClinicalSlotsOnly(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "r"}}, []model.DutyAssignment{
		{ResidentID: "r", Date: date("2025-08-05"), Type: model.Duty24h},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.OnCallPenalty = 3 })
	s := tracker.At(0)

	assert.Equal(t, -3.0, sc.Breakdown(tracker, s, model.Slot{Date: date("2025-08-05"), Type: model.DutyClinic}, RolePrimary).OnCall)
	assert.Equal(t, 0.0, sc.Breakdown(tracker, s, model.Slot{Date: date("2025-08-06"), Type: model.DutyClinic}, RolePrimary).OnCall)
}

func TestEducationalDeficits(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "exposed"}, {ID: "new"}}, []model.DutyAssignment{
		{ResidentID: "exposed", Date: date("2025-08-04"), Type: model.DutyOR, SurgeonID: "s1", CaseType: "spine", Hours: 4},
	})
	sc := onlyWeights(func(w *rules.Weights) { w.SurgeonDeficit = 2; w.CaseTypeDeficit = 10 })
	slot := model.Slot{Date: date("2025-08-05"), Type: model.DutyOR, SurgeonID: "s1", CaseType: "spine", Hours: 4}

	exposed := sc.Breakdown(tracker, tracker.At(0), slot, RolePrimary)
	fresh := sc.Breakdown(tracker, tracker.At(1), slot, RolePrimary)

	assert.Equal(t, 0.0, exposed.SurgeonDeficit, "above average is floored at zero")
	assert.Equal(t, 4.0, fresh.SurgeonDeficit, "(2h average - 0h) x 2")
	assert.Equal(t, 0.0, exposed.CaseTypeDeficit, "100% spine is above the 50% target")
	assert.Equal(t, 5.0, fresh.CaseTypeDeficit)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	tracker := newTracker(t, []model.Resident{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	sc := NewScorer(rules.Default(), rules.DefaultMonthlyWeights())
	slot := model.Slot{Date: date("2025-08-05"), Type: model.Duty24h}

	ranked := sc.Rank(tracker, tracker.All(), slot, RolePrimary)
	require.Len(t, ranked, 3)
	assert.Equal(t, "a", ranked[0].Stats.Resident.ID)
	assert.Equal(t, "b", ranked[1].Stats.Resident.ID)
	assert.Equal(t, "a", sc.Best(tracker, tracker.All(), slot, RolePrimary).Resident.ID)
	assert.Nil(t, sc.Best(tracker, nil, slot, RolePrimary))
}

func TestAssistantAllowed(t *testing.T) {
	tc := rules.TeamCompositionRules{MinPGYGap: 1, AllowPGY1OnThreePersonTeam: true}

	assert.True(t, AssistantAllowed(tc, 4, 3, 2))
	assert.False(t, AssistantAllowed(tc, 3, 3, 2), "same level")
	assert.False(t, AssistantAllowed(tc, 1, 1, 2))
	assert.True(t, AssistantAllowed(tc, 1, 1, 3), "PGY-1 on a 3-person team")

	tc.AllowPGY1OnThreePersonTeam = false
	assert.False(t, AssistantAllowed(tc, 1, 1, 3))
}

func TestSelectAssistants(t *testing.T) {
	tracker := newTracker(t, []model.Resident{
		{ID: "p", PGY: 5},
		{ID: "a4", PGY: 4},
		{ID: "a2", PGY: 2},
		{ID: "a5", PGY: 5},
	}, nil)
	sc := NewScorer(rules.Default(), rules.DefaultWeeklyWeights())
	tc := rules.Default().TeamCompositionRules
	primary, _ := tracker.Get("p")

	slot := model.Slot{Date: date("2025-08-05"), Type: model.DutyOR, TeamSize: 3}
	chosen := sc.SelectAssistants(tracker, tracker.All(), primary, slot, tc)

	require.Len(t, chosen, 2)
	ids := []string{chosen[0].Resident.ID, chosen[1].Resident.ID}
	assert.ElementsMatch(t, []string{"a4", "a2"}, ids, "PGY-5 peer is excluded by the gap rule")
	assert.Equal(t, "a2", ids[0], "primary-role seniority favours the junior")
}
