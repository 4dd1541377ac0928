package scheduler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
)

// randomRoster builds a roster of n residents with random PGY levels and leave
func randomRoster(rng *rand.Rand, n int, period model.Period) ([]model.Resident, []model.LeaveInterval) {
	residents := make([]model.Resident, n)
	var leave []model.LeaveInterval
	statuses := []model.LeaveStatus{model.LeaveApproved, model.LeaveApproved, model.LeavePending, model.LeaveDenied}

	for i := range residents {
		residents[i] = model.Resident{
			ID:         fmt.Sprintf("res-%02d", i),
			FirstName:  fmt.Sprintf("Resident %d", i),
			PGY:        1 + rng.IntN(6),
			CallExempt: rng.IntN(10) == 0,
		}

		for j := 0; j < rng.IntN(3); j++ {
			start := period.Start.AddDate(0, 0, rng.IntN(period.Days()))
			leave = append(leave, model.LeaveInterval{
				ID:         fmt.Sprintf("leave-%02d-%d", i, j),
				ResidentID: residents[i].ID,
				Start:      start,
				End:        start.AddDate(0, 0, rng.IntN(6)),
				Status:     statuses[rng.IntN(len(statuses))],
			})
		}
	}
	return residents, leave
}

// checkMonthlyInvariants verifies the scheduling invariants directly on the assignment list
func checkMonthlyInvariants(t *testing.T, r rules.Rules, residents []model.Resident, leave []model.LeaveInterval, period model.Period, blocks []model.RotationBlock, assignments []model.DutyAssignment, checkCap bool) {
	t.Helper()

	byDay := make(map[string]map[string]model.DutyType)
	counts := make(map[string]int)
	weekendKeys := make(map[string]map[int]map[string]bool)

	for _, a := range assignments {
		if !a.CountsTowardTotals() {
			continue
		}
		key := calendar.DayKey(a.Date)

		// No double booking
		if byDay[a.ResidentID] == nil {
			byDay[a.ResidentID] = make(map[string]model.DutyType)
		}
		_, taken := byDay[a.ResidentID][key]
		assert.False(t, taken, "%s double booked on %s", a.ResidentID, key)
		byDay[a.ResidentID][key] = a.Type

		// Leave exclusion
		for _, l := range leave {
			if l.ResidentID == a.ResidentID && l.IsApproved() {
				assert.False(t, l.Covers(a.Date), "%s assigned %s during leave on %s", a.ResidentID, a.Type, key)
			}
		}

		if period.Contains(a.Date) {
			counts[a.ResidentID]++
		}

		if a.Type == model.DutyWeekend {
			wb, ok := calendar.WeekendBlockKey(a.Date)
			block, inBlock := calendar.BlockForDate(a.Date, blocks)
			if ok && inBlock {
				if weekendKeys[a.ResidentID] == nil {
					weekendKeys[a.ResidentID] = make(map[int]map[string]bool)
				}
				if weekendKeys[a.ResidentID][block.Number] == nil {
					weekendKeys[a.ResidentID][block.Number] = make(map[string]bool)
				}
				weekendKeys[a.ResidentID][block.Number][wb] = true
			}
		}
	}

	// Post-call exclusion
	for id, days := range byDay {
		for key, d := range days {
			if !r.IsProtected(d) {
				continue
			}
			day, err := calendar.ParseDate(key)
			require.NoError(t, err)
			_, next := days[calendar.DayKey(calendar.NextDay(day))]
			assert.False(t, next, "%s has a duty the day after %s on %s", id, d, key)
		}
	}

	// Numeric cap
	for _, res := range residents {
		if !checkCap {
			break
		}
		wd := metrics.WorkingDays(period, leave, res.ID)
		assert.LessOrEqual(t, counts[res.ID], r.ParoCap(wd), "%s over the PARO cap", res.ID)
	}

	// Weekend cap
	for id, perBlock := range weekendKeys {
		for block, keys := range perBlock {
			assert.LessOrEqual(t, len(keys), r.WeekendBlockMax, "%s weekend blocks in rotation block %d", id, block)
		}
	}
}

func TestGenerateMonthly_InvariantsHoldForRandomRosters(t *testing.T) {
	blocks := calendar.GenerateRotationBlocks(date("2025-07-01"), calendar.BlocksPerYear, calendar.BlockLengthDays, nil)
	months := []time.Month{time.July, time.August, time.September, time.December, time.February}

	for seed := uint64(1); seed <= 6; seed++ {
		for _, month := range months {
			year := 2025
			if month < time.July {
				year = 2026
			}
			name := fmt.Sprintf("seed=%d/%s", seed, calendar.MonthKey(year, month))

			t.Run(name, func(t *testing.T) {
				rng := rand.New(rand.NewPCG(seed, uint64(month)))
				period := calendar.MonthPeriod(year, month)
				residents, leave := randomRoster(rng, 3+rng.IntN(10), period)

				r := testRules()
				r.Optimization.Iterations = 100
				r.Optimization.Seed = int64(seed)

				in := MonthlyInput{
					Input: Input{
						Residents: residents,
						Leave:     leave,
						Rules:     r,
						Holidays:  calendar.NewHolidays(date("2025-12-25"), date("2025-09-01")),
						Blocks:    blocks,
					},
					Year:  year,
					Month: month,
				}

				s, err := GenerateMonthly(context.Background(), in, fixedClock)
				require.NoError(t, err)

				checkMonthlyInvariants(t, r, residents, leave, period, blocks, s.Assignments, true)

				// Re-audit finds nothing the drivers let through
				for _, v := range s.Violations {
					assert.NotContains(t, []string{
						model.RuleDoubleBooking, model.RuleLeaveConflict, model.RulePostCallConflict,
						model.RuleParoCapExceeded, model.RuleWeekendBlockCap,
					}, v.Rule)
				}

				// Totals reconcile with the committed assignments
				assert.Equal(t, metrics.DutyCounts(s.Assignments), nonZero(totals(s)))
			})
		}
	}
}

func TestGenerateMonthly_ChainedMonthsKeepInvariantsAcrossBoundary(t *testing.T) {
	blocks := calendar.GenerateRotationBlocks(date("2025-07-01"), calendar.BlocksPerYear, calendar.BlockLengthDays, nil)
	r := testRules()
	residents := sixResidents()

	aug, err := GenerateMonthly(context.Background(), MonthlyInput{
		Input: Input{Residents: residents, Rules: r, Blocks: blocks},
		Year:  2025, Month: time.August,
	}, fixedClock)
	require.NoError(t, err)

	sep, err := GenerateMonthly(context.Background(), MonthlyInput{
		Input: Input{
			Residents:  residents,
			Rules:      r,
			Blocks:     blocks,
			Prior:      aug.Assignments,
			CarryOvers: aug.CarryOvers,
		},
		Year:  2025, Month: time.September,
	}, fixedClock)
	require.NoError(t, err)

	both := append(append([]model.DutyAssignment(nil), aug.Assignments...), sep.Assignments...)
	period := model.Period{Start: aug.Period.Start, End: sep.Period.End}

	// The PARO cap is per month, so only the boundary-crossing invariants are checked
	// over the combined list
	checkMonthlyInvariants(t, r, residents, nil, period, blocks, both, false)
}

func TestWeekly_InvariantsWithCallHistory(t *testing.T) {
	monthly, err := GenerateMonthly(context.Background(), august(neuroResidents(), testRules()), fixedClock)
	require.NoError(t, err)

	in := week(neuroResidents())
	in.CallHistory = monthly.Assignments
	in.ORSlots = []ORTemplate{
		{ID: "or-mon", Weekday: time.Monday, Service: neuro, MinPGY: 3, TeamSize: 2, SurgeonID: "dr-a", CaseType: "spine", Hours: 8},
		{ID: "or-wed", Weekday: time.Wednesday, Service: neuro, MinPGY: 3, TeamSize: 3, SurgeonID: "dr-b", CaseType: "cranial", Hours: 10},
	}
	in.Clinics = []ClinicTemplate{
		{ID: "clinic-tue", Weekday: time.Tuesday, Service: neuro, Residents: 2},
		{ID: "clinic-thu", Weekday: time.Thursday, Service: neuro, Residents: 2},
	}

	s, err := GenerateWeekly(context.Background(), in, fixedClock)
	require.NoError(t, err)

	protectedBefore := make(map[string]bool)
	for _, a := range monthly.Assignments {
		if in.Rules.IsProtected(a.Type) {
			protectedBefore[a.ResidentID+"|"+calendar.DayKey(calendar.NextDay(a.Date))] = true
		}
	}

	seen := make(map[string]bool)
	for _, a := range s.Assignments {
		key := a.ResidentID + "|" + calendar.DayKey(a.Date)
		assert.False(t, seen[key], "double booked clinical slot %s", key)
		seen[key] = true
		assert.False(t, protectedBefore[key], "clinical slot %s right after a protected call", key)
		assert.True(t, a.Type.IsClinical())
	}
}

func nonZero(m map[string]int) map[string]int {
	out := make(map[string]int)
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}
