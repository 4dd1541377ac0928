package metrics

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
)

// DerivePostCalls returns the assignments without any PostCall rows, plus one PostCall
// row on D+1 for every protected duty on D whose following day lies inside the period
func DerivePostCalls(assignments []model.DutyAssignment, r rules.Rules, period model.Period) []model.DutyAssignment {
	out := make([]model.DutyAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Type != model.DutyPostCall {
			out = append(out, a)
		}
	}

	seen := make(map[string]bool)
	duties := len(out)
	for i := 0; i < duties; i++ {
		a := out[i]
		if !r.IsProtected(a.Type) {
			continue
		}
		next := calendar.NextDay(a.Date)
		if !period.Contains(next) {
			continue
		}
		key := a.ResidentID + "|" + calendar.DayKey(next)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, model.DutyAssignment{
			ResidentID: a.ResidentID,
			Date:       next,
			Type:       model.DutyPostCall,
			Points:     r.Points(model.DutyPostCall),
			Status:     a.Status,
			SlotID:     a.SlotID + "/postcall",
		})
	}
	return out
}

// AddCarryOverPostCalls appends a PostCall row for every carry-over whose effective date
// lies inside the period, skipping residents that already hold one on that day
func AddCarryOverPostCalls(assignments []model.DutyAssignment, carryOvers []model.CarryOver, r rules.Rules, period model.Period) []model.DutyAssignment {
	seen := make(map[string]bool)
	for _, a := range assignments {
		if a.Type == model.DutyPostCall {
			seen[a.ResidentID+"|"+calendar.DayKey(a.Date)] = true
		}
	}

	out := assignments
	for _, c := range carryOvers {
		if !period.Contains(c.EffectiveDate) {
			continue
		}
		key := c.ResidentID + "|" + calendar.DayKey(c.EffectiveDate)
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, model.DutyAssignment{
			ResidentID: c.ResidentID,
			Date:       calendar.DateOnly(c.EffectiveDate),
			Type:       model.DutyPostCall,
			Points:     r.Points(model.DutyPostCall),
			Status:     model.StatusDraft,
			SlotID:     "carryover/" + c.ID,
		})
	}
	return out
}

// DeriveCarryOvers returns a carry-over record for every protected duty whose
// post-duty day falls after the end of the period
func DeriveCarryOvers(assignments []model.DutyAssignment, r rules.Rules, period model.Period, periodKey string) []model.CarryOver {
	carryOvers := make([]model.CarryOver, 0)
	for _, a := range assignments {
		if !r.IsProtected(a.Type) {
			continue
		}
		next := calendar.NextDay(a.Date)
		if period.Contains(next) || next.Before(calendar.DateOnly(period.Start)) {
			continue
		}

		c := model.CarryOver{
			ResidentID:     a.ResidentID,
			SourceDate:     calendar.DateOnly(a.Date),
			SourceDutyType: a.Type,
			EffectiveDate:  next,
			SourcePeriod:   periodKey,
			Version:        model.CarryOverVersion,
		}
		c.ID = CarryOverID(c)
		carryOvers = append(carryOvers, c)
	}
	return carryOvers
}
