package metrics

import (
	"fmt"
	"slices"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
)

// AuditInput is a finished assignment list and the context needed to re-check it
type AuditInput struct {
	Horizon     model.Horizon
	Period      model.Period
	Residents   []model.Resident
	Assignments []model.DutyAssignment
	Leave       []model.LeaveInterval
	Rules       rules.Rules
	Blocks      []model.RotationBlock
}

// Audit re-checks every scheduling invariant on the finished assignment list and
// returns one hard violation per breach. A schedule built by the drivers audits clean.
func Audit(in AuditInput) []model.Violation {
	violations := make([]model.Violation, 0)

	byResident := make(map[string][]model.DutyAssignment)
	for _, a := range in.Assignments {
		if !a.CountsTowardTotals() {
			continue
		}
		byResident[a.ResidentID] = append(byResident[a.ResidentID], a)
	}

	residents := make(map[string]model.Resident, len(in.Residents))
	for _, r := range in.Residents {
		residents[r.ID] = r
	}

	// Iterate in roster order so the report is deterministic
	ids := make([]string, 0, len(byResident))
	for _, r := range in.Residents {
		if _, ok := byResident[r.ID]; ok {
			ids = append(ids, r.ID)
		}
	}

	for _, id := range ids {
		duties := byResident[id]
		slices.SortStableFunc(duties, func(a, b model.DutyAssignment) int { return a.Date.Compare(b.Date) })

		violations = append(violations, auditDoubleBooking(in, id, duties)...)
		violations = append(violations, auditLeave(in, id, duties)...)
		if in.Horizon != model.HorizonYearly {
			violations = append(violations, auditPostCall(in, id, duties)...)
		}
		if in.Horizon == model.HorizonMonthly {
			violations = append(violations, auditParoCap(in, residents[id], duties)...)
			violations = append(violations, auditWeekendCap(in, id, duties)...)
		}
	}

	if in.Horizon == model.HorizonMonthly {
		violations = append(violations, auditSupervision(in, residents)...)
	}

	return violations
}

func hard(rule, residentID string, a model.DutyAssignment, format string, args ...any) model.Violation {
	return model.Violation{
		Severity:    model.SeverityHard,
		Rule:        rule,
		ResidentID:  residentID,
		Date:        a.Date,
		Description: fmt.Sprintf(format, args...),
	}
}

func auditDoubleBooking(in AuditInput, id string, duties []model.DutyAssignment) []model.Violation {
	var out []model.Violation
	seen := make(map[string]model.DutyType)
	for _, a := range duties {
		if in.Horizon == model.HorizonYearly && a.Type == model.DutyHolidayLeave {
			continue
		}
		key := calendar.DayKey(a.Date)
		if prev, ok := seen[key]; ok {
			out = append(out, hard(model.RuleDoubleBooking, id, a, "%s and %s on %s", prev, a.Type, key))
			continue
		}
		seen[key] = a.Type
	}
	return out
}

// auditLeave flags duties dated inside approved leave. Yearly placements are dated at
// their block start; exam and holiday leave are not duties.
func auditLeave(in AuditInput, id string, duties []model.DutyAssignment) []model.Violation {
	var out []model.Violation
	for _, a := range duties {
		if a.Type.IsLeave() {
			continue
		}
		for _, l := range in.Leave {
			if l.ResidentID == id && l.IsApproved() && l.Covers(a.Date) {
				out = append(out, hard(model.RuleLeaveConflict, id, a, "%s duty during approved leave", a.Type))
				break
			}
		}
	}
	return out
}

func auditPostCall(in AuditInput, id string, duties []model.DutyAssignment) []model.Violation {
	var out []model.Violation
	days := make(map[string]bool, len(duties))
	for _, a := range duties {
		days[calendar.DayKey(a.Date)] = true
	}
	for _, a := range duties {
		if !in.Rules.IsProtected(a.Type) {
			continue
		}
		next := calendar.NextDay(a.Date)
		if days[calendar.DayKey(next)] {
			out = append(out, hard(model.RulePostCallConflict, id, a, "duty on %s following %s", calendar.DayKey(next), a.Type))
		}
	}
	return out
}

// WorkingDays returns the days in the period minus approved leave days, minimum 1
func WorkingDays(period model.Period, leave []model.LeaveInterval, residentID string) int {
	days := calendar.EachDay(period)
	onLeave := 0
	for _, d := range days {
		for _, l := range leave {
			if l.ResidentID == residentID && l.IsApproved() && l.Covers(d) {
				onLeave++
				break
			}
		}
	}
	return max(1, len(days)-onLeave)
}

func auditParoCap(in AuditInput, r model.Resident, duties []model.DutyAssignment) []model.Violation {
	inPeriod := 0
	for _, a := range duties {
		if in.Period.Contains(a.Date) {
			inPeriod++
		}
	}
	wd := WorkingDays(in.Period, in.Leave, r.ID)
	limit := in.Rules.ParoCap(wd)
	if inPeriod <= limit {
		return nil
	}
	last := duties[len(duties)-1]
	return []model.Violation{hard(model.RuleParoCapExceeded, r.ID, last, "%d duties exceeds cap of %d for %d working days", inPeriod, limit, wd)}
}

func auditWeekendCap(in AuditInput, id string, duties []model.DutyAssignment) []model.Violation {
	var out []model.Violation
	keys := make(map[string]bool)
	perBlock := make(map[int]map[string]bool)

	for _, a := range duties {
		if !a.Type.UsesWeekendBlock(a.Date) {
			continue
		}
		key, ok := calendar.WeekendBlockKey(a.Date)
		if !ok {
			continue
		}
		if keys[key] {
			out = append(out, hard(model.RuleWeekendBlockCap, id, a, "second weekend duty in %s", key))
			continue
		}
		keys[key] = true

		block, ok := calendar.BlockForDate(a.Date, in.Blocks)
		if !ok {
			continue
		}
		if perBlock[block.Number] == nil {
			perBlock[block.Number] = make(map[string]bool)
		}
		perBlock[block.Number][key] = true
		if len(perBlock[block.Number]) > in.Rules.WeekendBlockMax {
			out = append(out, hard(model.RuleWeekendBlockCap, id, a, "%d weekend blocks in rotation block %d", len(perBlock[block.Number]), block.Number))
		}
	}
	return out
}

func auditSupervision(in AuditInput, residents map[string]model.Resident) []model.Violation {
	var out []model.Violation
	backups := make(map[string]int)
	for _, a := range in.Assignments {
		if a.Type == model.DutyBackup {
			backups[calendar.DayKey(a.Date)]++
		}
	}

	needed := make(map[string]int)
	for _, a := range in.Assignments {
		r, ok := residents[a.ResidentID]
		if !ok || r.PGY != 1 || !in.Rules.RequiresBackup(a.Type) {
			continue
		}
		key := calendar.DayKey(a.Date)
		needed[key]++
		if needed[key] > backups[key] {
			out = append(out, hard(model.RuleMissingBackup, a.ResidentID, a, "PGY-1 %s without a backup", a.Type))
		}
	}
	return out
}
