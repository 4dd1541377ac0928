package eligibility

import (
	"slices"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// PostDutyProtection enforces post-call rest around protected duties.
//
// Validity:
//   - Invalid if the resident held a protected duty (24h, Weekend, Night, Holiday by default)
//     on the previous calendar day. Day calls do not protect.
//   - Invalid if the slot itself is protected and the resident already holds a
//     non-PostCall duty on the following day (only reachable when assignments are
//     evaluated out of chronological order, e.g. by the optimizer)
type PostDutyProtection struct {
	protected []model.DutyType
}

func NewPostDutyProtection(r rules.Rules) *PostDutyProtection {
	return &PostDutyProtection{protected: r.ProtectedDuties}
}

func (c *PostDutyProtection) Name() string {
	return "PostDutyProtection"
}

func (c *PostDutyProtection) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	for _, d := range s.DutiesOn(calendar.PreviousDay(slot.Date)) {
		if slices.Contains(c.protected, d) {
			return false
		}
	}

	if slices.Contains(c.protected, slot.Type) && s.HasDutyOn(calendar.NextDay(slot.Date)) {
		return false
	}

	return true
}
