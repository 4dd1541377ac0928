package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// AlreadyAssignedToday excludes residents who already hold a duty on the slot date.
//
// Validity:
//   - PostCall rows never block (they are passive obligations)
//   - Duty types listed in Ignore never block (the weekly horizon ignores call duties,
//     the yearly horizon ignores the holiday-leave overlay)
type AlreadyAssignedToday struct {
	Ignore []model.DutyType
}

// NewAlreadyAssignedToday creates the constraint, ignoring the given duty types
func NewAlreadyAssignedToday(ignore ...model.DutyType) *AlreadyAssignedToday {
	return &AlreadyAssignedToday{Ignore: ignore}
}

func (c *AlreadyAssignedToday) Name() string {
	return "AlreadyAssignedToday"
}

func (c *AlreadyAssignedToday) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return !s.HasDutyOn(slot.Date, c.Ignore...)
}
