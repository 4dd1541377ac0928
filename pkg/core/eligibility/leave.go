package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// ApprovedLeave excludes residents with an approved leave interval covering the slot date.
// Pending and denied requests are ignored.
type ApprovedLeave struct{}

func NewApprovedLeave() *ApprovedLeave {
	return &ApprovedLeave{}
}

func (c *ApprovedLeave) Name() string {
	return "ApprovedLeave"
}

func (c *ApprovedLeave) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return !s.OnLeave(slot.Date)
}
