package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// MinimumSeniority restricts a pass to residents at or above a PGY level (backup supervision)
type MinimumSeniority struct {
	minPGY int
}

func NewMinimumSeniority(minPGY int) *MinimumSeniority {
	return &MinimumSeniority{minPGY: minPGY}
}

func (c *MinimumSeniority) Name() string {
	return "MinimumSeniority"
}

func (c *MinimumSeniority) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return s.Resident.PGY >= c.minPGY
}
