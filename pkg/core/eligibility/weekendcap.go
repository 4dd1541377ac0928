package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// WeekendBlockCap limits weekend duty to a fixed number of weekend blocks per rotation block.
//
// Validity (Weekend and Holiday duties falling on Saturday or Sunday only):
//   - Invalid if the resident already used the weekend block containing the date
//   - Invalid if the resident already used weekendBlockMax distinct weekend blocks
//     in the rotation block containing the date
//   - With no containing rotation block only the first rule applies
type WeekendBlockCap struct {
	max int
}

func NewWeekendBlockCap(r rules.Rules) *WeekendBlockCap {
	return &WeekendBlockCap{max: r.WeekendBlockMax}
}

func (c *WeekendBlockCap) Name() string {
	return "WeekendBlockCap"
}

func (c *WeekendBlockCap) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	if !slot.Type.UsesWeekendBlock(slot.Date) {
		return true
	}

	key, ok := calendar.WeekendBlockKey(slot.Date)
	if !ok {
		return true
	}
	if s.HasWeekendBlock(key) {
		return false
	}

	if slot.Block == nil {
		return true
	}
	return s.WeekendBlocksInRange(slot.Block.Start, slot.Block.End) < c.max
}
