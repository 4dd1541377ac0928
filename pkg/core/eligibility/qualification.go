package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// Qualification requires the resident to match the slot's service and PGY range.
// An empty service or a zero bound means no requirement.
type Qualification struct{}

func NewQualification() *Qualification {
	return &Qualification{}
}

func (c *Qualification) Name() string {
	return "Qualification"
}

func (c *Qualification) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	r := s.Resident
	if slot.Service != "" && r.Service != slot.Service {
		return false
	}
	if slot.MinPGY > 0 && r.PGY < slot.MinPGY {
		return false
	}
	if slot.MaxPGY > 0 && r.PGY > slot.MaxPGY {
		return false
	}
	return true
}
