package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// ClinicLoadCap limits the number of clinic sessions per resident per week.
// Only applies to Clinic slots.
type ClinicLoadCap struct {
	max int
}

func NewClinicLoadCap(r rules.Rules) *ClinicLoadCap {
	return &ClinicLoadCap{max: r.ClinicStaffingThresholds.MaxClinicsPerResidentPerWeek}
}

func (c *ClinicLoadCap) Name() string {
	return "ClinicLoadCap"
}

func (c *ClinicLoadCap) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	if slot.Type != model.DutyClinic {
		return true
	}
	return s.ByType[model.DutyClinic] < c.max
}
