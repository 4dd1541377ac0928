package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// PGYTarget keeps residents below their PGY-based call target,
// floor(workingDays / pgyDutyRatio). Chiefs and call-exempt residents have a target of 0.
//
// This is a soft target: the shortage pass drops it, the PARO cap still applies.
type PGYTarget struct {
	rules rules.Rules
}

// PGYTargetName is the constraint name used when building the relaxed shortage pass
const PGYTargetName = "PGYTarget"

func NewPGYTarget(r rules.Rules) *PGYTarget {
	return &PGYTarget{rules: r}
}

func (c *PGYTarget) Name() string {
	return PGYTargetName
}

func (c *PGYTarget) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return s.Total < c.rules.PGYTarget(s.Resident, s.WorkingDays)
}
