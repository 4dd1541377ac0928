package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// ParoCap enforces the regulatory duty ceiling derived from working days.
// The cap is never relaxed, including in shortage mode and for backups.
type ParoCap struct {
	rules rules.Rules
}

func NewParoCap(r rules.Rules) *ParoCap {
	return &ParoCap{rules: r}
}

func (c *ParoCap) Name() string {
	return "ParoCap"
}

func (c *ParoCap) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return s.Total < c.rules.ParoCap(s.WorkingDays)
}
