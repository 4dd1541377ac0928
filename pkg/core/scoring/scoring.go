// Package scoring ranks eligible residents for a slot.
//
// Scores are additive over independent terms, each multiplied by a weight from the
// scheduler's rules.Weights vector. The maximum score wins and ties keep the stable
// tracker order, so a run is fully deterministic for the same inputs.
package scoring

import (
	"math"
	"slices"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// Role changes the sign of the seniority term
type Role int

const (
	// RolePrimary protects senior time: higher PGY scores lower
	RolePrimary Role = iota
	// RoleSupervisory favours senior residents (backup, OR primary, team senior)
	RoleSupervisory
)

// Scorer holds the weight vector and the rules needed by the terms
type Scorer struct {
	Weights         rules.Weights
	WeekendBlockMax int
	CaseTypeTargets map[string]float64
}

// NewScorer builds a scorer from the rules and one of its weight vectors
func NewScorer(r rules.Rules, w rules.Weights) Scorer {
	return Scorer{
		Weights:         w,
		WeekendBlockMax: r.WeekendBlockMax,
		CaseTypeTargets: r.CaseTypeTargets,
	}
}

// Breakdown is the per-term contribution to a candidate's score
type Breakdown struct {
	Fairness        float64
	Seniority       float64
	Exemption       float64
	Spacing         float64
	Variety         float64
	Weekend         float64
	OnCall          float64
	SurgeonDeficit  float64
	CaseTypeDeficit float64
}

// Total sums every term
func (b Breakdown) Total() float64 {
	return b.Fairness + b.Seniority + b.Exemption + b.Spacing + b.Variety +
		b.Weekend + b.OnCall + b.SurgeonDeficit + b.CaseTypeDeficit
}

// Breakdown computes every scoring term for one candidate
func (sc Scorer) Breakdown(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot, role Role) Breakdown {
	w := sc.Weights
	var b Breakdown

	// Residents below average score higher
	b.Fairness = (t.AverageTotal() - float64(s.Total)) * w.Fairness

	b.Seniority = float64(s.Resident.PGY) * w.Seniority
	if role == RolePrimary {
		b.Seniority = -b.Seniority
	}

	if s.Resident.IsExempt() {
		b.Exemption = -w.ExemptionPenalty
	}

	if days, ok := s.DaysSinceLastDuty(slot.Date); ok {
		b.Spacing = float64(min(rules.MaxSpacingDays, days)) * w.Spacing
	} else {
		b.Spacing = w.NeverAssignedBonus
	}

	if !slices.Contains(s.Recent(), slot.Type) {
		b.Variety = w.Variety
	}

	if (slot.Type == model.DutyWeekend || slot.Type == model.DutyHoliday) && calendar.IsWeekend(slot.Date) && slot.Block != nil {
		used := s.WeekendBlocksInRange(slot.Block.Start, slot.Block.End)
		b.Weekend = float64(max(0, sc.WeekendBlockMax-used)) * w.WeekendDistribution
	}

	if !slot.Type.IsCall() && s.HasCallOn(slot.Date) {
		b.OnCall = -w.OnCallPenalty
	}

	if slot.SurgeonID != "" {
		deficit := t.AverageSurgeonHours(slot.SurgeonID) - s.SurgeonHours[slot.SurgeonID]
		b.SurgeonDeficit = math.Max(0, deficit) * w.SurgeonDeficit
	}

	if slot.CaseType != "" {
		if target, ok := sc.CaseTypeTargets[slot.CaseType]; ok {
			share := 0.0
			if total := s.TotalCaseTypeHours(); total > 0 {
				share = s.CaseTypeHours[slot.CaseType] / total
			}
			b.CaseTypeDeficit = math.Max(0, target-share) * w.CaseTypeDeficit
		}
	}

	return b
}

// Score returns the total score of one candidate
func (sc Scorer) Score(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot, role Role) float64 {
	return sc.Breakdown(t, s, slot, role).Total()
}

// Candidate is a scored resident
type Candidate struct {
	Stats *stats.ResidentStatistics
	Score float64
}

// Rank scores every candidate and returns them best first. Ties keep input order.
func (sc Scorer) Rank(t *stats.Tracker, candidates []*stats.ResidentStatistics, slot model.Slot, role Role) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, s := range candidates {
		ranked = append(ranked, Candidate{Stats: s, Score: sc.Score(t, s, slot, role)})
	}
	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return ranked
}

// Best returns the top candidate, or nil for an empty pool
func (sc Scorer) Best(t *stats.Tracker, candidates []*stats.ResidentStatistics, slot model.Slot, role Role) *stats.ResidentStatistics {
	var best *stats.ResidentStatistics
	bestScore := math.Inf(-1)
	for _, s := range candidates {
		score := sc.Score(t, s, slot, role)
		if score > bestScore {
			best = s
			bestScore = score
		}
	}
	return best
}
