// Package metrics assembles finished assignments into a schedule document and
// computes its analytics: Gini coefficient, coverage rate, per-resident distribution
// and an invariant audit.
package metrics

import (
	"slices"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// Schedule is the output document of one generation run
type Schedule struct {
	ID          string                 `json:"id"`
	Horizon     model.Horizon          `json:"horizon"`
	PeriodKey   string                 `json:"periodKey"`
	Period      model.Period           `json:"period"`
	Assignments []model.DutyAssignment `json:"assignments"`
	Violations  []model.Violation      `json:"violations"`
	CarryOvers  []model.CarryOver      `json:"carryOvers"`
	Summary     Summary                `json:"summary"`
	GeneratedAt time.Time              `json:"generatedAt"`

	// IsValid is false whenever any hard violation was recorded
	IsValid bool `json:"isValid"`
}

// Summary holds the summary analytics of a schedule
type Summary struct {
	// Gini is computed over per-resident non-PostCall duty counts
	Gini float64 `json:"gini"`

	// PointsGini is computed over per-resident points (the optimizer objective)
	PointsGini float64 `json:"pointsGini"`

	CoverageRate   float64 `json:"coverageRate"`
	RequiredSlots  int     `json:"requiredSlots"`
	FilledSlots    int     `json:"filledSlots"`
	HardViolations int     `json:"hardViolations"`
	SoftViolations int     `json:"softViolations"`

	Distribution []ResidentDistribution `json:"distribution"`
}

// ResidentDistribution is the per-resident share of a schedule
type ResidentDistribution struct {
	ResidentID string                 `json:"residentId"`
	Name       string                 `json:"name"`
	PGY        int                    `json:"pgy"`
	Total      int                    `json:"total"`
	Points     float64                `json:"points"`
	ByType     map[model.DutyType]int `json:"byType"`
}

// AssembleInput is everything the assembler needs to produce a document
type AssembleInput struct {
	Horizon       model.Horizon
	PeriodKey     string
	Period        model.Period
	Residents     []model.Resident
	Assignments   []model.DutyAssignment
	Violations    []model.Violation
	CarryOvers    []model.CarryOver
	RequiredSlots int
	FilledSlots   int
	GeneratedAt   time.Time
}

// Assemble packages the run output into a schedule document. Assignments are sorted
// chronologically and receive deterministic IDs.
func Assemble(in AssembleInput) Schedule {
	id := ScheduleID(in.Horizon, in.PeriodKey)

	assignments := slices.Clone(in.Assignments)
	slices.SortStableFunc(assignments, func(a, b model.DutyAssignment) int { return a.Date.Compare(b.Date) })
	for i := range assignments {
		assignments[i].ID = AssignmentID(id, assignments[i])
	}

	violations := slices.Clone(in.Violations)
	if violations == nil {
		violations = []model.Violation{}
	}
	carryOvers := slices.Clone(in.CarryOvers)
	if carryOvers == nil {
		carryOvers = []model.CarryOver{}
	}

	summary := Summarize(in.Residents, assignments)
	summary.RequiredSlots = in.RequiredSlots
	summary.FilledSlots = in.FilledSlots
	summary.CoverageRate = CoverageRate(in.FilledSlots, in.RequiredSlots)
	summary.HardViolations = model.HardCount(violations)
	summary.SoftViolations = model.SoftCount(violations)

	return Schedule{
		ID:          id,
		Horizon:     in.Horizon,
		PeriodKey:   in.PeriodKey,
		Period:      in.Period,
		Assignments: assignments,
		Violations:  violations,
		CarryOvers:  carryOvers,
		Summary:     summary,
		GeneratedAt: in.GeneratedAt,
		IsValid:     summary.HardViolations == 0,
	}
}

// Summarize computes the per-resident distribution and both Gini coefficients.
// Slot and violation counters are left zero.
func Summarize(residents []model.Resident, assignments []model.DutyAssignment) Summary {
	index := make(map[string]int, len(residents))
	dist := make([]ResidentDistribution, len(residents))
	for i, r := range residents {
		index[r.ID] = i
		dist[i] = ResidentDistribution{
			ResidentID: r.ID,
			Name:       r.FullName(),
			PGY:        r.PGY,
			ByType:     make(map[model.DutyType]int),
		}
	}

	for _, a := range assignments {
		i, ok := index[a.ResidentID]
		if !ok || !a.CountsTowardTotals() {
			continue
		}
		dist[i].Total++
		dist[i].Points += a.Points
		dist[i].ByType[a.Type]++
	}

	counts := make([]float64, len(dist))
	points := make([]float64, len(dist))
	for i, d := range dist {
		counts[i] = float64(d.Total)
		points[i] = d.Points
	}

	return Summary{
		Gini:         Gini(counts),
		PointsGini:   Gini(points),
		Distribution: dist,
	}
}

// DutyCounts returns the non-PostCall duty count per resident
func DutyCounts(assignments []model.DutyAssignment) map[string]int {
	counts := make(map[string]int)
	for _, a := range assignments {
		if a.CountsTowardTotals() {
			counts[a.ResidentID]++
		}
	}
	return counts
}
