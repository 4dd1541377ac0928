// Package eligibility enforces the hard constraints of every scheduler.
//
// A Constraint vetoes a resident for a slot. Constraints are evaluated in a fixed
// order and short-circuit on the first failure, so Explain always reports the same
// rule for the same state.
package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// Constraint defines the interface for a hard eligibility constraint
type Constraint interface {
	// Name returns a human-readable identifier for this constraint
	Name() string

	// Allows returns false if assigning the resident to the slot would violate the constraint
	// This acts as a veto - if ANY constraint returns false, the resident is not eligible
	Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool
}

// Filter returns every resident satisfying all constraints, in stable index order
func Filter(t *stats.Tracker, slot model.Slot, constraints []Constraint) []*stats.ResidentStatistics {
	eligible := make([]*stats.ResidentStatistics, 0, t.Len())
	for _, s := range t.All() {
		if Explain(t, s, slot, constraints) == "" {
			eligible = append(eligible, s)
		}
	}
	return eligible
}

// Explain returns the name of the first constraint rejecting the resident, or "" if eligible
func Explain(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot, constraints []Constraint) string {
	for _, c := range constraints {
		if !c.Allows(t, s, slot) {
			return c.Name()
		}
	}
	return ""
}

// Without returns the constraints minus those with the given names, preserving order
func Without(constraints []Constraint, names ...string) []Constraint {
	kept := make([]Constraint, 0, len(constraints))
outer:
	for _, c := range constraints {
		for _, n := range names {
			if c.Name() == n {
				continue outer
			}
		}
		kept = append(kept, c)
	}
	return kept
}
