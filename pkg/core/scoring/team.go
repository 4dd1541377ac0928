package scoring

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// AssistantAllowed applies the team-composition rule: the assistant must be at least
// minPGYGap levels below the primary, except that PGY-1s may join a 3-person team
// regardless of gap when the rule allows it.
func AssistantAllowed(tc rules.TeamCompositionRules, primaryPGY, assistantPGY, teamSize int) bool {
	if tc.AllowPGY1OnThreePersonTeam && teamSize >= 3 && assistantPGY == 1 {
		return true
	}
	return assistantPGY <= primaryPGY-tc.MinPGYGap
}

// SelectAssistants reruns scoring over the pool minus the primary, filtered by the
// team-composition rule, until teamSize-1 assistants are chosen or the pool runs out.
func (sc Scorer) SelectAssistants(t *stats.Tracker, pool []*stats.ResidentStatistics, primary *stats.ResidentStatistics, slot model.Slot, tc rules.TeamCompositionRules) []*stats.ResidentStatistics {
	want := slot.TeamSize - 1
	chosen := make([]*stats.ResidentStatistics, 0, max(0, want))
	taken := map[int]bool{primary.Index: true}

	for len(chosen) < want {
		remaining := make([]*stats.ResidentStatistics, 0, len(pool))
		for _, s := range pool {
			if taken[s.Index] {
				continue
			}
			if !AssistantAllowed(tc, primary.Resident.PGY, s.Resident.PGY, slot.TeamSize) {
				continue
			}
			remaining = append(remaining, s)
		}

		best := sc.Best(t, remaining, slot, RolePrimary)
		if best == nil {
			break
		}
		chosen = append(chosen, best)
		taken[best.Index] = true
	}

	return chosen
}
