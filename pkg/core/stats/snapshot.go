package stats

import (
	"slices"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// AverageTotal returns the mean committed duty count across all residents
func (t *Tracker) AverageTotal() float64 {
	if len(t.residents) == 0 {
		return 0
	}
	sum := 0
	for _, s := range t.residents {
		sum += s.Total
	}
	return float64(sum) / float64(len(t.residents))
}

// AverageTypeCount returns the mean count of one duty type across all residents
func (t *Tracker) AverageTypeCount(d model.DutyType) float64 {
	if len(t.residents) == 0 {
		return 0
	}
	sum := 0
	for _, s := range t.residents {
		sum += s.ByType[d]
	}
	return float64(sum) / float64(len(t.residents))
}

// AverageSurgeonHours returns the mean exposure hours to one surgeon across all residents
func (t *Tracker) AverageSurgeonHours(surgeonID string) float64 {
	if len(t.residents) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range t.residents {
		sum += s.SurgeonHours[surgeonID]
	}
	return sum / float64(len(t.residents))
}

// WeekendBlocksInRange counts the distinct weekend blocks a resident used between
// start and end inclusive
func (s *ResidentStatistics) WeekendBlocksInRange(start, end time.Time) int {
	count := 0
	for _, d := range s.WeekendBlocks {
		if !d.Before(start) && !d.After(end) {
			count++
		}
	}
	return count
}

// HasWeekendBlock returns true if the resident already used the weekend block key
func (s *ResidentStatistics) HasWeekendBlock(key string) bool {
	_, ok := s.WeekendBlocks[key]
	return ok
}

// HasDutyOn returns true if the resident holds a duty on date other than the ignored types.
// PostCall rows are always ignored.
func (s *ResidentStatistics) HasDutyOn(date time.Time, ignore ...model.DutyType) bool {
	for _, d := range s.DutiesOn(date) {
		if d == model.DutyPostCall || slices.Contains(ignore, d) {
			continue
		}
		return true
	}
	return false
}

// HasCallOn returns true if the resident holds a call duty on date
func (s *ResidentStatistics) HasCallOn(date time.Time) bool {
	return slices.ContainsFunc(s.DutiesOn(date), model.DutyType.IsCall)
}

// DaysSinceLastDuty returns the absolute day distance between date and the last duty.
// Returns false when the resident has never been assigned.
func (s *ResidentStatistics) DaysSinceLastDuty(date time.Time) (int, bool) {
	if !s.HasDuty {
		return 0, false
	}
	d := calendar.DaysBetween(s.LastDutyDate, date)
	if d < 0 {
		d = -d
	}
	return d, true
}
