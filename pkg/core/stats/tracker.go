// Package stats maintains the per-resident running counters of one generation run.
//
// The Tracker holds a single ResidentStatistics record per resident, indexed by a
// stable integer. Every counter is mutated exclusively through Record so that totals
// and per-type counts always reconcile with the committed assignments.
package stats

import (
	"fmt"
	"slices"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// RecentHistorySize is the number of most recent duty types kept for the variety term
const RecentHistorySize = 5

// ResidentStatistics is the mutable record of one resident for the current run
type ResidentStatistics struct {
	// Index is the stable position of the resident in the tracker
	Index    int
	Resident model.Resident

	// WorkingDays is days in period minus approved leave days (minimum 1)
	WorkingDays int

	// Total counts committed non-PostCall duties in the period
	Total  int
	ByType map[model.DutyType]int
	Points float64

	// LastDutyDate is the most recent non-PostCall duty date, including prior periods
	LastDutyDate time.Time
	HasDuty      bool

	// AssignedToday is set by Record for the day opened by BeginDay
	AssignedToday bool

	// WeekendBlocks maps weekend block keys used to the date of the weekend or
	// weekend-dated holiday duty
	WeekendBlocks map[string]time.Time

	SurgeonHours  map[string]float64
	CaseTypeHours map[string]float64

	recent []model.DutyType
	days   map[string][]model.DutyType
	leave  []model.LeaveInterval
}

// DutiesOn returns every duty type held on date, including history and PostCall rows
func (s *ResidentStatistics) DutiesOn(date time.Time) []model.DutyType {
	return s.days[calendar.DayKey(date)]
}

// OnLeave returns true if an approved leave interval covers date
func (s *ResidentStatistics) OnLeave(date time.Time) bool {
	for _, l := range s.leave {
		if l.Covers(date) {
			return true
		}
	}
	return false
}

// Recent returns the last duty types in chronological order (at most RecentHistorySize)
func (s *ResidentStatistics) Recent() []model.DutyType {
	return s.recent
}

// TotalCaseTypeHours sums the exposure hours over all case types
func (s *ResidentStatistics) TotalCaseTypeHours() float64 {
	total := 0.0
	for _, h := range s.CaseTypeHours {
		total += h
	}
	return total
}

// Init holds everything the tracker is seeded from
type Init struct {
	Residents []model.Resident

	// Prior assignments inside the period seed counts; outside the period they
	// only seed history (last duty, recent types, post-duty and weekend lookups)
	Prior []model.DutyAssignment

	// History assignments seed history only, regardless of date
	History []model.DutyAssignment

	// CarryOvers from the previous period seed post-duty protection
	CarryOvers []model.CarryOver

	Leave  []model.LeaveInterval
	Period model.Period
}

// Tracker owns the statistics table of one run. It is not safe for concurrent use.
type Tracker struct {
	period    model.Period
	residents []*ResidentStatistics
	index     map[string]int
	today     time.Time
}

// New builds a tracker from the run inputs
func New(init Init) (*Tracker, error) {
	t := &Tracker{
		period:    init.Period,
		residents: make([]*ResidentStatistics, 0, len(init.Residents)),
		index:     make(map[string]int, len(init.Residents)),
	}

	for i, r := range init.Residents {
		if _, exists := t.index[r.ID]; exists {
			return nil, fmt.Errorf("duplicate resident id %q", r.ID)
		}
		t.index[r.ID] = i
		t.residents = append(t.residents, &ResidentStatistics{
			Index:         i,
			Resident:      r,
			ByType:        make(map[model.DutyType]int),
			WeekendBlocks: make(map[string]time.Time),
			SurgeonHours:  make(map[string]float64),
			CaseTypeHours: make(map[string]float64),
			days:          make(map[string][]model.DutyType),
		})
	}

	// Approved leave only; unknown residents are ignored
	for _, l := range init.Leave {
		if !l.IsApproved() {
			continue
		}
		if s, ok := t.Get(l.ResidentID); ok {
			s.leave = append(s.leave, l)
		}
	}

	days := calendar.EachDay(init.Period)
	for _, s := range t.residents {
		leaveDays := 0
		for _, d := range days {
			if s.OnLeave(d) {
				leaveDays++
			}
		}
		s.WorkingDays = max(1, len(days)-leaveDays)
	}

	// Carry-overs seed the source duty as history so the post-duty lookup sees it
	for _, c := range init.CarryOvers {
		s, ok := t.Get(c.ResidentID)
		if !ok {
			continue
		}
		t.addHistory(s, model.DutyAssignment{ResidentID: c.ResidentID, Date: c.SourceDate, Type: c.SourceDutyType})
	}

	prior := slices.Clone(init.Prior)
	slices.SortStableFunc(prior, func(a, b model.DutyAssignment) int { return a.Date.Compare(b.Date) })
	for _, a := range prior {
		s, ok := t.Get(a.ResidentID)
		if !ok {
			continue
		}
		if init.Period.Contains(a.Date) {
			t.count(s, a)
		}
		t.addHistory(s, a)
	}

	history := slices.Clone(init.History)
	slices.SortStableFunc(history, func(a, b model.DutyAssignment) int { return a.Date.Compare(b.Date) })
	for _, a := range history {
		if s, ok := t.Get(a.ResidentID); ok {
			t.addHistory(s, a)
		}
	}

	return t, nil
}

// Period returns the bounds the tracker was built for
func (t *Tracker) Period() model.Period {
	return t.period
}

// Len returns the number of residents
func (t *Tracker) Len() int {
	return len(t.residents)
}

// At returns the statistics at a stable index
func (t *Tracker) At(i int) *ResidentStatistics {
	return t.residents[i]
}

// All returns the statistics table in stable index order
func (t *Tracker) All() []*ResidentStatistics {
	return t.residents
}

// Get returns the statistics of a resident by ID
func (t *Tracker) Get(residentID string) (*ResidentStatistics, bool) {
	i, ok := t.index[residentID]
	if !ok {
		return nil, false
	}
	return t.residents[i], true
}

// BeginDay opens a new time step, resetting every same-day flag
func (t *Tracker) BeginDay(date time.Time) {
	t.today = calendar.DateOnly(date)
	for _, s := range t.residents {
		s.AssignedToday = false
	}
}

// Today returns the date opened by the last BeginDay call
func (t *Tracker) Today() time.Time {
	return t.today
}

// Record applies a committed assignment to the statistics of its resident.
// PostCall rows are kept in the history only and never count.
func (t *Tracker) Record(a model.DutyAssignment) error {
	s, ok := t.Get(a.ResidentID)
	if !ok {
		return fmt.Errorf("unknown resident %q", a.ResidentID)
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("unknown duty type %q", a.Type)
	}

	t.count(s, a)
	t.addHistory(s, a)

	if a.CountsTowardTotals() && !t.today.IsZero() && calendar.IsSameDay(a.Date, t.today) {
		s.AssignedToday = true
	}
	return nil
}

func (t *Tracker) count(s *ResidentStatistics, a model.DutyAssignment) {
	if !a.CountsTowardTotals() {
		return
	}
	s.Total++
	s.ByType[a.Type]++
	s.Points += a.Points

	if a.SurgeonID != "" {
		s.SurgeonHours[a.SurgeonID] += a.Hours
	}
	if a.CaseType != "" {
		s.CaseTypeHours[a.CaseType] += a.Hours
	}
}

func (t *Tracker) addHistory(s *ResidentStatistics, a model.DutyAssignment) {
	key := calendar.DayKey(a.Date)
	s.days[key] = append(s.days[key], a.Type)

	if !a.CountsTowardTotals() {
		return
	}

	date := calendar.DateOnly(a.Date)
	if !s.HasDuty || date.After(s.LastDutyDate) {
		s.LastDutyDate = date
	}
	s.HasDuty = true

	s.recent = append(s.recent, a.Type)
	if len(s.recent) > RecentHistorySize {
		s.recent = s.recent[len(s.recent)-RecentHistorySize:]
	}

	if a.Type.UsesWeekendBlock(a.Date) {
		if wb, ok := calendar.WeekendBlockKey(a.Date); ok {
			if _, seen := s.WeekendBlocks[wb]; !seen {
				s.WeekendBlocks[wb] = date
			}
		}
	}
}
