package model

import "time"

// LeaveStatus is the approval state of a leave request
type LeaveStatus string

const (
	LeaveApproved LeaveStatus = "Approved"
	LeavePending  LeaveStatus = "Pending"
	LeaveDenied   LeaveStatus = "Denied"
)

// Resident represents a resident on the program roster.
// Residents are loaded once per generation run and never mutated by the engine.
type Resident struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	PGY        int    `json:"pgy"`
	Service    string `json:"service"`
	IsChief    bool   `json:"isChief"`
	CallExempt bool   `json:"callExempt"`
	OnService  bool   `json:"onService"`
	Team       string `json:"team,omitempty"`

	// HolidayPoints ranks residents for holiday leave in the yearly horizon
	// (higher points are served first)
	HolidayPoints int `json:"holidayPoints,omitempty"`
}

// FullName returns "FirstName LastName"
func (r Resident) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// IsExempt reports whether the resident should only be used as a last resort for call
func (r Resident) IsExempt() bool {
	return r.IsChief || r.CallExempt
}

// LeaveInterval is a leave request covering Start..End inclusive
type LeaveInterval struct {
	ID         string      `json:"id"`
	ResidentID string      `json:"residentId"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Status     LeaveStatus `json:"status"`
}

// IsApproved returns true if the interval participates in eligibility
func (l LeaveInterval) IsApproved() bool {
	return l.Status == LeaveApproved
}

// Covers returns true if date falls within the interval (calendar-date comparison)
func (l LeaveInterval) Covers(date time.Time) bool {
	d := dateKey(date)
	return d >= dateKey(l.Start) && d <= dateKey(l.End)
}

// RotationBlock is one fixed block of the academic year
type RotationBlock struct {
	Number    int       `json:"number"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	IsHoliday bool      `json:"isHoliday"`
}

// Contains returns true if date falls within the block (inclusive)
func (b RotationBlock) Contains(date time.Time) bool {
	d := dateKey(date)
	return d >= dateKey(b.Start) && d <= dateKey(b.End)
}

// Period is an inclusive date range
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains returns true if date falls within the period (inclusive)
func (p Period) Contains(date time.Time) bool {
	d := dateKey(date)
	return d >= dateKey(p.Start) && d <= dateKey(p.End)
}

// Days returns the number of calendar days in the period
func (p Period) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	start := time.Date(p.Start.Year(), p.Start.Month(), p.Start.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(p.End.Year(), p.End.Month(), p.End.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}

// dateKey formats a date as YYYY-MM-DD so that string comparison orders dates
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
