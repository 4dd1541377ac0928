package model

import (
	"slices"
	"time"
)

// DutyType is the enumerated tag of a duty assignment
type DutyType string

// Call duties (monthly and weekly horizons)
const (
	DutyNight    DutyType = "Night"
	DutyWeekend  DutyType = "Weekend"
	DutyHoliday  DutyType = "Holiday"
	DutyDay      DutyType = "Day"
	Duty24h      DutyType = "24h"
	DutyBackup   DutyType = "Backup"
	DutyPostCall DutyType = "PostCall"
)

// Clinical slots (weekly horizon)
const (
	DutyOR     DutyType = "OR"
	DutyClinic DutyType = "Clinic"
)

// Rotation placements (yearly horizon)
const (
	DutyCoreRotation     DutyType = "CoreRotation"
	DutyExternalRotation DutyType = "ExternalRotation"
	DutyExamLeave        DutyType = "ExamLeave"
	DutyHolidayLeave     DutyType = "HolidayLeave"
	DutyElective         DutyType = "Elective"
)

var callDuties = []DutyType{DutyNight, DutyWeekend, DutyHoliday, DutyDay, Duty24h, DutyBackup}

// IsCall returns true for on-call duty types (PostCall is not a call)
func (d DutyType) IsCall() bool {
	return slices.Contains(callDuties, d)
}

// IsClinical returns true for weekly clinical slot types
func (d DutyType) IsClinical() bool {
	return d == DutyOR || d == DutyClinic
}

// IsLeave returns true for the leave placements of the yearly horizon
func (d DutyType) IsLeave() bool {
	return d == DutyExamLeave || d == DutyHolidayLeave
}

// UsesWeekendBlock returns true if a duty of this type on date consumes the weekend
// block of that date. A Holiday falling on Saturday or Sunday counts like a Weekend duty.
func (d DutyType) UsesWeekendBlock(date time.Time) bool {
	if d != DutyWeekend && d != DutyHoliday {
		return false
	}
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsValid returns true for any known duty type
func (d DutyType) IsValid() bool {
	switch d {
	case DutyNight, DutyWeekend, DutyHoliday, DutyDay, Duty24h, DutyBackup, DutyPostCall,
		DutyOR, DutyClinic,
		DutyCoreRotation, DutyExternalRotation, DutyExamLeave, DutyHolidayLeave, DutyElective:
		return true
	}
	return false
}

// AssignmentStatus tracks whether an assignment has been published
type AssignmentStatus string

const (
	StatusDraft     AssignmentStatus = "Draft"
	StatusPublished AssignmentStatus = "Published"
)

// Team roles set on OR teams and by yearly team balancing
const (
	TeamRolePrimary   = "Primary"
	TeamRoleAssistant = "Assistant"
	TeamRoleSenior    = "Senior"
	TeamRoleJunior    = "Junior"
)

// DutyAssignment is the unit produced by all three schedulers
type DutyAssignment struct {
	ID         string           `json:"id"`
	ResidentID string           `json:"residentId"`
	Date       time.Time        `json:"date"`
	Type       DutyType         `json:"type"`
	Points     float64          `json:"points"`
	Status     AssignmentStatus `json:"status"`

	// Slot metadata, populated depending on the horizon
	SlotID    string  `json:"slotId,omitempty"`
	Service   string  `json:"service,omitempty"`
	SurgeonID string  `json:"surgeonId,omitempty"`
	CaseType  string  `json:"caseType,omitempty"`
	Hours     float64 `json:"hours,omitempty"`
	Rotation  string  `json:"rotation,omitempty"`
	Block     int     `json:"block,omitempty"`

	// Set by the assembler or team balancing
	TeamRole  string `json:"teamRole,omitempty"`
	TeamColor string `json:"teamColor,omitempty"`
}

// CountsTowardTotals returns true if the assignment is an actual duty
// (PostCall rows are passive obligations)
func (a DutyAssignment) CountsTowardTotals() bool {
	return a.Type != DutyPostCall
}

// Severity of a schedule violation
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// Violation is one entry in the append-only violation log of a run
type Violation struct {
	Severity    Severity  `json:"severity"`
	Rule        string    `json:"rule"`
	ResidentID  string    `json:"residentId,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// CarryOver is a post-duty obligation that falls into the next period.
// It is persisted at the end of a run and consumed by the next run's initialisation.
type CarryOver struct {
	ID             string    `json:"id"`
	ResidentID     string    `json:"residentId"`
	SourceDate     time.Time `json:"sourceDate"`
	SourceDutyType DutyType  `json:"sourceDutyType"`
	EffectiveDate  time.Time `json:"effectiveDate"`
	SourcePeriod   string    `json:"sourcePeriod"`
	Version        int       `json:"version"`
}

// CarryOverVersion is the current version of the carry-over record format
const CarryOverVersion = 1

// Horizon identifies which scheduler generated a schedule
type Horizon string

const (
	HorizonYearly  Horizon = "yearly"
	HorizonMonthly Horizon = "monthly"
	HorizonWeekly  Horizon = "weekly"
)
