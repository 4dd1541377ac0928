package db

import "errors"

var (
	// ErrPersistence wraps every storage failure so callers can tell it apart from
	// scheduling violations
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")
)

// Resident represents a database resident record
type Resident struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	PGY           int
	Service       string
	IsChief       bool
	CallExempt    bool
	OnService     bool
	Team          string
	HolidayPoints int
}

// Leave represents a database leave record
type Leave struct {
	ID         string
	ResidentID string
	Start      string // Format: "2006-01-02"
	End        string // Format: "2006-01-02"
	Status     string
}

// Schedule represents a database schedule record.
// Document holds the full JSON schedule as exported.
type Schedule struct {
	ID          string
	Horizon     string
	PeriodKey   string
	PeriodStart string // Format: "2006-01-02"
	PeriodEnd   string // Format: "2006-01-02"
	Status      string
	GeneratedAt string // RFC3339
	PublishedAt string // RFC3339, empty until published
	Document    []byte
}

// Assignment represents a database assignment record
type Assignment struct {
	ID         string
	ScheduleID string
	ResidentID string
	Date       string // Format: "2006-01-02"
	DutyType   string
	Points     float64
	Status     string
	SlotID     string
	Service    string
	SurgeonID  string
	CaseType   string
	Hours      float64
	Rotation   string
	Block      int
	TeamRole   string
	TeamColor  string
}

// CarryOver represents a database carry-over record
type CarryOver struct {
	ID             string
	ScheduleID     string
	ResidentID     string
	SourceDate     string // Format: "2006-01-02"
	SourceDutyType string
	EffectiveDate  string // Format: "2006-01-02"
	SourcePeriod   string
	Version        int
}
