package model

import "time"

// Slot is one unit of demand the greedy drivers try to fill: a call on a date,
// an OR team or clinic session, or a rotation cell of a block.
type Slot struct {
	ID   string
	Date time.Time
	Type DutyType

	// Qualification requirements ("" / 0 means any)
	Service string
	MinPGY  int
	MaxPGY  int

	// Weekly clinical metadata
	SurgeonID string
	CaseType  string
	Hours     float64
	TeamSize  int

	// Yearly rotation metadata
	Rotation string

	// Block is the rotation block containing Date, nil when none is configured
	Block *RotationBlock
}

// Assignment builds the duty assignment that fills this slot with the resident
func (s Slot) Assignment(residentID string, points float64) DutyAssignment {
	a := DutyAssignment{
		ResidentID: residentID,
		Date:       s.Date,
		Type:       s.Type,
		Points:     points,
		Status:     StatusDraft,
		SlotID:     s.ID,
		Service:    s.Service,
		SurgeonID:  s.SurgeonID,
		CaseType:   s.CaseType,
		Hours:      s.Hours,
		Rotation:   s.Rotation,
	}
	if s.Block != nil {
		a.Block = s.Block.Number
	}
	return a
}
