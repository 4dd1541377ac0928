package db

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// ResidentFromModel converts a roster resident into a record
func ResidentFromModel(r model.Resident) Resident {
	return Resident{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PGY:           r.PGY,
		Service:       r.Service,
		IsChief:       r.IsChief,
		CallExempt:    r.CallExempt,
		OnService:     r.OnService,
		Team:          r.Team,
		HolidayPoints: r.HolidayPoints,
	}
}

// ToModel converts the record into a roster resident
func (r Resident) ToModel() model.Resident {
	return model.Resident{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		PGY:           r.PGY,
		Service:       r.Service,
		IsChief:       r.IsChief,
		CallExempt:    r.CallExempt,
		OnService:     r.OnService,
		Team:          r.Team,
		HolidayPoints: r.HolidayPoints,
	}
}

// LeaveFromModel converts a leave interval into a record
func LeaveFromModel(l model.LeaveInterval) Leave {
	return Leave{
		ID:         l.ID,
		ResidentID: l.ResidentID,
		Start:      calendar.DayKey(l.Start),
		End:        calendar.DayKey(l.End),
		Status:     string(l.Status),
	}
}

// ToModel converts the record into a leave interval
func (l Leave) ToModel() (model.LeaveInterval, error) {
	start, err := calendar.ParseDate(l.Start)
	if err != nil {
		return model.LeaveInterval{}, fmt.Errorf("leave %s has invalid start: %w", l.ID, err)
	}
	end, err := calendar.ParseDate(l.End)
	if err != nil {
		return model.LeaveInterval{}, fmt.Errorf("leave %s has invalid end: %w", l.ID, err)
	}
	return model.LeaveInterval{
		ID:         l.ID,
		ResidentID: l.ResidentID,
		Start:      start,
		End:        end,
		Status:     model.LeaveStatus(l.Status),
	}, nil
}

// ScheduleRecords splits a schedule document into its database records
func ScheduleRecords(s metrics.Schedule) (Schedule, []Assignment, []CarryOver, error) {
	var doc bytes.Buffer
	if err := metrics.Export(&doc, s); err != nil {
		return Schedule{}, nil, nil, err
	}

	status := string(model.StatusDraft)
	for _, a := range s.Assignments {
		if a.Status == model.StatusPublished {
			status = string(model.StatusPublished)
			break
		}
	}

	record := Schedule{
		ID:          s.ID,
		Horizon:     string(s.Horizon),
		PeriodKey:   s.PeriodKey,
		PeriodStart: calendar.DayKey(s.Period.Start),
		PeriodEnd:   calendar.DayKey(s.Period.End),
		Status:      status,
		GeneratedAt: s.GeneratedAt.UTC().Format(time.RFC3339),
		Document:    doc.Bytes(),
	}

	assignments := make([]Assignment, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		assignments = append(assignments, AssignmentFromModel(s.ID, a))
	}

	carryOvers := make([]CarryOver, 0, len(s.CarryOvers))
	for _, c := range s.CarryOvers {
		carryOvers = append(carryOvers, CarryOver{
			ID:             c.ID,
			ScheduleID:     s.ID,
			ResidentID:     c.ResidentID,
			SourceDate:     calendar.DayKey(c.SourceDate),
			SourceDutyType: string(c.SourceDutyType),
			EffectiveDate:  calendar.DayKey(c.EffectiveDate),
			SourcePeriod:   c.SourcePeriod,
			Version:        c.Version,
		})
	}

	return record, assignments, carryOvers, nil
}

// ToModel decodes the stored schedule document
func (s Schedule) ToModel() (metrics.Schedule, error) {
	doc, err := metrics.Import(bytes.NewReader(s.Document))
	if err != nil {
		return metrics.Schedule{}, fmt.Errorf("schedule %s has an invalid document: %w", s.ID, err)
	}
	return doc, nil
}

// AssignmentFromModel converts an assignment into a record of scheduleID
func AssignmentFromModel(scheduleID string, a model.DutyAssignment) Assignment {
	return Assignment{
		ID:         a.ID,
		ScheduleID: scheduleID,
		ResidentID: a.ResidentID,
		Date:       calendar.DayKey(a.Date),
		DutyType:   string(a.Type),
		Points:     a.Points,
		Status:     string(a.Status),
		SlotID:     a.SlotID,
		Service:    a.Service,
		SurgeonID:  a.SurgeonID,
		CaseType:   a.CaseType,
		Hours:      a.Hours,
		Rotation:   a.Rotation,
		Block:      a.Block,
		TeamRole:   a.TeamRole,
		TeamColor:  a.TeamColor,
	}
}

// ToModel converts the record into an assignment
func (a Assignment) ToModel() (model.DutyAssignment, error) {
	date, err := calendar.ParseDate(a.Date)
	if err != nil {
		return model.DutyAssignment{}, fmt.Errorf("assignment %s has invalid date: %w", a.ID, err)
	}
	duty := model.DutyType(a.DutyType)
	if !duty.IsValid() {
		return model.DutyAssignment{}, fmt.Errorf("assignment %s has unknown duty type %q", a.ID, a.DutyType)
	}
	return model.DutyAssignment{
		ID:         a.ID,
		ResidentID: a.ResidentID,
		Date:       date,
		Type:       duty,
		Points:     a.Points,
		Status:     model.AssignmentStatus(a.Status),
		SlotID:     a.SlotID,
		Service:    a.Service,
		SurgeonID:  a.SurgeonID,
		CaseType:   a.CaseType,
		Hours:      a.Hours,
		Rotation:   a.Rotation,
		Block:      a.Block,
		TeamRole:   a.TeamRole,
		TeamColor:  a.TeamColor,
	}, nil
}

// ToModel converts the record into a carry-over
func (c CarryOver) ToModel() (model.CarryOver, error) {
	source, err := calendar.ParseDate(c.SourceDate)
	if err != nil {
		return model.CarryOver{}, fmt.Errorf("carry-over %s has invalid source date: %w", c.ID, err)
	}
	effective, err := calendar.ParseDate(c.EffectiveDate)
	if err != nil {
		return model.CarryOver{}, fmt.Errorf("carry-over %s has invalid effective date: %w", c.ID, err)
	}
	return model.CarryOver{
		ID:             c.ID,
		ResidentID:     c.ResidentID,
		SourceDate:     source,
		SourceDutyType: model.DutyType(c.SourceDutyType),
		EffectiveDate:  effective,
		SourcePeriod:   c.SourcePeriod,
		Version:        c.Version,
	}, nil
}
