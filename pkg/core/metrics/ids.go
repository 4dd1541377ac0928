package metrics

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// namespace scopes every deterministic ID generated by this application
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/jakechorley/residency-scheduler"))

// ScheduleID returns the deterministic ID of a schedule document.
// Regenerating the same period yields the same ID so persistence stays idempotent.
func ScheduleID(horizon model.Horizon, periodKey string) string {
	return uuid.NewSHA1(namespace, []byte(fmt.Sprintf("schedule|%s|%s", horizon, periodKey))).String()
}

// AssignmentID returns the deterministic ID of an assignment within a schedule
func AssignmentID(scheduleID string, a model.DutyAssignment) string {
	name := fmt.Sprintf("assignment|%s|%s|%s|%s|%s", scheduleID, a.ResidentID, calendar.DayKey(a.Date), a.Type, a.SlotID)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// CarryOverID returns the deterministic ID of a carry-over record
func CarryOverID(c model.CarryOver) string {
	name := fmt.Sprintf("carryover|%s|%s|%s|%d", c.ResidentID, calendar.DayKey(c.SourceDate), c.SourceDutyType, c.Version)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
