package sheetsclient

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// Required column names in the roster sheet
var residentFields = []string{
	"Resident ID",
	"First name",
	"Last name",
	"PGY",
}

// Optional roster columns
var optionalResidentFields = []string{
	"Email",
	"Service",
	"Chief",
	"Call exempt",
	"On service",
	"Team",
	"Holiday points",
}

// Required column names in the leave sheet
var leaveFields = []string{
	"Leave ID",
	"Resident ID",
	"Start",
	"End",
	"Status",
}

// ListResidents retrieves and parses residents from the configured roster tab
func (c *Client) ListResidents(cfg *config.Config) ([]model.Resident, error) {
	values, err := c.GetValues(cfg.RosterSheetID, cfg.RosterTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("roster sheet is empty")
	}

	residents, err := parseResidents(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse residents: %w", err)
	}

	return residents, nil
}

// ListLeave retrieves and parses leave requests from the configured leave tab
func (c *Client) ListLeave(cfg *config.Config) ([]model.LeaveInterval, error) {
	values, err := c.GetValues(cfg.RosterSheetID, cfg.LeaveTab)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave data: %w", err)
	}

	if len(values) == 0 {
		return nil, nil
	}

	leave, err := parseLeave(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse leave: %w", err)
	}

	return leave, nil
}

// header maps column names to their index in the header row
type header map[string]int

func parseHeader(row []interface{}, required, optional []string) (header, error) {
	h := make(header)
	for i, cell := range row {
		if s, ok := cell.(string); ok {
			h[strings.TrimSpace(s)] = i
		}
	}

	for _, field := range required {
		if _, ok := h[field]; !ok {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
	}

	known := make(map[string]bool, len(required)+len(optional))
	for _, f := range append(append([]string{}, required...), optional...) {
		known[f] = true
	}
	for name := range h {
		if !known[name] {
			delete(h, name)
		}
	}
	return h, nil
}

func (h header) get(field string, row []interface{}) string {
	index, ok := h[field]
	if !ok || index >= len(row) {
		return ""
	}
	if s, ok := row[index].(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(row[index]))
}

// parseBool accepts the usual spreadsheet spellings of a checkbox
func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "x", "1":
		return true
	}
	return false
}

// parseResidents converts raw spreadsheet data into residents
func parseResidents(raw [][]interface{}) ([]model.Resident, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	h, err := parseHeader(raw[0], residentFields, optionalResidentFields)
	if err != nil {
		return nil, err
	}

	residents := make([]model.Resident, 0, len(raw)-1)
	seen := make(map[string]bool)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		id := h.get("Resident ID", row)
		// Skip empty rows
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate resident id %q in row %d", id, i+1)
		}
		seen[id] = true

		pgy, err := strconv.Atoi(h.get("PGY", row))
		if err != nil || pgy < 1 || pgy > 7 {
			return nil, fmt.Errorf("invalid PGY for resident %s in row %d", id, i+1)
		}

		points := 0
		if s := h.get("Holiday points", row); s != "" {
			points, err = strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("invalid holiday points for resident %s in row %d", id, i+1)
			}
		}

		residents = append(residents, model.Resident{
			ID:            id,
			FirstName:     h.get("First name", row),
			LastName:      h.get("Last name", row),
			Email:         h.get("Email", row),
			PGY:           pgy,
			Service:       h.get("Service", row),
			IsChief:       parseBool(h.get("Chief", row)),
			CallExempt:    parseBool(h.get("Call exempt", row)),
			OnService:     parseBool(h.get("On service", row)),
			Team:          h.get("Team", row),
			HolidayPoints: points,
		})
	}

	return residents, nil
}

// parseLeave converts raw spreadsheet data into leave intervals
func parseLeave(raw [][]interface{}) ([]model.LeaveInterval, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	h, err := parseHeader(raw[0], leaveFields, nil)
	if err != nil {
		return nil, err
	}

	leave := make([]model.LeaveInterval, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		id := h.get("Leave ID", row)
		if id == "" {
			continue
		}

		start, err := calendar.ParseDate(h.get("Start", row))
		if err != nil {
			return nil, fmt.Errorf("invalid start date for leave %s in row %d: %w", id, i+1, err)
		}
		end, err := calendar.ParseDate(h.get("End", row))
		if err != nil {
			return nil, fmt.Errorf("invalid end date for leave %s in row %d: %w", id, i+1, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("leave %s in row %d ends before it starts", id, i+1)
		}

		status := model.LeaveStatus(h.get("Status", row))
		switch status {
		case model.LeaveApproved, model.LeavePending, model.LeaveDenied:
		default:
			return nil, fmt.Errorf("invalid status %q for leave %s in row %d", status, id, i+1)
		}

		leave = append(leave, model.LeaveInterval{
			ID:         id,
			ResidentID: h.get("Resident ID", row),
			Start:      start,
			End:        end,
			Status:     status,
		})
	}

	return leave, nil
}
