package services

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

const publishedDateLayout = "Mon Jan 02 2006"

var (
	monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	weekKeyPattern  = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	yearKeyPattern  = regexp.MustCompile(`^AY\d{4}-\d{4}$`)
)

// monthlyColumns is the column order of the published call calendar
var monthlyColumns = []model.DutyType{
	model.Duty24h,
	model.DutyDay,
	model.DutyNight,
	model.DutyWeekend,
	model.DutyHoliday,
	model.DutyBackup,
	model.DutyPostCall,
}

// HorizonForKey resolves the horizon of a period key
// ("2025-08" monthly, "2025-W32" weekly, "AY2025-2026" yearly)
func HorizonForKey(periodKey string) (model.Horizon, error) {
	switch {
	case monthKeyPattern.MatchString(periodKey):
		return model.HorizonMonthly, nil
	case weekKeyPattern.MatchString(periodKey):
		return model.HorizonWeekly, nil
	case yearKeyPattern.MatchString(periodKey):
		return model.HorizonYearly, nil
	}
	return "", fmt.Errorf("unrecognised period key %q (expected 2025-08, 2025-W32 or AY2025-2026)", periodKey)
}

// PublishSchedule writes a saved schedule to its own tab in the schedule spreadsheet,
// marks it published and announces it
func PublishSchedule(
	ctx context.Context,
	store PublishStore,
	sheetsClient SheetsClient,
	notifier *Notifier,
	cfg *config.Config,
	logger *zap.Logger,
	periodKey string,
	now time.Time,
) (*sheetsclient.PublishedSchedule, error) {
	logger.Debug("Starting publishSchedule", zap.String("period", periodKey))

	// Step 1: Fetch the schedule
	horizon, err := HorizonForKey(periodKey)
	if err != nil {
		return nil, err
	}

	record, err := store.GetSchedule(ctx, string(horizon), periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}

	schedule, err := record.ToModel()
	if err != nil {
		return nil, err
	}

	if !schedule.IsValid {
		logger.Warn("Publishing a schedule with hard violations",
			zap.String("period", periodKey),
			zap.Int("hard_violations", schedule.Summary.HardViolations))
	}

	// Step 2: Fetch residents for display names
	residentRecords, err := store.GetResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch residents: %w", err)
	}
	names := make(map[string]string, len(residentRecords))
	residents := make([]model.Resident, 0, len(residentRecords))
	for _, r := range residentRecords {
		resident := r.ToModel()
		names[resident.ID] = resident.FullName()
		residents = append(residents, resident)
	}

	// Step 3: Build the published rows
	var published *sheetsclient.PublishedSchedule
	switch horizon {
	case model.HorizonMonthly:
		published = buildMonthlyRows(schedule, names)
	case model.HorizonWeekly:
		published = buildWeeklyRows(schedule, names)
	case model.HorizonYearly:
		published = buildYearlyRows(schedule, residents)
	}

	// Step 4: Write to sheets
	if err := sheetsClient.PublishSchedule(cfg.ScheduleSheetID, published); err != nil {
		return nil, fmt.Errorf("failed to publish schedule to sheets: %w", err)
	}
	logger.Info("Schedule written to sheets", zap.String("tab", published.Title), zap.Int("rows", len(published.Rows)))

	// Step 5: Mark published and notify
	if err := store.SetSchedulePublished(ctx, schedule.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark schedule published: %w", err)
	}

	notifier.notify(ctx, logger, queueclient.EventSchedulePublished, schedule, now)

	logger.Info("Schedule published", zap.String("id", schedule.ID), zap.String("period", periodKey))
	return published, nil
}

func displayName(names map[string]string, residentID string) string {
	if name, ok := names[residentID]; ok && name != "" {
		return name
	}
	return residentID
}

// buildMonthlyRows lays out one row per day with a column per call duty type in use
func buildMonthlyRows(s metrics.Schedule, names map[string]string) *sheetsclient.PublishedSchedule {
	byDay := make(map[string]map[model.DutyType][]string)
	used := make(map[model.DutyType]bool)
	for _, a := range s.Assignments {
		day := calendar.DayKey(a.Date)
		if byDay[day] == nil {
			byDay[day] = make(map[model.DutyType][]string)
		}
		byDay[day][a.Type] = append(byDay[day][a.Type], displayName(names, a.ResidentID))
		used[a.Type] = true
	}

	var columns []model.DutyType
	for _, duty := range monthlyColumns {
		if used[duty] {
			columns = append(columns, duty)
		}
	}

	header := []string{"Date"}
	for _, duty := range columns {
		header = append(header, string(duty))
	}

	rows := make([][]string, 0)
	for _, day := range calendar.EachDay(s.Period) {
		row := []string{day.Format(publishedDateLayout)}
		duties := byDay[calendar.DayKey(day)]
		for _, duty := range columns {
			people := slices.Clone(duties[duty])
			slices.Sort(people)
			row = append(row, strings.Join(people, ", "))
		}
		rows = append(rows, row)
	}

	return &sheetsclient.PublishedSchedule{Title: s.PeriodKey, Header: header, Rows: rows}
}

// buildWeeklyRows lays out one row per clinical assignment, ordered by date then slot
func buildWeeklyRows(s metrics.Schedule, names map[string]string) *sheetsclient.PublishedSchedule {
	assignments := slices.Clone(s.Assignments)
	slices.SortStableFunc(assignments, func(a, b model.DutyAssignment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.SlotID, b.SlotID); c != 0 {
			return c
		}
		return strings.Compare(a.TeamRole, b.TeamRole)
	})

	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		hours := ""
		if a.Hours > 0 {
			hours = strconv.FormatFloat(a.Hours, 'f', -1, 64)
		}
		rows = append(rows, []string{
			a.Date.Format(publishedDateLayout),
			string(a.Type),
			a.SlotID,
			a.Service,
			a.CaseType,
			displayName(names, a.ResidentID),
			a.TeamRole,
			hours,
		})
	}

	return &sheetsclient.PublishedSchedule{
		Title:  s.PeriodKey,
		Header: []string{"Date", "Type", "Slot", "Service", "Case", "Resident", "Role", "Hours"},
		Rows:   rows,
	}
}

// buildYearlyRows lays out one row per resident with a column per rotation block
func buildYearlyRows(s metrics.Schedule, residents []model.Resident) *sheetsclient.PublishedSchedule {
	type cell struct {
		text  string
		color string
	}
	grid := make(map[string]map[int]cell)
	for _, a := range s.Assignments {
		if grid[a.ResidentID] == nil {
			grid[a.ResidentID] = make(map[int]cell)
		}
		text := a.Rotation
		if text == "" {
			text = string(a.Type)
		}
		c := grid[a.ResidentID][a.Block]
		if c.text != "" && c.text != text {
			// Holiday leave overlays a rotation in the same block
			text = c.text + " / " + text
		}
		color := c.color
		if a.TeamColor != "" {
			color = a.TeamColor
		}
		grid[a.ResidentID][a.Block] = cell{text: text, color: color}
	}

	header := []string{"Resident", "PGY", "Team"}
	for b := 1; b <= calendar.BlocksPerYear; b++ {
		header = append(header, fmt.Sprintf("Block %d", b))
	}

	sorted := slices.Clone(residents)
	slices.SortStableFunc(sorted, func(a, b model.Resident) int {
		if a.PGY != b.PGY {
			return b.PGY - a.PGY
		}
		return strings.Compare(a.FullName(), b.FullName())
	})

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		cells, ok := grid[r.ID]
		if !ok {
			continue
		}
		teams := make([]string, 0)
		row := []string{r.FullName(), strconv.Itoa(r.PGY), ""}
		for b := 1; b <= calendar.BlocksPerYear; b++ {
			c := cells[b]
			row = append(row, c.text)
			if c.color != "" && !slices.Contains(teams, c.color) {
				teams = append(teams, c.color)
			}
		}
		row[2] = strings.Join(teams, ", ")
		rows = append(rows, row)
	}

	return &sheetsclient.PublishedSchedule{Title: s.PeriodKey, Header: header, Rows: rows}
}
