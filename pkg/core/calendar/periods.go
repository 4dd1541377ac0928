package calendar

import (
	"fmt"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

// MonthPeriod returns the period covering a calendar month
func MonthPeriod(year int, month time.Month) model.Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return model.Period{
		Start: start,
		End:   start.AddDate(0, 1, -1),
	}
}

// WeekPeriod returns the seven-day period starting at weekStart
func WeekPeriod(weekStart time.Time) model.Period {
	start := DateOnly(weekStart)
	return model.Period{
		Start: start,
		End:   start.AddDate(0, 0, 6),
	}
}

// AcademicYearPeriod returns the period covered by the rotation blocks of an academic year
func AcademicYearPeriod(start time.Time) model.Period {
	s := DateOnly(start)
	return model.Period{
		Start: s,
		End:   s.AddDate(0, 0, BlocksPerYear*BlockLengthDays-1),
	}
}

// MonthKey returns the document key for a monthly schedule, e.g. "2025-08"
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// WeekKey returns the document key for a weekly schedule, e.g. "2025-W32".
// The ISO week of the Monday following the Sunday start is used so a Sunday-start
// week maps to the ISO week it mostly covers.
func WeekKey(weekStart time.Time) string {
	year, week := DateOnly(weekStart).AddDate(0, 0, 1).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// AcademicYearKey returns the document key for a yearly schedule, e.g. "AY2025-2026"
func AcademicYearKey(start time.Time) string {
	return fmt.Sprintf("AY%04d-%04d", start.Year(), start.Year()+1)
}
