package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
)

const (
	// BlockLengthDays is the length of a rotation block
	BlockLengthDays = 28

	// BlocksPerYear is the number of rotation blocks in an academic year
	BlocksPerYear = 13
)

// GenerateRotationBlocks computes the fixed block list for an academic year.
// A block is flagged as a holiday block when any of holidayDates falls inside it.
func GenerateRotationBlocks(academicYearStart time.Time, count, lengthDays int, holidayDates []time.Time) []model.RotationBlock {
	blocks := make([]model.RotationBlock, 0, count)
	start := DateOnly(academicYearStart)

	for i := 0; i < count; i++ {
		block := model.RotationBlock{
			Number: i + 1,
			Start:  start.AddDate(0, 0, i*lengthDays),
			End:    start.AddDate(0, 0, (i+1)*lengthDays-1),
		}
		for _, h := range holidayDates {
			if block.Contains(h) {
				block.IsHoliday = true
				break
			}
		}
		blocks = append(blocks, block)
	}

	return blocks
}

// HolidayPeriodDates returns the holiday-period anchor dates (month/day pairs such as
// "12-25") that fall within the academic year starting at academicYearStart
func HolidayPeriodDates(academicYearStart time.Time, monthDays []string) ([]time.Time, error) {
	start := DateOnly(academicYearStart)
	end := start.AddDate(1, 0, 0)

	var dates []time.Time
	for _, md := range monthDays {
		for _, year := range []int{start.Year(), start.Year() + 1} {
			d, err := time.Parse(DateLayout, fmt.Sprintf("%04d-%s", year, md))
			if err != nil {
				return nil, fmt.Errorf("invalid holiday period %q: %w", md, err)
			}
			if !d.Before(start) && d.Before(end) {
				dates = append(dates, d)
			}
		}
	}
	return dates, nil
}

// BlockForDate returns the rotation block containing date.
// Blocks must be sorted by start date (as produced by GenerateRotationBlocks).
func BlockForDate(date time.Time, blocks []model.RotationBlock) (model.RotationBlock, bool) {
	d := DateOnly(date)

	// First block whose end is on or after d
	i := sort.Search(len(blocks), func(i int) bool {
		return !DateOnly(blocks[i].End).Before(d)
	})
	if i < len(blocks) && blocks[i].Contains(d) {
		return blocks[i], true
	}
	return model.RotationBlock{}, false
}
