package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scheduler"
)

// GenerateYearly generates and saves the rotation schedule of an academic year.
// A zero academicYearStart uses the configured academic year.
func GenerateYearly(
	ctx context.Context,
	store GenerateStore,
	notifier *Notifier,
	cfg *config.Config,
	logger *zap.Logger,
	academicYearStart time.Time,
	opts GenerateOptions,
) (*GenerateResult, error) {
	if academicYearStart.IsZero() {
		start, err := cfg.AcademicYear()
		if err != nil {
			return nil, err
		}
		academicYearStart = start
	}

	periodKey := calendar.AcademicYearKey(academicYearStart)
	logger = logger.With(zap.String("period", periodKey))
	logger.Debug("Starting generateYearly", zap.Bool("dry_run", opts.DryRun))

	// Step 1: Refuse to overwrite a published schedule
	if err := checkOverwrite(ctx, store, logger, model.HorizonYearly, periodKey, opts); err != nil {
		return nil, err
	}

	// Step 2: Load inputs
	period := calendar.AcademicYearPeriod(academicYearStart)
	scheduleID := metrics.ScheduleID(model.HorizonYearly, periodKey)
	input, err := buildInput(ctx, store, cfg, logger, model.HorizonYearly, period, scheduleID, opts)
	if err != nil {
		return nil, err
	}

	// Step 3: Generate
	yearly := cfg.Yearly
	schedule, err := scheduler.GenerateYearly(ctx, scheduler.YearlyInput{
		Input:                input,
		AcademicYearStart:    academicYearStart,
		Rotations:            yearly.Rotations,
		ExternalRotators:     yearly.ExternalRotators,
		OffService:           yearly.OffService,
		ExamPGY:              yearly.ExamPGY,
		ExamBlock:            yearly.ExamBlock,
		HolidayLeaveCapacity: yearly.HolidayLeaveCapacity,
		HolidayPeriods:       yearly.HolidayPeriods,
	}, schedulerOptions(logger, opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate yearly schedule: %w", err)
	}

	// Step 4: Save and notify
	return persist(ctx, store, notifier, logger, schedule, opts)
}
