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

// GenerateWeekly generates and saves the clinic and OR schedule of the week starting
// on weekStart (a Sunday), using the configured templates.
// The monthly call schedule around the week is loaded as call history.
func GenerateWeekly(
	ctx context.Context,
	store GenerateStore,
	notifier *Notifier,
	cfg *config.Config,
	logger *zap.Logger,
	weekStart time.Time,
	opts GenerateOptions,
) (*GenerateResult, error) {
	if weekStart.Weekday() != time.Sunday {
		return nil, fmt.Errorf("%w: week must start on a Sunday, got %s", scheduler.ErrInvalidInput, weekStart.Weekday())
	}

	periodKey := calendar.WeekKey(weekStart)
	logger = logger.With(zap.String("period", periodKey))
	logger.Debug("Starting generateWeekly", zap.Bool("dry_run", opts.DryRun))

	// Step 1: Refuse to overwrite a published schedule
	if err := checkOverwrite(ctx, store, logger, model.HorizonWeekly, periodKey, opts); err != nil {
		return nil, err
	}

	// Step 2: Load inputs
	period := calendar.WeekPeriod(weekStart)
	scheduleID := metrics.ScheduleID(model.HorizonWeekly, periodKey)
	input, err := buildInput(ctx, store, cfg, logger, model.HorizonWeekly, period, scheduleID, opts)
	if err != nil {
		return nil, err
	}

	// Calls from the night before the week drive post-call protection on its first day
	history, err := loadAssignments(ctx, store, model.HorizonMonthly,
		calendar.DayKey(calendar.PreviousDay(period.Start)), calendar.DayKey(period.End), "")
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded call history", zap.Int("count", len(history)))

	// Step 3: Generate
	schedule, err := scheduler.GenerateWeekly(ctx, scheduler.WeeklyInput{
		Input:       input,
		WeekStart:   weekStart,
		Clinics:     cfg.Weekly.Clinics,
		ORSlots:     cfg.Weekly.ORSlots,
		CallHistory: history,
	}, schedulerOptions(logger, opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate weekly schedule: %w", err)
	}

	// Step 4: Save and notify
	return persist(ctx, store, notifier, logger, schedule, opts)
}
