package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scheduler"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// ErrAlreadyPublished is returned when a generation would overwrite a published schedule
var ErrAlreadyPublished = errors.New("schedule already published")

// priorWindowDays is how far back prior assignments seed the statistics tracker
const priorWindowDays = 28

// GenerateOptions controls persistence and randomness of a generation run
type GenerateOptions struct {
	// DryRun generates without saving or notifying
	DryRun bool

	// ForceCommit allows overwriting a schedule that was already published
	ForceCommit bool

	// Seed overrides the optimizer seed from the rules when set
	Seed *int64

	// Now overrides the clock (defaults to time.Now)
	Now func() time.Time
}

func (o GenerateOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// GenerateResult is the outcome of a generation run
type GenerateResult struct {
	Schedule  metrics.Schedule
	Persisted bool
}

// buildInput loads the roster, leave, priors and carry-overs of a period from the database
func buildInput(
	ctx context.Context,
	store GenerateStore,
	cfg *config.Config,
	logger *zap.Logger,
	horizon model.Horizon,
	period model.Period,
	scheduleID string,
	opts GenerateOptions,
) (scheduler.Input, error) {
	residentRecords, err := store.GetResidents(ctx)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("failed to fetch residents: %w", err)
	}
	residents := make([]model.Resident, 0, len(residentRecords))
	for _, r := range residentRecords {
		residents = append(residents, r.ToModel())
	}
	logger.Debug("Loaded residents", zap.Int("count", len(residents)))

	from, to := calendar.DayKey(period.Start), calendar.DayKey(period.End)

	leaveRecords, err := store.GetLeave(ctx, from, to)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("failed to fetch leave: %w", err)
	}
	leave := make([]model.LeaveInterval, 0, len(leaveRecords))
	for _, l := range leaveRecords {
		interval, err := l.ToModel()
		if err != nil {
			return scheduler.Input{}, err
		}
		leave = append(leave, interval)
	}
	logger.Debug("Loaded leave", zap.Int("count", len(leave)))

	priorFrom := calendar.DayKey(period.Start.AddDate(0, 0, -priorWindowDays))
	priorTo := calendar.DayKey(calendar.PreviousDay(period.Start))
	prior, err := loadAssignments(ctx, store, horizon, priorFrom, priorTo, scheduleID)
	if err != nil {
		return scheduler.Input{}, err
	}
	logger.Debug("Loaded prior assignments", zap.Int("count", len(prior)))

	carryOverRecords, err := store.GetCarryOvers(ctx, from, to)
	if err != nil {
		return scheduler.Input{}, fmt.Errorf("failed to fetch carry-overs: %w", err)
	}
	carryOvers := make([]model.CarryOver, 0, len(carryOverRecords))
	for _, c := range carryOverRecords {
		// A regenerated schedule never consumes its own carry-overs
		if c.ScheduleID == scheduleID {
			continue
		}
		carryOver, err := c.ToModel()
		if err != nil {
			return scheduler.Input{}, err
		}
		carryOvers = append(carryOvers, carryOver)
	}
	logger.Debug("Loaded carry-overs", zap.Int("count", len(carryOvers)))

	holidays, err := cfg.Holidays(period)
	if err != nil {
		return scheduler.Input{}, err
	}

	blocks, err := cfg.Blocks()
	if err != nil {
		return scheduler.Input{}, err
	}

	rules := cfg.Rules
	if opts.Seed != nil {
		rules.Optimization.Seed = *opts.Seed
	}

	return scheduler.Input{
		Residents:  residents,
		Leave:      leave,
		Prior:      prior,
		CarryOvers: carryOvers,
		Rules:      rules,
		Holidays:   holidays,
		Blocks:     blocks,
	}, nil
}

// loadAssignments fetches the assignments of a horizon between from and to,
// skipping those of excludeID
func loadAssignments(ctx context.Context, store GenerateStore, horizon model.Horizon, from, to, excludeID string) ([]model.DutyAssignment, error) {
	records, err := store.GetAssignments(ctx, string(horizon), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s assignments: %w", horizon, err)
	}

	assignments := make([]model.DutyAssignment, 0, len(records))
	for _, a := range records {
		if a.ScheduleID == excludeID {
			continue
		}
		assignment, err := a.ToModel()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// checkOverwrite refuses to replace a published schedule unless forced
func checkOverwrite(ctx context.Context, store GenerateStore, logger *zap.Logger, horizon model.Horizon, periodKey string, opts GenerateOptions) error {
	existing, err := store.GetSchedule(ctx, string(horizon), periodKey)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch existing schedule: %w", err)
	}

	if existing.Status != string(model.StatusPublished) {
		logger.Debug("Replacing draft schedule", zap.String("period", periodKey))
		return nil
	}

	if !opts.ForceCommit {
		return fmt.Errorf("%w: %s %s (use force commit to overwrite)", ErrAlreadyPublished, horizon, periodKey)
	}

	logger.Warn("Overwriting published schedule", zap.String("horizon", string(horizon)), zap.String("period", periodKey))
	return nil
}

// persist saves the schedule and announces it unless this is a dry run
func persist(
	ctx context.Context,
	store GenerateStore,
	notifier *Notifier,
	logger *zap.Logger,
	schedule metrics.Schedule,
	opts GenerateOptions,
) (*GenerateResult, error) {
	logger.Info("Schedule generated",
		zap.String("horizon", string(schedule.Horizon)),
		zap.String("period", schedule.PeriodKey),
		zap.Int("assignments", len(schedule.Assignments)),
		zap.Int("hard_violations", schedule.Summary.HardViolations),
		zap.Int("soft_violations", schedule.Summary.SoftViolations),
		zap.Float64("coverage", schedule.Summary.CoverageRate),
		zap.Float64("gini", schedule.Summary.Gini))

	if opts.DryRun {
		logger.Info("Dry run - schedule not saved", zap.String("period", schedule.PeriodKey))
		return &GenerateResult{Schedule: schedule}, nil
	}

	record, assignments, carryOvers, err := db.ScheduleRecords(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule records: %w", err)
	}

	if err := store.SaveSchedule(ctx, record, assignments, carryOvers); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	logger.Info("Schedule saved",
		zap.String("id", schedule.ID),
		zap.Int("assignments", len(assignments)),
		zap.Int("carry_overs", len(carryOvers)))

	notifier.notify(ctx, logger, queueclient.EventScheduleGenerated, schedule, opts.now())

	return &GenerateResult{Schedule: schedule, Persisted: true}, nil
}

func schedulerOptions(logger *zap.Logger, opts GenerateOptions) []scheduler.Option {
	return []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithClock(opts.now),
	}
}
