package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/eligibility"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/optimizer"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/scoring"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// MonthlyInput is the input of the monthly call scheduler
type MonthlyInput struct {
	Input
	Year  int
	Month time.Month
}

// GenerateMonthly builds the call calendar of one month.
//
// Each day gets a Weekend duty on Saturday and Sunday, a Holiday duty on a holiday,
// and a 24h call (or a Day call plus a Night call under the split strategy) otherwise.
// A PGY-1 on a duty requiring supervision gets a senior Backup on the same day.
// Protected duties produce a PostCall row on the following day, or a carry-over
// when that day falls in the next month.
func GenerateMonthly(ctx context.Context, in MonthlyInput, opts ...Option) (metrics.Schedule, error) {
	o := buildOptions(opts)
	logger := o.logger

	// Step 1: Validate inputs
	if in.Month < time.January || in.Month > time.December || in.Year < 1 {
		return metrics.Schedule{}, fmt.Errorf("%w: invalid month %d-%d", ErrInvalidInput, in.Year, in.Month)
	}
	if err := in.validate(); err != nil {
		return metrics.Schedule{}, err
	}

	period := calendar.MonthPeriod(in.Year, in.Month)
	periodKey := calendar.MonthKey(in.Year, in.Month)
	r := in.Rules

	logger.Info("Generating monthly schedule",
		zap.String("period", periodKey),
		zap.Int("residents", len(in.Residents)))

	// Step 2: Initialise the statistics tracker
	tracker, err := stats.New(stats.Init{
		Residents:  in.Residents,
		Prior:      in.Prior,
		CarryOvers: in.CarryOvers,
		Leave:      in.Leave,
		Period:     period,
	})
	if err != nil {
		return metrics.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// Step 3: Decide call strategy and staffing mode
	strategy := decideStrategy(r, in.Residents)
	days := calendar.EachDay(period)
	demand := 0
	for _, d := range days {
		demand += len(dutiesForDay(d, strategy, in.Holidays))
	}
	mode := decideStaffingMode(r, tracker, demand)

	logger.Info("Monthly generation parameters",
		zap.String("call_strategy", string(strategy)),
		zap.String("staffing_mode", string(mode)),
		zap.Int("slot_demand", demand))

	scorer := scoring.NewScorer(r, r.MonthlyWeights)
	primary := pass{
		constraints: eligibility.Monthly(r),
		scorer:      scorer,
		role:        scoring.RolePrimary,
		failRule:    model.RuleNoEligibleCandidate,
	}
	backup := pass{
		constraints: eligibility.Backup(r),
		scorer:      scorer,
		role:        scoring.RoleSupervisory,
		failRule:    model.RuleNoBackupAvailable,
	}
	if mode == rules.StaffingShortage {
		primary.relaxed = eligibility.MonthlyShortage(r)
		backup.relaxed = eligibility.BackupShortage(r)
	}

	// Step 4: Process each day in chronological order
	run := newRun(r, tracker, logger)
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return metrics.Schedule{}, err
		}
		tracker.BeginDay(day)

		block := blockPointer(day, in.Blocks)
		for _, duty := range dutiesForDay(day, strategy, in.Holidays) {
			slot := model.Slot{
				ID:    fmt.Sprintf("%s-%s", calendar.DayKey(day), duty),
				Date:  day,
				Type:  duty,
				Block: block,
			}

			filled, err := run.fillSlot(slot, primary)
			if err != nil {
				return metrics.Schedule{}, err
			}
			if filled == nil {
				continue
			}
			if err := run.commitPostCall(run.assignments[len(run.assignments)-1]); err != nil {
				return metrics.Schedule{}, err
			}

			// Supervision: a PGY-1 on a backup-requiring duty needs a senior backup
			if filled.stats.Resident.PGY == 1 && r.RequiresBackup(duty) {
				backupSlot := model.Slot{
					ID:    slot.ID + "/backup",
					Date:  day,
					Type:  model.DutyBackup,
					Block: block,
				}
				if _, err := run.fillSlot(backupSlot, backup); err != nil {
					return metrics.Schedule{}, err
				}
			}
		}
	}

	assignments := run.assignments

	// Step 5: Optimise with simulated annealing
	if r.Optimization.Enabled {
		result, err := optimizer.Optimize(ctx, optimizer.Input{
			Residents:   in.Residents,
			Assignments: assignments,
			Violations:  run.violations,
			Prior:       in.Prior,
			CarryOvers:  in.CarryOvers,
			Leave:       in.Leave,
			Period:      period,
			Blocks:      in.Blocks,
			Rules:       r,
		}, logger)
		if err != nil {
			return metrics.Schedule{}, err
		}
		logger.Info("Optimization complete",
			zap.Int("iterations", result.Iterations),
			zap.Float64("initial_score", result.InitialScore),
			zap.Float64("score", result.Score))

		// PostCall rows follow the residents the optimizer settled on
		assignments = metrics.DerivePostCalls(result.Assignments, r, period)
	}
	assignments = metrics.AddCarryOverPostCalls(assignments, in.CarryOvers, r, period)

	// Step 6: Audit and assemble
	violations := append(run.violations, metrics.Audit(metrics.AuditInput{
		Horizon:     model.HorizonMonthly,
		Period:      period,
		Residents:   in.Residents,
		Assignments: assignments,
		Leave:       in.Leave,
		Rules:       r,
		Blocks:      in.Blocks,
	})...)

	schedule := metrics.Assemble(metrics.AssembleInput{
		Horizon:       model.HorizonMonthly,
		PeriodKey:     periodKey,
		Period:        period,
		Residents:     in.Residents,
		Assignments:   assignments,
		Violations:    violations,
		CarryOvers:    metrics.DeriveCarryOvers(assignments, r, period, periodKey),
		RequiredSlots: run.required,
		FilledSlots:   run.filled,
		GeneratedAt:   o.now().UTC(),
	})

	logger.Info("Monthly schedule generated",
		zap.String("period", periodKey),
		zap.Int("assignments", len(schedule.Assignments)),
		zap.Int("hard_violations", schedule.Summary.HardViolations),
		zap.Int("soft_violations", schedule.Summary.SoftViolations),
		zap.Float64("gini", schedule.Summary.Gini),
		zap.Float64("coverage", schedule.Summary.CoverageRate))

	return schedule, nil
}

// decideStrategy resolves the auto call strategy: split when enough residents can take call
func decideStrategy(r rules.Rules, residents []model.Resident) rules.CallStrategy {
	if r.CallStrategy != rules.StrategyAuto {
		return r.CallStrategy
	}
	eligible := 0
	for _, res := range residents {
		if !res.IsExempt() {
			eligible++
		}
	}
	if eligible >= r.SplitRosterThreshold {
		return rules.StrategySplit
	}
	return rules.Strategy24h
}

// decideStaffingMode resolves the auto staffing mode: shortage when the PGY targets
// of the roster cannot cover the slot demand
func decideStaffingMode(r rules.Rules, tracker *stats.Tracker, demand int) rules.StaffingMode {
	if r.StaffingMode != rules.StaffingAuto {
		return r.StaffingMode
	}
	supply := 0
	for _, s := range tracker.All() {
		supply += max(0, r.PGYTarget(s.Resident, s.WorkingDays)-s.Total)
	}
	if supply < demand {
		return rules.StaffingShortage
	}
	return rules.StaffingNormal
}

// dutiesForDay returns the call duties required on a date. Holidays take precedence
// over weekends.
func dutiesForDay(day time.Time, strategy rules.CallStrategy, holidays calendar.Holidays) []model.DutyType {
	switch {
	case holidays.Contains(day):
		return []model.DutyType{model.DutyHoliday}
	case calendar.IsWeekend(day):
		return []model.DutyType{model.DutyWeekend}
	case strategy == rules.StrategySplit:
		return []model.DutyType{model.DutyDay, model.DutyNight}
	default:
		return []model.DutyType{model.Duty24h}
	}
}
