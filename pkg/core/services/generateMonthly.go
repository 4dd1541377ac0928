package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scheduler"
)

// maxConcurrentMonths bounds the number of months generated at once by GenerateMonthlyRange
const maxConcurrentMonths = 4

// GenerateMonthly generates and saves the call schedule of one month.
// Prior monthly assignments from the preceding four weeks seed the history, and
// carry-overs effective in the month protect the residents who worked the last
// night of the previous month.
func GenerateMonthly(
	ctx context.Context,
	store GenerateStore,
	notifier *Notifier,
	cfg *config.Config,
	logger *zap.Logger,
	year int,
	month time.Month,
	opts GenerateOptions,
) (*GenerateResult, error) {
	periodKey := calendar.MonthKey(year, month)
	logger = logger.With(zap.String("period", periodKey))
	logger.Debug("Starting generateMonthly", zap.Bool("dry_run", opts.DryRun))

	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: invalid month %d", scheduler.ErrInvalidInput, month)
	}

	// Step 1: Refuse to overwrite a published schedule
	if err := checkOverwrite(ctx, store, logger, model.HorizonMonthly, periodKey, opts); err != nil {
		return nil, err
	}

	// Step 2: Load inputs
	period := calendar.MonthPeriod(year, month)
	scheduleID := metrics.ScheduleID(model.HorizonMonthly, periodKey)
	input, err := buildInput(ctx, store, cfg, logger, model.HorizonMonthly, period, scheduleID, opts)
	if err != nil {
		return nil, err
	}

	// Step 3: Generate
	schedule, err := scheduler.GenerateMonthly(ctx, scheduler.MonthlyInput{
		Input: input,
		Year:  year,
		Month: month,
	}, schedulerOptions(logger, opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate monthly schedule: %w", err)
	}

	// Step 4: Save and notify
	return persist(ctx, store, notifier, logger, schedule, opts)
}

// GenerateMonthlyRange generates count consecutive months starting at year/month.
//
// When chain is set the months run one after another, so each month consumes the
// carry-overs the previous one saved. Otherwise they run concurrently and stop at the
// first error. Results are returned in month order.
func GenerateMonthlyRange(
	ctx context.Context,
	store GenerateStore,
	notifier *Notifier,
	cfg *config.Config,
	logger *zap.Logger,
	year int,
	month time.Month,
	count int,
	chain bool,
	opts GenerateOptions,
) ([]*GenerateResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("month count must be positive, got %d", count)
	}

	if chain && opts.DryRun {
		logger.Warn("Chained dry run: carry-overs are not saved, so later months will not see them")
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	results := make([]*GenerateResult, count)

	if chain {
		for i := range count {
			m := first.AddDate(0, i, 0)
			result, err := GenerateMonthly(ctx, store, notifier, cfg, logger, m.Year(), m.Month(), opts)
			if err != nil {
				return nil, fmt.Errorf("failed to generate %s: %w", calendar.MonthKey(m.Year(), m.Month()), err)
			}
			results[i] = result
		}
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMonths)
	for i := range count {
		m := first.AddDate(0, i, 0)
		g.Go(func() error {
			result, err := GenerateMonthly(gctx, store, notifier, cfg, logger, m.Year(), m.Month(), opts)
			if err != nil {
				return fmt.Errorf("failed to generate %s: %w", calendar.MonthKey(m.Year(), m.Month()), err)
			}
			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
