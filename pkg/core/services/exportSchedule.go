package services

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// ScheduleReader defines the database operation needed to read a saved schedule
type ScheduleReader interface {
	GetSchedule(ctx context.Context, horizon, periodKey string) (*db.Schedule, error)
}

// ExportSchedule writes the saved schedule document of a period to w as JSON
func ExportSchedule(ctx context.Context, store ScheduleReader, logger *zap.Logger, periodKey string, w io.Writer) (*metrics.Schedule, error) {
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

	if err := metrics.Export(w, schedule); err != nil {
		return nil, fmt.Errorf("failed to export schedule: %w", err)
	}

	logger.Info("Schedule exported",
		zap.String("period", periodKey),
		zap.Int("assignments", len(schedule.Assignments)),
		zap.Int("violations", len(schedule.Violations)))

	return &schedule, nil
}
