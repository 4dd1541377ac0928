package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// ScheduleLister defines the database operation needed to list saved schedules
type ScheduleLister interface {
	GetSchedules(ctx context.Context) ([]db.Schedule, error)
}

// ListSchedules returns the saved schedules, newest period first.
// An empty horizon returns every horizon.
func ListSchedules(ctx context.Context, store ScheduleLister, logger *zap.Logger, horizon model.Horizon) ([]db.Schedule, error) {
	records, err := store.GetSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules: %w", err)
	}

	if horizon == "" {
		return records, nil
	}

	var filtered []db.Schedule
	for _, r := range records {
		if r.Horizon == string(horizon) {
			filtered = append(filtered, r)
		}
	}

	logger.Debug("Filtered schedules",
		zap.String("horizon", string(horizon)),
		zap.Int("total", len(records)),
		zap.Int("matching", len(filtered)))

	return filtered, nil
}
