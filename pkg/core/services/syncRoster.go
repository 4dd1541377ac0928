package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// SyncResult reports what a roster sync read and wrote
type SyncResult struct {
	Residents []model.Resident
	Leave     []model.LeaveInterval

	// SkippedLeave are leave IDs that reference residents missing from the roster
	SkippedLeave []string
}

// SyncRoster copies the roster and leave requests from the roster spreadsheet into the database
func SyncRoster(
	ctx context.Context,
	store RosterSyncStore,
	rosterClient RosterClient,
	cfg *config.Config,
	logger *zap.Logger,
	dryRun bool,
) (*SyncResult, error) {
	logger.Debug("Starting syncRoster", zap.Bool("dry_run", dryRun))

	// Step 1: Read the roster
	residents, err := rosterClient.ListResidents(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch residents: %w", err)
	}
	logger.Debug("Fetched residents", zap.Int("count", len(residents)))

	known := make(map[string]bool, len(residents))
	for _, r := range residents {
		known[r.ID] = true
	}

	// Step 2: Read leave, dropping requests for unknown residents
	allLeave, err := rosterClient.ListLeave(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leave: %w", err)
	}

	result := &SyncResult{Residents: residents}
	for _, l := range allLeave {
		if !known[l.ResidentID] {
			logger.Warn("Skipping leave for unknown resident", zap.String("leave_id", l.ID), zap.String("resident_id", l.ResidentID))
			result.SkippedLeave = append(result.SkippedLeave, l.ID)
			continue
		}
		result.Leave = append(result.Leave, l)
	}
	logger.Debug("Fetched leave", zap.Int("count", len(result.Leave)), zap.Int("skipped", len(result.SkippedLeave)))

	if dryRun {
		logger.Info("Dry run - roster not saved",
			zap.Int("residents", len(result.Residents)),
			zap.Int("leave", len(result.Leave)))
		return result, nil
	}

	// Step 3: Upsert residents, then leave
	residentRecords := make([]db.Resident, 0, len(residents))
	for _, r := range residents {
		residentRecords = append(residentRecords, db.ResidentFromModel(r))
	}
	if err := store.UpsertResidents(ctx, residentRecords); err != nil {
		return nil, fmt.Errorf("failed to save residents: %w", err)
	}

	leaveRecords := make([]db.Leave, 0, len(result.Leave))
	for _, l := range result.Leave {
		leaveRecords = append(leaveRecords, db.LeaveFromModel(l))
	}
	if err := store.UpsertLeave(ctx, leaveRecords); err != nil {
		return nil, fmt.Errorf("failed to save leave: %w", err)
	}

	logger.Info("Roster synced",
		zap.Int("residents", len(residentRecords)),
		zap.Int("leave", len(leaveRecords)))

	return result, nil
}

// ResidentLister defines the database operation needed to list residents
type ResidentLister interface {
	GetResidents(ctx context.Context) ([]db.Resident, error)
}

// ListResidents returns the stored roster ordered by PGY (senior first) then name
func ListResidents(ctx context.Context, store ResidentLister, logger *zap.Logger) ([]model.Resident, error) {
	records, err := store.GetResidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch residents: %w", err)
	}

	residents := make([]model.Resident, 0, len(records))
	for _, r := range records {
		residents = append(residents, r.ToModel())
	}

	slices.SortStableFunc(residents, func(a, b model.Resident) int {
		if a.PGY != b.PGY {
			return b.PGY - a.PGY
		}
		return strings.Compare(a.FullName(), b.FullName())
	})

	logger.Debug("Listed residents", zap.Int("count", len(residents)))
	return residents, nil
}
