package services

import (
	"context"
	"time"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// RosterClient defines the interface for reading the roster and leave requests
type RosterClient interface {
	ListResidents(cfg *config.Config) ([]model.Resident, error)
	ListLeave(cfg *config.Config) ([]model.LeaveInterval, error)
}

// SheetsClient defines the interface for publishing schedules to Google Sheets
type SheetsClient interface {
	PublishSchedule(spreadsheetID string, published *sheetsclient.PublishedSchedule) error
}

// EmailClient defines the interface for sending emails
type EmailClient interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// EventPublisher defines the interface for publishing schedule events
type EventPublisher interface {
	Publish(ctx context.Context, event queueclient.Event) error
}

// GenerateStore defines the database operations needed to generate and save a schedule
type GenerateStore interface {
	GetResidents(ctx context.Context) ([]db.Resident, error)
	GetLeave(ctx context.Context, from, to string) ([]db.Leave, error)
	GetSchedule(ctx context.Context, horizon, periodKey string) (*db.Schedule, error)
	GetAssignments(ctx context.Context, horizon, from, to string) ([]db.Assignment, error)
	GetCarryOvers(ctx context.Context, from, to string) ([]db.CarryOver, error)
	SaveSchedule(ctx context.Context, schedule db.Schedule, assignments []db.Assignment, carryOvers []db.CarryOver) error
}

// PublishStore defines the database operations needed to publish a schedule
type PublishStore interface {
	GetResidents(ctx context.Context) ([]db.Resident, error)
	GetSchedule(ctx context.Context, horizon, periodKey string) (*db.Schedule, error)
	SetSchedulePublished(ctx context.Context, scheduleID string, at time.Time) error
}

// RosterSyncStore defines the database operations needed to sync the roster
type RosterSyncStore interface {
	UpsertResidents(ctx context.Context, residents []db.Resident) error
	UpsertLeave(ctx context.Context, leave []db.Leave) error
}
