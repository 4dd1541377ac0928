package db

import (
	"context"
	"time"
)

// RosterStore defines the database operations for the resident roster and leave
type RosterStore interface {
	GetResidents(ctx context.Context) ([]Resident, error)
	UpsertResidents(ctx context.Context, residents []Resident) error
	GetLeave(ctx context.Context, from, to string) ([]Leave, error)
	UpsertLeave(ctx context.Context, leave []Leave) error
}

// ScheduleStore defines the database operations for generated schedules
type ScheduleStore interface {
	GetSchedules(ctx context.Context) ([]Schedule, error)
	GetSchedule(ctx context.Context, horizon, periodKey string) (*Schedule, error)
	SaveSchedule(ctx context.Context, schedule Schedule, assignments []Assignment, carryOvers []CarryOver) error
	SetSchedulePublished(ctx context.Context, scheduleID string, at time.Time) error

	// GetAssignments returns assignments of a horizon dated within from..to inclusive
	GetAssignments(ctx context.Context, horizon, from, to string) ([]Assignment, error)

	// GetCarryOvers returns carry-overs effective within from..to inclusive
	GetCarryOvers(ctx context.Context, from, to string) ([]CarryOver, error)
}

// Database defines the interface for all database operations
type Database interface {
	RosterStore
	ScheduleStore
	RunMigrations(ctx context.Context) error
	Close()
}
