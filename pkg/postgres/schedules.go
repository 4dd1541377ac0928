package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/residency-scheduler/pkg/db"
)

const scheduleColumns = `id, horizon, period_key, period_start, period_end, status, generated_at, published_at, document`

// GetSchedules retrieves all schedule records, newest period first
func (d *DB) GetSchedules(ctx context.Context) ([]db.Schedule, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedule WHERE complete ORDER BY period_start DESC, horizon`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query schedules: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	var schedules []db.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating schedules: %w", db.ErrPersistence, err)
	}

	return schedules, nil
}

// GetSchedule retrieves the schedule of a horizon and period key.
// Returns db.ErrNotFound when it has not been generated.
func (d *DB) GetSchedule(ctx context.Context, horizon, periodKey string) (*db.Schedule, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedule WHERE horizon = $1 AND period_key = $2 AND complete`, horizon, periodKey)

	s, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s %s: %w", horizon, periodKey, db.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSchedule(row pgx.Row) (db.Schedule, error) {
	var s db.Schedule
	var start, end, generatedAt time.Time
	var publishedAt *time.Time
	if err := row.Scan(&s.ID, &s.Horizon, &s.PeriodKey, &start, &end, &s.Status, &generatedAt, &publishedAt, &s.Document); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Schedule{}, err
		}
		return db.Schedule{}, fmt.Errorf("%w: failed to scan schedule: %w", db.ErrPersistence, err)
	}
	s.PeriodStart = dateString(start)
	s.PeriodEnd = dateString(end)
	s.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
	if publishedAt != nil {
		s.PublishedAt = publishedAt.UTC().Format(time.RFC3339)
	}
	return s, nil
}

// SaveSchedule replaces a schedule and its assignments and carry-overs.
// Readers skip the schedule until the final batch marks it complete, so a failed save
// is never loaded. Every statement is idempotent and a failed save can be retried whole.
func (d *DB) SaveSchedule(ctx context.Context, schedule db.Schedule, assignments []db.Assignment, carryOvers []db.CarryOver) error {
	for _, phase := range saveSchedulePhases(schedule, assignments, carryOvers) {
		if err := d.execChunked(ctx, phase.op, phase.stmts); err != nil {
			return err
		}
	}
	return nil
}

type savePhase struct {
	op    string
	stmts []statement
}

// saveSchedulePhases returns the writes of SaveSchedule in the order they must commit
func saveSchedulePhases(schedule db.Schedule, assignments []db.Assignment, carryOvers []db.CarryOver) []savePhase {
	header := []statement{
		{
			sql: `
				INSERT INTO schedule (id, horizon, period_key, period_start, period_end, status, generated_at, published_at, document, complete)
				VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, FALSE)
				ON CONFLICT (id) DO UPDATE SET
					status = EXCLUDED.status,
					generated_at = EXCLUDED.generated_at,
					published_at = NULL,
					document = EXCLUDED.document,
					complete = FALSE
			`,
			args: []any{schedule.ID, schedule.Horizon, schedule.PeriodKey, schedule.PeriodStart, schedule.PeriodEnd,
				schedule.Status, schedule.GeneratedAt, schedule.Document},
		},
		{sql: `DELETE FROM assignment WHERE schedule_id = $1`, args: []any{schedule.ID}},
		{sql: `DELETE FROM carry_over WHERE schedule_id = $1`, args: []any{schedule.ID}},
	}

	rows := make([]statement, 0, len(assignments)+len(carryOvers))
	for _, a := range assignments {
		rows = append(rows, statement{
			sql: `
				INSERT INTO assignment (id, schedule_id, resident_id, duty_date, duty_type, points, status,
					slot_id, service, surgeon_id, case_type, hours, rotation, block_number, team_role, team_color)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
				ON CONFLICT (id) DO NOTHING
			`,
			args: []any{a.ID, a.ScheduleID, a.ResidentID, a.Date, a.DutyType, a.Points, a.Status,
				a.SlotID, a.Service, a.SurgeonID, a.CaseType, a.Hours, a.Rotation, a.Block, a.TeamRole, a.TeamColor},
		})
	}
	for _, c := range carryOvers {
		rows = append(rows, statement{
			sql: `
				INSERT INTO carry_over (id, schedule_id, resident_id, source_date, source_duty_type, effective_date, source_period, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO NOTHING
			`,
			args: []any{c.ID, c.ScheduleID, c.ResidentID, c.SourceDate, c.SourceDutyType, c.EffectiveDate, c.SourcePeriod, c.Version},
		})
	}

	return []savePhase{
		{op: "save schedule " + schedule.PeriodKey, stmts: header},
		{op: "save assignments for " + schedule.PeriodKey, stmts: rows},
		{op: "complete schedule " + schedule.PeriodKey, stmts: []statement{
			{sql: `UPDATE schedule SET complete = TRUE WHERE id = $1`, args: []any{schedule.ID}},
		}},
	}
}

// SetSchedulePublished marks a schedule and its assignments as published
func (d *DB) SetSchedulePublished(ctx context.Context, scheduleID string, at time.Time) error {
	return d.execChunked(ctx, "mark schedule published", []statement{
		{sql: `UPDATE schedule SET status = 'Published', published_at = $2 WHERE id = $1`, args: []any{scheduleID, at.UTC()}},
		{sql: `UPDATE assignment SET status = 'Published' WHERE schedule_id = $1`, args: []any{scheduleID}},
	})
}

// GetAssignments retrieves assignments of a horizon dated within from..to inclusive
func (d *DB) GetAssignments(ctx context.Context, horizon, from, to string) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT a.id, a.schedule_id, a.resident_id, a.duty_date, a.duty_type, a.points, a.status,
			a.slot_id, a.service, a.surgeon_id, a.case_type, a.hours, a.rotation, a.block_number, a.team_role, a.team_color
		FROM assignment a
		JOIN schedule s ON s.id = a.schedule_id
		WHERE s.horizon = $1 AND s.complete AND a.duty_date BETWEEN $2 AND $3
		ORDER BY a.duty_date, a.resident_id, a.id
	`, horizon, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query assignments: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var date time.Time
		if err := rows.Scan(&a.ID, &a.ScheduleID, &a.ResidentID, &date, &a.DutyType, &a.Points, &a.Status,
			&a.SlotID, &a.Service, &a.SurgeonID, &a.CaseType, &a.Hours, &a.Rotation, &a.Block, &a.TeamRole, &a.TeamColor); err != nil {
			return nil, fmt.Errorf("%w: failed to scan assignment: %w", db.ErrPersistence, err)
		}
		a.Date = dateString(date)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating assignments: %w", db.ErrPersistence, err)
	}

	return assignments, nil
}

// GetCarryOvers retrieves carry-overs effective within from..to inclusive
func (d *DB) GetCarryOvers(ctx context.Context, from, to string) ([]db.CarryOver, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT c.id, c.schedule_id, c.resident_id, c.source_date, c.source_duty_type, c.effective_date, c.source_period, c.version
		FROM carry_over c
		JOIN schedule s ON s.id = c.schedule_id
		WHERE s.complete AND c.effective_date BETWEEN $1 AND $2
		ORDER BY c.effective_date, c.resident_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query carry-overs: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	var carryOvers []db.CarryOver
	for rows.Next() {
		var c db.CarryOver
		var source, effective time.Time
		if err := rows.Scan(&c.ID, &c.ScheduleID, &c.ResidentID, &source, &c.SourceDutyType, &effective, &c.SourcePeriod, &c.Version); err != nil {
			return nil, fmt.Errorf("%w: failed to scan carry-over: %w", db.ErrPersistence, err)
		}
		c.SourceDate = dateString(source)
		c.EffectiveDate = dateString(effective)
		carryOvers = append(carryOvers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating carry-overs: %w", db.ErrPersistence, err)
	}

	return carryOvers, nil
}
