package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// GetResidents retrieves all resident records ordered by id
func (d *DB) GetResidents(ctx context.Context) ([]db.Resident, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, first_name, last_name, email, pgy, service, is_chief, call_exempt, on_service, team, holiday_points
		FROM resident
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query residents: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	var residents []db.Resident
	for rows.Next() {
		var r db.Resident
		if err := rows.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Email, &r.PGY, &r.Service,
			&r.IsChief, &r.CallExempt, &r.OnService, &r.Team, &r.HolidayPoints); err != nil {
			return nil, fmt.Errorf("%w: failed to scan resident: %w", db.ErrPersistence, err)
		}
		residents = append(residents, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating residents: %w", db.ErrPersistence, err)
	}

	return residents, nil
}

// UpsertResidents inserts or updates resident records
func (d *DB) UpsertResidents(ctx context.Context, residents []db.Resident) error {
	stmts := make([]statement, 0, len(residents))
	for _, r := range residents {
		stmts = append(stmts, statement{
			sql: `
				INSERT INTO resident (id, first_name, last_name, email, pgy, service, is_chief, call_exempt, on_service, team, holiday_points)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (id) DO UPDATE SET
					first_name = EXCLUDED.first_name,
					last_name = EXCLUDED.last_name,
					email = EXCLUDED.email,
					pgy = EXCLUDED.pgy,
					service = EXCLUDED.service,
					is_chief = EXCLUDED.is_chief,
					call_exempt = EXCLUDED.call_exempt,
					on_service = EXCLUDED.on_service,
					team = EXCLUDED.team,
					holiday_points = EXCLUDED.holiday_points,
					updated_at = NOW()
			`,
			args: []any{r.ID, r.FirstName, r.LastName, r.Email, r.PGY, r.Service,
				r.IsChief, r.CallExempt, r.OnService, r.Team, r.HolidayPoints},
		})
	}

	return d.execChunked(ctx, "upsert residents", stmts)
}

// GetLeave retrieves leave records overlapping from..to inclusive
func (d *DB) GetLeave(ctx context.Context, from, to string) ([]db.Leave, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, resident_id, start_date, end_date, status
		FROM leave_interval
		WHERE start_date <= $2 AND end_date >= $1
		ORDER BY start_date, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query leave: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	var leave []db.Leave
	for rows.Next() {
		var l db.Leave
		var start, end time.Time
		if err := rows.Scan(&l.ID, &l.ResidentID, &start, &end, &l.Status); err != nil {
			return nil, fmt.Errorf("%w: failed to scan leave: %w", db.ErrPersistence, err)
		}
		l.Start = dateString(start)
		l.End = dateString(end)
		leave = append(leave, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating leave: %w", db.ErrPersistence, err)
	}

	return leave, nil
}

// UpsertLeave inserts or updates leave records
func (d *DB) UpsertLeave(ctx context.Context, leave []db.Leave) error {
	stmts := make([]statement, 0, len(leave))
	for _, l := range leave {
		stmts = append(stmts, statement{
			sql: `
				INSERT INTO leave_interval (id, resident_id, start_date, end_date, status)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET
					resident_id = EXCLUDED.resident_id,
					start_date = EXCLUDED.start_date,
					end_date = EXCLUDED.end_date,
					status = EXCLUDED.status
			`,
			args: []any{l.ID, l.ResidentID, l.Start, l.End, l.Status},
		})
	}

	return d.execChunked(ctx, "upsert leave", stmts)
}
