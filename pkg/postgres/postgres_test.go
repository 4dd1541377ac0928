package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/residency-scheduler/pkg/db"
)

func TestChunk(t *testing.T) {
	items := make([]int, 901)
	for i := range items {
		items[i] = i
	}

	chunks := chunk(items, maxStatementsPerTx)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 400)
	assert.Len(t, chunks[1], 400)
	assert.Len(t, chunks[2], 101)
	assert.Equal(t, 400, chunks[1][0])
	assert.Equal(t, 900, chunks[2][100])

	// Appending to a chunk never overwrites the next one
	_ = append(chunks[0], -1)
	assert.Equal(t, 400, chunks[1][0])

	assert.Empty(t, chunk([]int{}, 400))
	assert.Len(t, chunk([]int{1, 2}, 400), 1)
	assert.Len(t, chunk(make([]int, 400), 400), 1)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection reset", errors.New("connection reset by peer"), true},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"admin shutdown", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "57P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"invalid date", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "22007"}), false},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func testDB() *DB {
	return &DB{newBackOff: func() backoff.BackOff {
		return limitAttempts(&backoff.ZeroBackOff{})
	}}
}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := testDB().withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := testDB().withRetry(context.Background(), func() error {
		calls++
		return errors.New("connection refused")
	})

	assert.Error(t, err)
	assert.Equal(t, maxAttempts, calls)
}

func TestWithRetry_StopsOnPermanentErrors(t *testing.T) {
	calls := 0
	violation := &pgconn.PgError{Code: "23505"}
	err := testDB().withRetry(context.Background(), func() error {
		calls++
		return violation
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, violation)
}

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
	assert.Contains(t, files, "002_schedule_complete.sql")

	content, err := fs.ReadFile(migrationsFS, "migrations/"+files[0])
	require.NoError(t, err)
	for _, table := range []string{"resident", "leave_interval", "schedule", "assignment", "carry_over"} {
		assert.True(t, strings.Contains(string(content), "CREATE TABLE IF NOT EXISTS "+table+" ("), "missing table %s", table)
	}
}

func TestSaveSchedulePhases_CompletesLast(t *testing.T) {
	schedule := db.Schedule{ID: "s1", Horizon: "monthly", PeriodKey: "2025-08"}
	assignments := make([]db.Assignment, maxStatementsPerTx+1)
	carryOvers := []db.CarryOver{{ID: "c1", ScheduleID: "s1"}}

	phases := saveSchedulePhases(schedule, assignments, carryOvers)
	require.Len(t, phases, 3)

	header := phases[0].stmts
	require.Len(t, header, 3)
	assert.Contains(t, header[0].sql, "complete = FALSE")
	assert.Contains(t, header[1].sql, "DELETE FROM assignment")
	assert.Contains(t, header[2].sql, "DELETE FROM carry_over")

	assert.Len(t, phases[1].stmts, maxStatementsPerTx+2)

	last := phases[2].stmts
	require.Len(t, last, 1)
	assert.Contains(t, last[0].sql, "SET complete = TRUE")
	assert.Equal(t, []any{"s1"}, last[0].args)
}
