package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scheduler"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

func TestGenerateMonthly_SavesAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newMockStore(testResidents())
	events := &mockPublisher{}
	email := &mockEmailClient{}
	notifier := &Notifier{Events: events, Email: email, Recipients: []string{"chief@example.com"}}

	result, err := GenerateMonthly(ctx, store, notifier, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Persisted)
	assert.Equal(t, "2025-08", result.Schedule.PeriodKey)
	assert.Equal(t, model.HorizonMonthly, result.Schedule.Horizon)
	assert.NotEmpty(t, result.Schedule.Assignments)

	saved, err := store.GetSchedule(ctx, "monthly", "2025-08")
	require.NoError(t, err)
	assert.Equal(t, result.Schedule.ID, saved.ID)
	assert.Equal(t, string(model.StatusDraft), saved.Status)
	assert.Len(t, store.assignments[saved.ID], len(result.Schedule.Assignments))
	assert.Len(t, store.carryOvers[saved.ID], len(result.Schedule.CarryOvers))

	doc, err := saved.ToModel()
	require.NoError(t, err)
	assert.Equal(t, len(result.Schedule.Assignments), len(doc.Assignments))

	require.Len(t, events.events, 1)
	assert.Equal(t, queueclient.EventScheduleGenerated, events.events[0].Type)
	assert.Equal(t, "2025-08", events.events[0].PeriodKey)
	assert.Equal(t, fixedNow(), events.events[0].OccurredAt)

	// Emails are only sent on publication
	assert.Empty(t, email.sent)
}

func TestGenerateMonthly_DryRunDoesNotSave(t *testing.T) {
	store := newMockStore(testResidents())
	events := &mockPublisher{}

	opts := testOptions()
	opts.DryRun = true
	result, err := GenerateMonthly(context.Background(), store, &Notifier{Events: events}, testConfig(), zap.NewNop(), 2025, time.August, opts)
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.NotEmpty(t, result.Schedule.Assignments)
	assert.Empty(t, store.saves)
	assert.Empty(t, events.events)
}

func TestGenerateMonthly_RefusesPublishedSchedule(t *testing.T) {
	ctx := context.Background()
	store := newMockStore(testResidents())
	cfg := testConfig()

	first, err := GenerateMonthly(ctx, store, nil, cfg, zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)
	require.NoError(t, store.SetSchedulePublished(ctx, first.Schedule.ID, fixedNow()))

	_, err = GenerateMonthly(ctx, store, nil, cfg, zap.NewNop(), 2025, time.August, testOptions())
	assert.ErrorIs(t, err, ErrAlreadyPublished)
	assert.Len(t, store.saves, 1)

	opts := testOptions()
	opts.ForceCommit = true
	second, err := GenerateMonthly(ctx, store, nil, cfg, zap.NewNop(), 2025, time.August, opts)
	require.NoError(t, err)
	assert.True(t, second.Persisted)
	assert.Len(t, store.saves, 2)

	saved, err := store.GetSchedule(ctx, "monthly", "2025-08")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusDraft), saved.Status)
	assert.Equal(t, first.Schedule.ID, second.Schedule.ID, "schedule ids are deterministic per period")
}

func TestGenerateMonthly_RegeneratingDraftIsAllowed(t *testing.T) {
	ctx := context.Background()
	store := newMockStore(testResidents())

	_, err := GenerateMonthly(ctx, store, nil, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)
	_, err = GenerateMonthly(ctx, store, nil, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-08", "2025-08"}, store.saves)
}

func TestGenerateMonthly_SameSeedSameSchedule(t *testing.T) {
	seed := int64(42)
	opts := testOptions()
	opts.DryRun = true
	opts.Seed = &seed

	a, err := GenerateMonthly(context.Background(), newMockStore(testResidents()), nil, testConfig(), zap.NewNop(), 2025, time.August, opts)
	require.NoError(t, err)
	b, err := GenerateMonthly(context.Background(), newMockStore(testResidents()), nil, testConfig(), zap.NewNop(), 2025, time.August, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Schedule.Assignments, b.Schedule.Assignments)
}

func TestGenerateMonthly_NotifyFailureIsNotFatal(t *testing.T) {
	store := newMockStore(testResidents())
	notifier := &Notifier{Events: &mockPublisher{err: errBoom}}

	result, err := GenerateMonthly(context.Background(), store, notifier, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)
	assert.True(t, result.Persisted)
}

func TestGenerateMonthly_Errors(t *testing.T) {
	t.Run("empty roster", func(t *testing.T) {
		_, err := GenerateMonthly(context.Background(), newMockStore(nil), nil, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
		assert.ErrorIs(t, err, scheduler.ErrInvalidInput)
	})

	t.Run("invalid month", func(t *testing.T) {
		_, err := GenerateMonthly(context.Background(), newMockStore(testResidents()), nil, testConfig(), zap.NewNop(), 2025, 13, testOptions())
		assert.ErrorIs(t, err, scheduler.ErrInvalidInput)
	})

	t.Run("save failure", func(t *testing.T) {
		store := newMockStore(testResidents())
		store.saveErr = db.ErrPersistence
		_, err := GenerateMonthly(context.Background(), store, nil, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
		assert.ErrorIs(t, err, db.ErrPersistence)
	})
}

func TestGenerateMonthly_UsesApprovedLeave(t *testing.T) {
	store := newMockStore(testResidents())
	store.leave = []db.Leave{
		{ID: "l1", ResidentID: "pgy3", Start: "2025-07-28", End: "2025-08-10", Status: string(model.LeaveApproved)},
	}

	result, err := GenerateMonthly(context.Background(), store, nil, testConfig(), zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)

	for _, a := range result.Schedule.Assignments {
		if a.ResidentID == "pgy3" && a.CountsTowardTotals() {
			assert.True(t, a.Date.After(time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)), "pgy3 is on leave on %s", a.Date)
		}
	}
}

func TestBuildInput_SeedOverride(t *testing.T) {
	store := newMockStore(testResidents())
	cfg := testConfig()
	period := model.Period{Start: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)}

	seed := int64(99)
	opts := testOptions()
	opts.Seed = &seed

	input, err := buildInput(context.Background(), store, cfg, zap.NewNop(), model.HorizonMonthly, period,
		metrics.ScheduleID(model.HorizonMonthly, "2025-08"), opts)
	require.NoError(t, err)
	assert.Equal(t, int64(99), input.Rules.Optimization.Seed)
	assert.Equal(t, int64(1), cfg.Rules.Optimization.Seed, "the configured rules are left untouched")
}

func TestGenerateMonthly_LoadsPriorAndCarryOvers(t *testing.T) {
	ctx := context.Background()
	store := newMockStore(testResidents())
	cfg := testConfig()

	aug, err := GenerateMonthly(ctx, store, nil, cfg, zap.NewNop(), 2025, time.August, testOptions())
	require.NoError(t, err)

	input, err := buildInput(ctx, store, cfg, zap.NewNop(), model.HorizonMonthly,
		model.Period{Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
		metrics.ScheduleID(model.HorizonMonthly, "2025-09"), testOptions())
	require.NoError(t, err)

	assert.Len(t, input.CarryOvers, len(aug.Schedule.CarryOvers))
	assert.NotEmpty(t, input.Prior)
	for _, a := range input.Prior {
		assert.False(t, a.Date.Before(time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)), "prior window is 28 days")
	}
	assert.Len(t, input.Residents, 6)
	assert.Equal(t, cfg.Rules.Optimization.Seed, input.Rules.Optimization.Seed)

	// A schedule never consumes its own carry-overs or priors
	self, err := buildInput(ctx, store, cfg, zap.NewNop(), model.HorizonMonthly,
		model.Period{Start: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
		aug.Schedule.ID, testOptions())
	require.NoError(t, err)
	assert.Empty(t, self.CarryOvers)
	assert.Empty(t, self.Prior)
}

func TestGenerateMonthlyRange(t *testing.T) {
	for _, chain := range []bool{true, false} {
		t.Run(map[bool]string{true: "chained", false: "concurrent"}[chain], func(t *testing.T) {
			store := newMockStore(testResidents())

			results, err := GenerateMonthlyRange(context.Background(), store, nil, testConfig(), zap.NewNop(), 2025, time.November, 3, chain, testOptions())
			require.NoError(t, err)
			require.Len(t, results, 3)

			assert.Equal(t, "2025-11", results[0].Schedule.PeriodKey)
			assert.Equal(t, "2025-12", results[1].Schedule.PeriodKey)
			assert.Equal(t, "2026-01", results[2].Schedule.PeriodKey)
			assert.ElementsMatch(t, []string{"2025-11", "2025-12", "2026-01"}, store.saves)
			if chain {
				assert.Equal(t, []string{"2025-11", "2025-12", "2026-01"}, store.saves)
			}
		})
	}

	t.Run("invalid count", func(t *testing.T) {
		_, err := GenerateMonthlyRange(context.Background(), newMockStore(testResidents()), nil, testConfig(), zap.NewNop(), 2025, time.August, 0, false, testOptions())
		assert.Error(t, err)
	})

	t.Run("first error stops the range", func(t *testing.T) {
		store := newMockStore(testResidents())
		store.saveErr = db.ErrPersistence
		_, err := GenerateMonthlyRange(context.Background(), store, nil, testConfig(), zap.NewNop(), 2025, time.August, 2, false, testOptions())
		assert.ErrorIs(t, err, db.ErrPersistence)
	})
}

func TestGenerateWeekly(t *testing.T) {
	ctx := context.Background()
	residents := []model.Resident{
		{ID: "sr", FirstName: "Sam", PGY: 5, Service: "neuro", OnService: true},
		{ID: "mid", FirstName: "Mo", PGY: 3, Service: "neuro", OnService: true},
		{ID: "r2", FirstName: "Ria", PGY: 2, Service: "neuro", OnService: true},
		{ID: "jr", FirstName: "Jo", PGY: 1, Service: "neuro", OnService: true},
	}
	store := newMockStore(residents)
	cfg := testConfig()
	cfg.Weekly.ORSlots = []scheduler.ORTemplate{{
		ID: "or-mon", Weekday: time.Monday, Service: "neuro", SurgeonID: "dr-x",
		CaseType: "spine", Hours: 8, MinPGY: 4, TeamSize: 2,
	}}
	cfg.Weekly.Clinics = []scheduler.ClinicTemplate{{
		ID: "clinic-tue", Weekday: time.Tuesday, Service: "neuro", Residents: 1,
	}}

	result, err := GenerateWeekly(ctx, store, nil, cfg, zap.NewNop(), time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), testOptions())
	require.NoError(t, err)

	assert.True(t, result.Persisted)
	assert.Equal(t, "2025-W32", result.Schedule.PeriodKey)
	assert.Equal(t, model.HorizonWeekly, result.Schedule.Horizon)

	or := 0
	for _, a := range result.Schedule.Assignments {
		if a.Type == model.DutyOR {
			or++
			assert.Equal(t, "or-mon", a.SlotID)
		}
	}
	assert.Equal(t, 2, or)

	_, err = store.GetSchedule(ctx, "weekly", "2025-W32")
	require.NoError(t, err)

	t.Run("not a sunday", func(t *testing.T) {
		_, err := GenerateWeekly(ctx, store, nil, cfg, zap.NewNop(), time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC), testOptions())
		assert.ErrorIs(t, err, scheduler.ErrInvalidInput)
	})
}

func TestGenerateYearly(t *testing.T) {
	residents := []model.Resident{
		{ID: "pgy1", PGY: 1, Service: "neuro", OnService: true},
		{ID: "pgy3", PGY: 3, Service: "neuro", OnService: true},
		{ID: "pgy5", PGY: 5, Service: "neuro", OnService: true},
	}
	cfg := testConfig()
	cfg.Yearly.Rotations = []scheduler.Rotation{
		{Name: "ward", Kind: scheduler.RotationCore, Service: "neuro", MinCapacity: 2, MaxCapacity: 2},
		{Name: "research", Kind: scheduler.RotationElective, Service: "neuro", MaxCapacity: 1},
	}

	t.Run("configured academic year", func(t *testing.T) {
		store := newMockStore(residents)
		result, err := GenerateYearly(context.Background(), store, nil, cfg, zap.NewNop(), time.Time{}, testOptions())
		require.NoError(t, err)

		assert.Equal(t, "AY2025-2026", result.Schedule.PeriodKey)
		assert.Equal(t, model.HorizonYearly, result.Schedule.Horizon)
		assert.NotEmpty(t, result.Schedule.Assignments)
		assert.Equal(t, []string{"AY2025-2026"}, store.saves)
	})

	t.Run("explicit academic year", func(t *testing.T) {
		store := newMockStore(residents)
		opts := testOptions()
		opts.DryRun = true
		result, err := GenerateYearly(context.Background(), store, nil, cfg, zap.NewNop(), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), opts)
		require.NoError(t, err)

		assert.Equal(t, "AY2026-2027", result.Schedule.PeriodKey)
		assert.Empty(t, store.saves)
	})
}
