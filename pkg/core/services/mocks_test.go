package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jakechorley/residency-scheduler/internal/config"
	"github.com/jakechorley/residency-scheduler/pkg/clients/queueclient"
	"github.com/jakechorley/residency-scheduler/pkg/clients/sheetsclient"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

// mockStore is an in-memory database safe for concurrent use
type mockStore struct {
	mu          sync.Mutex
	residents   []db.Resident
	leave       []db.Leave
	schedules   map[string]db.Schedule
	assignments map[string][]db.Assignment
	carryOvers  map[string][]db.CarryOver
	saves       []string
	published   map[string]time.Time

	saveErr error
}

func newMockStore(residents []model.Resident) *mockStore {
	m := &mockStore{
		schedules:   make(map[string]db.Schedule),
		assignments: make(map[string][]db.Assignment),
		carryOvers:  make(map[string][]db.CarryOver),
		published:   make(map[string]time.Time),
	}
	for _, r := range residents {
		m.residents = append(m.residents, db.ResidentFromModel(r))
	}
	return m
}

func scheduleKey(horizon, periodKey string) string {
	return horizon + "/" + periodKey
}

func (m *mockStore) GetResidents(ctx context.Context) ([]db.Resident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Resident(nil), m.residents...), nil
}

func (m *mockStore) UpsertResidents(ctx context.Context, residents []db.Resident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.residents = append(m.residents, residents...)
	return nil
}

func (m *mockStore) GetLeave(ctx context.Context, from, to string) ([]db.Leave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Leave
	for _, l := range m.leave {
		if l.Start <= to && l.End >= from {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertLeave(ctx context.Context, leave []db.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave = append(m.leave, leave...)
	return nil
}

func (m *mockStore) GetSchedule(ctx context.Context, horizon, periodKey string) (*db.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[scheduleKey(horizon, periodKey)]
	if !ok {
		return nil, fmt.Errorf("schedule %s %s: %w", horizon, periodKey, db.ErrNotFound)
	}
	return &s, nil
}

func (m *mockStore) SaveSchedule(ctx context.Context, schedule db.Schedule, assignments []db.Assignment, carryOvers []db.CarryOver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.schedules[scheduleKey(schedule.Horizon, schedule.PeriodKey)] = schedule
	m.assignments[schedule.ID] = assignments
	m.carryOvers[schedule.ID] = carryOvers
	m.saves = append(m.saves, schedule.PeriodKey)
	return nil
}

func (m *mockStore) SetSchedulePublished(ctx context.Context, scheduleID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.schedules {
		if s.ID == scheduleID {
			s.Status = string(model.StatusPublished)
			s.PublishedAt = at.UTC().Format(time.RFC3339)
			m.schedules[key] = s
			m.published[scheduleID] = at
			return nil
		}
	}
	return fmt.Errorf("schedule %s: %w", scheduleID, db.ErrNotFound)
}

func (m *mockStore) GetAssignments(ctx context.Context, horizon, from, to string) ([]db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Assignment
	for _, s := range m.schedules {
		if s.Horizon != horizon {
			continue
		}
		for _, a := range m.assignments[s.ID] {
			if a.Date >= from && a.Date <= to {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *mockStore) GetCarryOvers(ctx context.Context, from, to string) ([]db.CarryOver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.CarryOver
	for _, list := range m.carryOvers {
		for _, c := range list {
			if c.EffectiveDate >= from && c.EffectiveDate <= to {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type mockRosterClient struct {
	residents []model.Resident
	leave     []model.LeaveInterval
	err       error
}

func (m *mockRosterClient) ListResidents(cfg *config.Config) ([]model.Resident, error) {
	return m.residents, m.err
}

func (m *mockRosterClient) ListLeave(cfg *config.Config) ([]model.LeaveInterval, error) {
	return m.leave, nil
}

type mockSheetsClient struct {
	spreadsheetID string
	published     *sheetsclient.PublishedSchedule
	err           error
}

func (m *mockSheetsClient) PublishSchedule(spreadsheetID string, published *sheetsclient.PublishedSchedule) error {
	m.spreadsheetID = spreadsheetID
	m.published = published
	return m.err
}

type sentEmail struct {
	to, subject, body string
}

type mockEmailClient struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockEmailClient) SendEmail(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []queueclient.Event
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event queueclient.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	r := rules.Default()
	r.Optimization.Iterations = 200
	return &config.Config{
		RosterSheetID:     "roster-sheet",
		RosterTab:         "Residents",
		LeaveTab:          "Leave",
		ScheduleSheetID:   "schedule-sheet",
		DatabaseURL:       "postgres://localhost/test",
		AcademicYearStart: "2025-07-01",
		Rules:             r,
	}
}

func testResidents() []model.Resident {
	return []model.Resident{
		{ID: "pgy1", FirstName: "Ada", LastName: "One", PGY: 1, Service: "Surgery"},
		{ID: "pgy2", FirstName: "Ben", LastName: "Two", PGY: 2, Service: "Surgery"},
		{ID: "pgy3", FirstName: "Cy", LastName: "Three", PGY: 3, Service: "Surgery"},
		{ID: "pgy4", FirstName: "Di", LastName: "Four", PGY: 4, Service: "Surgery"},
		{ID: "pgy5", FirstName: "Ed", LastName: "Five", PGY: 5, Service: "Surgery"},
		{ID: "chief", FirstName: "Flo", LastName: "Chief", PGY: 5, Service: "Surgery", IsChief: true},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC)
}

func testOptions() GenerateOptions {
	return GenerateOptions{Now: fixedNow}
}
