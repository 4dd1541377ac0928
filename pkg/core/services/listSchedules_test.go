package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/db"
)

type mockScheduleLister struct {
	schedules []db.Schedule
	err       error
}

func (m *mockScheduleLister) GetSchedules(ctx context.Context) ([]db.Schedule, error) {
	return m.schedules, m.err
}

func TestListSchedules(t *testing.T) {
	store := &mockScheduleLister{schedules: []db.Schedule{
		{ID: "s3", Horizon: string(model.HorizonMonthly), PeriodKey: "2025-09"},
		{ID: "s2", Horizon: string(model.HorizonWeekly), PeriodKey: "2025-W32"},
		{ID: "s1", Horizon: string(model.HorizonMonthly), PeriodKey: "2025-08"},
	}}

	all, err := ListSchedules(context.Background(), store, zap.NewNop(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	monthly, err := ListSchedules(context.Background(), store, zap.NewNop(), model.HorizonMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2025-09", monthly[0].PeriodKey)
	assert.Equal(t, "2025-08", monthly[1].PeriodKey)

	yearly, err := ListSchedules(context.Background(), store, zap.NewNop(), model.HorizonYearly)
	require.NoError(t, err)
	assert.Empty(t, yearly)
}

func TestListSchedules_StoreError(t *testing.T) {
	store := &mockScheduleLister{err: errBoom}

	_, err := ListSchedules(context.Background(), store, zap.NewNop(), "")
	assert.ErrorIs(t, err, errBoom)
}
