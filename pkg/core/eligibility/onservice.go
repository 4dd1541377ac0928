package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// OnService requires the resident to be flagged on-service for the period
type OnService struct{}

func NewOnService() *OnService {
	return &OnService{}
}

func (c *OnService) Name() string {
	return "OnService"
}

func (c *OnService) Allows(t *stats.Tracker, s *stats.ResidentStatistics, slot model.Slot) bool {
	return s.Resident.OnService
}
