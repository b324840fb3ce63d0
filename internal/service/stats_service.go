package service

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentStats aggregates operational reporting numbers.
type IncidentStats struct {
	ByStatus       []repository.StatusCount
	ByDepartment   []repository.NameCount
	ByPriority     []repository.PriorityCount
	MTTRSeconds    float64
	MTTRByPriority []repository.PriorityMTTR
	DailyTrend     []repository.DailyMTTR
}

// StatsService produces reporting aggregates for managers and admins.
type StatsService struct {
	incidents repository.IncidentRepository
}

// NewStatsService constructs the service.
func NewStatsService(incidents repository.IncidentRepository) *StatsService {
	return &StatsService{incidents: incidents}
}

// Overview returns counts by status, department and priority plus mean
// time to resolution, overall and per priority, with a 30-day trend.
func (s *StatsService) Overview(ctx context.Context, actor *domain.User) (*IncidentStats, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionViewStats) {
		return nil, errorutil.NewForbidden("not allowed to view statistics")
	}

	byStatus, err := s.incidents.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byDepartment, err := s.incidents.CountsByDepartment(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.incidents.CountsByPriority(ctx)
	if err != nil {
		return nil, err
	}
	mttr, err := s.incidents.MTTRSeconds(ctx)
	if err != nil {
		return nil, err
	}
	mttrByPriority, err := s.incidents.MTTRSecondsByPriority(ctx)
	if err != nil {
		return nil, err
	}
	trend, err := s.incidents.MTTRDailyTrend(ctx, 30)
	if err != nil {
		return nil, err
	}

	return &IncidentStats{
		ByStatus:       byStatus,
		ByDepartment:   byDepartment,
		ByPriority:     byPriority,
		MTTRSeconds:    mttr,
		MTTRByPriority: mttrByPriority,
		DailyTrend:     trend,
	}, nil
}

// Workload returns open incident counts per member of the manager's own
// department. Admins have stats access but not the workload view.
func (s *StatsService) Workload(ctx context.Context, actor *domain.User) ([]repository.WorkloadEntry, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionViewWorkload) {
		return nil, errorutil.NewForbidden("not allowed to view workload")
	}
	if actor.DepartmentID == nil {
		return nil, errorutil.NewValidationError("manager has no department", nil)
	}
	return s.incidents.OpenWorkload(ctx, *actor.DepartmentID)
}
