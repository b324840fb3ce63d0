package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// SLADeadline computes the resolution deadline for an incident created at
// createdAt under the given policy. The deadline is fixed at creation time
// and is never recomputed, even when the incident's priority later changes.
func SLADeadline(createdAt time.Time, p *domain.SLAPolicy) *time.Time {
	if p == nil || p.ResolutionTimeMinutes <= 0 {
		return nil
	}
	deadline := createdAt.Add(time.Duration(p.ResolutionTimeMinutes) * time.Minute)
	return &deadline
}

// SLAService manages SLA policy administration.
type SLAService struct {
	policies repository.SLARepository
}

// NewSLAService constructs the service.
func NewSLAService(policies repository.SLARepository) *SLAService {
	return &SLAService{policies: policies}
}

// SLAPolicyInput describes a policy create/update payload.
type SLAPolicyInput struct {
	Name                  string
	Priority              domain.IncidentPriority
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
}

func (s *SLAService) validate(input SLAPolicyInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return errorutil.NewValidationError("name is required", nil)
	}
	if !domain.ValidPriority(input.Priority) {
		return errorutil.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.ResponseTimeMinutes <= 0 || input.ResolutionTimeMinutes <= 0 {
		return errorutil.NewValidationError("time targets must be positive", nil)
	}
	return nil
}

// CreatePolicy registers an SLA policy. Admin only.
func (s *SLAService) CreatePolicy(ctx context.Context, actor *domain.User, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageSLA) {
		return nil, errorutil.NewForbidden("not allowed to manage SLA policies")
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}
	p := &domain.SLAPolicy{
		Name:                  strings.TrimSpace(input.Name),
		Priority:              input.Priority,
		ResponseTimeMinutes:   input.ResponseTimeMinutes,
		ResolutionTimeMinutes: input.ResolutionTimeMinutes,
	}
	if err := s.policies.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePolicy replaces an SLA policy's targets. Existing incident
// deadlines are unaffected.
func (s *SLAService) UpdatePolicy(ctx context.Context, actor *domain.User, id string, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageSLA) {
		return nil, errorutil.NewForbidden("not allowed to manage SLA policies")
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}
	p := &domain.SLAPolicy{
		ID:                    id,
		Name:                  strings.TrimSpace(input.Name),
		Priority:              input.Priority,
		ResponseTimeMinutes:   input.ResponseTimeMinutes,
		ResolutionTimeMinutes: input.ResolutionTimeMinutes,
	}
	if err := s.policies.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPolicies returns all SLA policies.
func (s *SLAService) ListPolicies(ctx context.Context) ([]domain.SLAPolicy, error) {
	return s.policies.List(ctx)
}
