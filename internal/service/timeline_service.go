package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// TimelineService renders the audit ledger for display.
type TimelineService struct {
	incidents repository.IncidentRepository
	audits    repository.AuditRepository
	users     repository.UserRepository
}

// NewTimelineService constructs the service.
func NewTimelineService(incidents repository.IncidentRepository, audits repository.AuditRepository, users repository.UserRepository) *TimelineService {
	return &TimelineService{incidents: incidents, audits: audits, users: users}
}

// Timeline returns the incident's audit entries, newest first, with actor
// names resolved. Assignment entries store raw user IDs; those are mapped
// to display names here so the ledger itself stays immutable.
func (s *TimelineService) Timeline(ctx context.Context, actor *domain.User, incidentID string) ([]domain.TimelineEntry, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("incident", map[string]any{"id": incidentID})
		}
		return nil, err
	}
	if !policy.Allows(actor.Role, policy.ActionViewIncident, actor.ID == incident.ReporterID, sameDepartment(actor, incident)) {
		return nil, errorutil.NewForbidden("not allowed to view this incident")
	}

	entries, err := s.audits.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	resolve := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := "Unknown"
		if user, err := s.users.GetByID(ctx, id); err == nil {
			name = user.DisplayName()
		}
		names[id] = name
		return name
	}

	result := make([]domain.TimelineEntry, 0, len(entries))
	for _, entry := range entries {
		te := domain.TimelineEntry{
			AuditLogEntry: entry,
			ActorName:     resolve(entry.ActorID),
			OldValue:      resolveValue(entry.OldValue, resolve),
			NewValue:      resolveValue(entry.NewValue, resolve),
		}
		result = append(result, te)
	}
	return result, nil
}

// resolveValue substitutes display names for values that are user IDs.
// Assignment entries always carry IDs; older rows from other actions may
// hold raw UUIDs too, so any parseable UUID gets a best-effort lookup.
func resolveValue(value *string, resolve func(string) string) *string {
	if value == nil {
		return nil
	}
	if _, err := uuid.Parse(*value); err != nil {
		return value
	}
	name := resolve(*value)
	return &name
}
