package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// transitions is the incident lifecycle table. A status change absent from
// this table is rejected regardless of the caller's role; CLOSED and
// CANCELLED are terminal.
var transitions = map[domain.IncidentStatus][]domain.IncidentStatus{
	domain.IncidentStatusOpen:       {domain.IncidentStatusInProgress, domain.IncidentStatusCancelled},
	domain.IncidentStatusInProgress: {domain.IncidentStatusResolved, domain.IncidentStatusOpen, domain.IncidentStatusCancelled},
	domain.IncidentStatusResolved:   {domain.IncidentStatusClosed, domain.IncidentStatusInProgress},
}

func transitionAllowed(from, to domain.IncidentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// statusAction maps a target status to the permission that gates it.
func statusAction(to domain.IncidentStatus) policy.Action {
	switch to {
	case domain.IncidentStatusResolved:
		return policy.ActionResolve
	case domain.IncidentStatusClosed:
		return policy.ActionClose
	case domain.IncidentStatusCancelled:
		return policy.ActionCancel
	default:
		return policy.ActionChangeStatus
	}
}

// IncidentService coordinates the incident lifecycle.
type IncidentService struct {
	incidents   repository.IncidentRepository
	users       repository.UserRepository
	departments repository.DepartmentRepository
	categories  repository.CategoryRepository
	slas        repository.SLARepository
	dispatcher  events.Dispatcher
}

// IncidentDependencies bundles repositories for the incident service.
type IncidentDependencies struct {
	IncidentRepo   repository.IncidentRepository
	UserRepo       repository.UserRepository
	DepartmentRepo repository.DepartmentRepository
	CategoryRepo   repository.CategoryRepository
	SLARepo        repository.SLARepository
	Dispatcher     events.Dispatcher
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	return &IncidentService{
		incidents:   deps.IncidentRepo,
		users:       deps.UserRepo,
		departments: deps.DepartmentRepo,
		categories:  deps.CategoryRepo,
		slas:        deps.SLARepo,
		dispatcher:  deps.Dispatcher,
	}
}

// IncidentCreateInput describes incident creation payload.
type IncidentCreateInput struct {
	Title         string
	Description   string
	Priority      domain.IncidentPriority
	CategoryID    string
	SubcategoryID *string
	DepartmentID  *string
}

// IncidentUpdateInput describes a partial incident update. Nil fields are
// left untouched; AssigneeSet distinguishes "unassign" from "no change".
type IncidentUpdateInput struct {
	Title         *string
	Description   *string
	Status        *domain.IncidentStatus
	StatusComment *string
	Priority      *domain.IncidentPriority
	AssigneeID    *string
	AssigneeSet   bool
}

// IncidentListInput describes listing filters before role scoping.
type IncidentListInput struct {
	Statuses     []domain.IncidentStatus
	Priorities   []domain.IncidentPriority
	CategoryID   *string
	ReporterID   *string
	AssigneeID   *string
	DepartmentID *string
	Search       *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// CreateIncident registers a new incident reported by actor.
func (s *IncidentService) CreateIncident(ctx context.Context, actor *domain.User, input IncidentCreateInput) (*domain.Incident, error) {
	return s.create(ctx, actor, input, "INC", nil)
}

func (s *IncidentService) create(ctx context.Context, actor *domain.User, input IncidentCreateInput, keyPrefix string, serviceItemID *string) (*domain.Incident, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewMissingRequiredField("title")
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("category", map[string]any{"id": input.CategoryID})
		}
		return nil, err
	}
	if !category.IsActive {
		return nil, errorutil.NewValidationError("category is inactive", map[string]any{"id": category.ID})
	}
	if input.SubcategoryID != nil {
		sub, err := s.categories.GetSubcategoryByID(ctx, *input.SubcategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, errorutil.NewNotFound("subcategory", map[string]any{"id": *input.SubcategoryID})
			}
			return nil, err
		}
		if sub.CategoryID != category.ID {
			return nil, errorutil.NewValidationError("subcategory does not belong to category", nil)
		}
	}

	departmentID := input.DepartmentID
	if departmentID == nil {
		departmentID = actor.DepartmentID
	}
	if departmentID != nil {
		if _, err := s.departments.GetByID(ctx, *departmentID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, errorutil.NewNotFound("department", map[string]any{"id": *departmentID})
			}
			return nil, err
		}
	}

	key, err := s.generateKey(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	incident := &domain.Incident{
		IncidentKey:   key,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.IncidentStatusOpen,
		Priority:      priority,
		ReporterID:    actor.ID,
		DepartmentID:  departmentID,
		CategoryID:    category.ID,
		SubcategoryID: input.SubcategoryID,
		ServiceItemID: serviceItemID,
	}

	slaPolicy, err := s.slas.GetByPriority(ctx, priority)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	incident.SLABreachAt = SLADeadline(now, slaPolicy)

	newStatus := string(incident.Status)
	entry := &domain.AuditLogEntry{
		ActorID:  actor.ID,
		Action:   domain.AuditActionCreated,
		NewValue: &newStatus,
	}
	if err := s.incidents.CreateWithAudit(ctx, incident, entry); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: incident.ID,
		ActorID:    actor.ID,
		Payload: events.IncidentCreatedPayload{
			IncidentKey:   incident.IncidentKey,
			Title:         incident.Title,
			Priority:      incident.Priority,
			ReporterEmail: actor.Email,
			ReporterName:  actor.DisplayName(),
		},
	})
	return incident, nil
}

// generateKey derives the next human-readable key from the row count.
// Concurrent creations can collide; keys are display identifiers, UUIDs
// remain the primary key.
func (s *IncidentService) generateKey(ctx context.Context, prefix string) (string, error) {
	count, err := s.incidents.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, time.Now().UTC().Year(), count+1), nil
}

// UpdateIncident applies a partial update. Each changed field is gated by
// the caller's permissions, validated against the lifecycle table, and
// recorded as its own audit entry, all committed atomically with the row.
func (s *IncidentService) UpdateIncident(ctx context.Context, actor *domain.User, incidentID string, input IncidentUpdateInput) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("incident", map[string]any{"id": incidentID})
		}
		return nil, err
	}

	isOwner := actor.ID == incident.ReporterID
	sameDept := sameDepartment(actor, incident)

	var entries []domain.AuditLogEntry
	var systemComments []domain.Comment
	statusChangedExplicitly := false

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errorutil.NewMissingRequiredField("title")
		}
		if !policy.Allows(actor.Role, policy.ActionEditFields, isOwner, sameDept) {
			return nil, errorutil.NewForbidden("not allowed to edit this incident")
		}
		if title != incident.Title {
			entries = append(entries, auditEntry(actor.ID, domain.AuditActionTitleUpdate, incident.Title, title))
			incident.Title = title
		}
	}

	if input.Description != nil {
		if !policy.Allows(actor.Role, policy.ActionEditFields, isOwner, sameDept) {
			return nil, errorutil.NewForbidden("not allowed to edit this incident")
		}
		description := strings.TrimSpace(*input.Description)
		if description != incident.Description {
			entries = append(entries, auditEntry(actor.ID, domain.AuditActionDescriptionUpdate, incident.Description, description))
			incident.Description = description
		}
	}

	var oldStatus domain.IncidentStatus
	if input.Status != nil && *input.Status != incident.Status {
		target := *input.Status
		// Permission before transition validity: a caller who may not touch
		// the status at all gets FORBIDDEN, not a lifecycle error.
		if !policy.Allows(actor.Role, statusAction(target), isOwner, sameDept) {
			return nil, errorutil.NewForbidden("not allowed to change status")
		}
		if !transitionAllowed(incident.Status, target) {
			return nil, errorutil.NewInvalidTransition(string(incident.Status), string(target))
		}
		if target == domain.IncidentStatusClosed || target == domain.IncidentStatusCancelled {
			if input.StatusComment == nil || strings.TrimSpace(*input.StatusComment) == "" {
				return nil, errorutil.NewMissingRequiredField("status_comment")
			}
			systemComments = append(systemComments, domain.Comment{
				IncidentID: incident.ID,
				AuthorID:   actor.ID,
				Content:    strings.TrimSpace(*input.StatusComment),
			})
		}

		oldStatus = incident.Status
		entries = append(entries, auditEntry(actor.ID, domain.AuditActionStatusChange, string(incident.Status), string(target)))
		incident.Status = target
		statusChangedExplicitly = true

		// resolved_at records the first resolution and survives reopening.
		if target == domain.IncidentStatusResolved && incident.ResolvedAt == nil {
			now := time.Now().UTC()
			incident.ResolvedAt = &now
		}
	}

	if input.AssigneeSet {
		if incident.Status.Terminal() {
			return nil, errorutil.NewIllegalStateOperation("cannot assign a terminal incident")
		}
		if !policy.Allows(actor.Role, policy.ActionAssign, isOwner, sameDept) {
			return nil, errorutil.NewForbidden("not allowed to assign this incident")
		}
		if input.AssigneeID != nil {
			assignee, err := s.users.GetByID(ctx, *input.AssigneeID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, errorutil.NewNotFound("assignee", map[string]any{"id": *input.AssigneeID})
				}
				return nil, err
			}
			if !assignee.Active {
				return nil, errorutil.NewValidationError("assignee is inactive", map[string]any{"id": assignee.ID})
			}
		}
		if !equalPtr(incident.AssigneeID, input.AssigneeID) {
			entries = append(entries, auditEntryPtr(actor.ID, domain.AuditActionAssignment, incident.AssigneeID, input.AssigneeID))
			incident.AssigneeID = input.AssigneeID

			// First assignment starts work on a fresh incident.
			if incident.Status == domain.IncidentStatusOpen && input.AssigneeID != nil && !statusChangedExplicitly {
				oldStatus = incident.Status
				entries = append(entries, auditEntry(actor.ID, domain.AuditActionStatusChange,
					string(domain.IncidentStatusOpen), string(domain.IncidentStatusInProgress)))
				incident.Status = domain.IncidentStatusInProgress
				statusChangedExplicitly = true
			}
		}
	}

	if input.Priority != nil && *input.Priority != incident.Priority {
		if incident.Status.Terminal() {
			return nil, errorutil.NewIllegalStateOperation("cannot reprioritize a terminal incident")
		}
		if !policy.Allows(actor.Role, policy.ActionSetPriority, isOwner, sameDept) {
			return nil, errorutil.NewForbidden("not allowed to set priority")
		}
		if !domain.ValidPriority(*input.Priority) {
			return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		entries = append(entries, auditEntry(actor.ID, domain.AuditActionPriorityChange, string(incident.Priority), string(*input.Priority)))
		incident.Priority = *input.Priority
	}

	if len(entries) == 0 {
		return incident, nil
	}

	if err := s.incidents.UpdateWithAudit(ctx, incident, entries, systemComments); err != nil {
		return nil, err
	}

	s.publishUpdateEvents(ctx, actor, incident, entries, oldStatus)
	return incident, nil
}

func (s *IncidentService) publishUpdateEvents(ctx context.Context, actor *domain.User, incident *domain.Incident, entries []domain.AuditLogEntry, oldStatus domain.IncidentStatus) {
	reporter, err := s.users.GetByID(ctx, incident.ReporterID)
	if err != nil {
		reporter = nil
	}

	for _, entry := range entries {
		switch entry.Action {
		case domain.AuditActionStatusChange:
			payload := events.IncidentStatusChangedPayload{
				IncidentKey: incident.IncidentKey,
				Title:       incident.Title,
				OldStatus:   oldStatus,
				NewStatus:   incident.Status,
			}
			if reporter != nil {
				payload.ReporterEmail = reporter.Email
				payload.ReporterName = reporter.DisplayName()
			}
			s.publishEvent(ctx, events.Event{
				Type:       events.EventIncidentStatusChanged,
				IncidentID: incident.ID,
				ActorID:    actor.ID,
				Payload:    payload,
			})
		case domain.AuditActionAssignment:
			if incident.AssigneeID == nil {
				continue
			}
			payload := events.IncidentAssignedPayload{
				IncidentKey: incident.IncidentKey,
				Title:       incident.Title,
			}
			if assignee, err := s.users.GetByID(ctx, *incident.AssigneeID); err == nil {
				payload.AssigneeEmail = assignee.Email
				payload.AssigneeName = assignee.DisplayName()
			}
			s.publishEvent(ctx, events.Event{
				Type:       events.EventIncidentAssigned,
				IncidentID: incident.ID,
				ActorID:    actor.ID,
				Payload:    payload,
			})
		case domain.AuditActionPriorityChange:
			var oldPriority, newPriority domain.IncidentPriority
			if entry.OldValue != nil {
				oldPriority = domain.IncidentPriority(*entry.OldValue)
			}
			if entry.NewValue != nil {
				newPriority = domain.IncidentPriority(*entry.NewValue)
			}
			s.publishEvent(ctx, events.Event{
				Type:       events.EventIncidentPriorityChanged,
				IncidentID: incident.ID,
				ActorID:    actor.ID,
				Payload: events.IncidentPriorityChangedPayload{
					IncidentKey: incident.IncidentKey,
					OldPriority: oldPriority,
					NewPriority: newPriority,
				},
			})
		}
	}
}

// GetIncident returns an incident with display names resolved, enforcing
// view permissions.
func (s *IncidentService) GetIncident(ctx context.Context, actor *domain.User, incidentID string) (*domain.IncidentDetail, error) {
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
	return s.buildDetail(ctx, incident)
}

func (s *IncidentService) buildDetail(ctx context.Context, incident *domain.Incident) (*domain.IncidentDetail, error) {
	detail := &domain.IncidentDetail{Incident: *incident}

	if reporter, err := s.users.GetByID(ctx, incident.ReporterID); err == nil {
		detail.ReporterName = reporter.DisplayName()
	} else {
		detail.ReporterName = "Unknown"
	}
	if incident.AssigneeID != nil {
		if assignee, err := s.users.GetByID(ctx, *incident.AssigneeID); err == nil {
			name := assignee.DisplayName()
			detail.AssigneeName = &name
		}
	}
	if incident.DepartmentID != nil {
		if department, err := s.departments.GetByID(ctx, *incident.DepartmentID); err == nil {
			detail.DepartmentName = &department.Name
		}
	}
	if category, err := s.categories.GetByID(ctx, incident.CategoryID); err == nil {
		detail.CategoryName = category.Name
	}
	if incident.SubcategoryID != nil {
		if sub, err := s.categories.GetSubcategoryByID(ctx, *incident.SubcategoryID); err == nil {
			detail.SubcategoryName = &sub.Name
		}
	}
	return detail, nil
}

// ListIncidents returns incidents visible to the actor. Reporters see only
// their own, staff and managers their department, admins everything.
// Caller filters intersect with the role scope; a filter pointing outside
// the scope yields an empty result rather than widening visibility.
func (s *IncidentService) ListIncidents(ctx context.Context, actor *domain.User, input IncidentListInput) ([]domain.Incident, error) {
	filter := repository.IncidentFilter{
		Statuses:     input.Statuses,
		Priorities:   input.Priorities,
		CategoryID:   input.CategoryID,
		ReporterID:   input.ReporterID,
		AssigneeID:   input.AssigneeID,
		DepartmentID: input.DepartmentID,
		Search:       input.Search,
		CreatedFrom:  input.CreatedFrom,
		CreatedTo:    input.CreatedTo,
		Limit:        input.Limit,
		Offset:       input.Offset,
	}

	switch actor.Role {
	case domain.RoleAdmin:
		// unrestricted
	case domain.RoleStaff, domain.RoleManager:
		if actor.DepartmentID == nil {
			if filter.ReporterID != nil && *filter.ReporterID != actor.ID {
				return []domain.Incident{}, nil
			}
			filter.ReporterID = &actor.ID
		} else {
			if filter.DepartmentID != nil && *filter.DepartmentID != *actor.DepartmentID {
				return []domain.Incident{}, nil
			}
			filter.DepartmentID = actor.DepartmentID
		}
	default:
		if filter.ReporterID != nil && *filter.ReporterID != actor.ID {
			return []domain.Incident{}, nil
		}
		filter.ReporterID = &actor.ID
	}

	return s.incidents.ListWithFilter(ctx, filter)
}

func (s *IncidentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.dispatcher.Publish(ctx, event)
}

func sameDepartment(actor *domain.User, incident *domain.Incident) bool {
	return actor.DepartmentID != nil && incident.DepartmentID != nil &&
		*actor.DepartmentID == *incident.DepartmentID
}

func auditEntry(actorID string, action domain.AuditAction, oldValue, newValue string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   action,
		OldValue: &oldValue,
		NewValue: &newValue,
	}
}

func auditEntryPtr(actorID string, action domain.AuditAction, oldValue, newValue *string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ActorID:  actorID,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
