package service

import (
	"context"
	"errors"
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

// CommentService manages incident communication.
type CommentService struct {
	comments   repository.CommentRepository
	incidents  repository.IncidentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(comments repository.CommentRepository, incidents repository.IncidentRepository, users repository.UserRepository, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{
		comments:   comments,
		incidents:  incidents,
		users:      users,
		dispatcher: dispatcher,
	}
}

// AddComment appends a comment to an incident. Internal comments are
// restricted to staff and above and stay invisible to reporters.
func (s *CommentService) AddComment(ctx context.Context, actor *domain.User, incidentID, content string, isInternal bool) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errorutil.NewMissingRequiredField("content")
	}

	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("incident", map[string]any{"id": incidentID})
		}
		return nil, err
	}

	isOwner := actor.ID == incident.ReporterID
	sameDept := sameDepartment(actor, incident)
	action := policy.ActionComment
	if isInternal {
		action = policy.ActionCommentInternal
	}
	if !policy.Allows(actor.Role, action, isOwner, sameDept) {
		return nil, errorutil.NewForbidden("not allowed to comment on this incident")
	}

	comment := &domain.Comment{
		IncidentID: incident.ID,
		AuthorID:   actor.ID,
		Content:    content,
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publishCommentEvent(ctx, actor, incident, comment)
	return comment, nil
}

func (s *CommentService) publishCommentEvent(ctx context.Context, actor *domain.User, incident *domain.Incident, comment *domain.Comment) {
	if s.dispatcher == nil {
		return
	}
	payload := events.IncidentCommentAddedPayload{
		IncidentKey: incident.IncidentKey,
		Title:       incident.Title,
		AuthorID:    actor.ID,
		AuthorName:  actor.DisplayName(),
		IsInternal:  comment.IsInternal,
		ReporterID:  incident.ReporterID,
	}
	if reporter, err := s.users.GetByID(ctx, incident.ReporterID); err == nil {
		payload.ReporterEmail = reporter.Email
	}
	if incident.AssigneeID != nil {
		payload.AssigneeID = incident.AssigneeID
		if assignee, err := s.users.GetByID(ctx, *incident.AssigneeID); err == nil {
			payload.AssigneeEmail = &assignee.Email
		}
	}
	s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventIncidentCommentAdded,
		IncidentID: incident.ID,
		ActorID:    actor.ID,
		Timestamp:  time.Now(),
		Payload:    payload,
	})
}

// ListComments returns an incident's comments, oldest first. Reporters
// never see internal comments.
func (s *CommentService) ListComments(ctx context.Context, actor *domain.User, incidentID string) ([]domain.Comment, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("incident", map[string]any{"id": incidentID})
		}
		return nil, err
	}
	isOwner := actor.ID == incident.ReporterID
	sameDept := sameDepartment(actor, incident)
	if !policy.Allows(actor.Role, policy.ActionViewIncident, isOwner, sameDept) {
		return nil, errorutil.NewForbidden("not allowed to view this incident")
	}

	includeInternal := policy.Allows(actor.Role, policy.ActionCommentInternal, isOwner, sameDept)
	return s.comments.ListByIncident(ctx, incidentID, includeInternal)
}
