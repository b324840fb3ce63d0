package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// AttachmentService manages attachment metadata. Bytes are uploaded to
// external storage out of band; this records the reference.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	incidents   repository.IncidentRepository
}

// NewAttachmentService constructs the service.
func NewAttachmentService(attachments repository.AttachmentRepository, incidents repository.IncidentRepository) *AttachmentService {
	return &AttachmentService{attachments: attachments, incidents: incidents}
}

// AttachmentInput describes uploaded file metadata.
type AttachmentInput struct {
	FileName    string
	StorageKey  string
	ContentType string
	SizeBytes   int64
}

// AddAttachment records a file against an incident the actor can view.
func (s *AttachmentService) AddAttachment(ctx context.Context, actor *domain.User, incidentID string, input AttachmentInput) (*domain.Attachment, error) {
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
	if strings.TrimSpace(input.FileName) == "" {
		return nil, errorutil.NewMissingRequiredField("file_name")
	}
	if strings.TrimSpace(input.StorageKey) == "" {
		return nil, errorutil.NewMissingRequiredField("storage_key")
	}

	attachment := &domain.Attachment{
		IncidentID:  incident.ID,
		UploaderID:  actor.ID,
		FileName:    input.FileName,
		StorageKey:  input.StorageKey,
		ContentType: input.ContentType,
		SizeBytes:   input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments returns an incident's attachment metadata.
func (s *AttachmentService) ListAttachments(ctx context.Context, actor *domain.User, incidentID string) ([]domain.Attachment, error) {
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
	return s.attachments.ListByIncident(ctx, incidentID)
}
