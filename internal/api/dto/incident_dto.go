package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	Title         string                  `json:"title" validate:"required"`
	Description   string                  `json:"description"`
	Priority      domain.IncidentPriority `json:"priority"`
	CategoryID    string                  `json:"category_id" validate:"required"`
	SubcategoryID *string                 `json:"subcategory_id"`
	DepartmentID  *string                 `json:"department_id"`
}

// UpdateIncidentRequest is a partial update; absent fields stay untouched.
// assignee_id set to null unassigns, which is why presence is detected at
// the handler from the raw body.
type UpdateIncidentRequest struct {
	Title         *string                  `json:"title"`
	Description   *string                  `json:"description"`
	Status        *domain.IncidentStatus   `json:"status"`
	StatusComment *string                  `json:"status_comment"`
	Priority      *domain.IncidentPriority `json:"priority"`
	AssigneeID    *string                  `json:"assignee_id"`
}

// IncidentSummary response.
type IncidentSummary struct {
	ID           string                  `json:"id"`
	IncidentKey  string                  `json:"incident_key"`
	Title        string                  `json:"title"`
	Status       domain.IncidentStatus   `json:"status"`
	Priority     domain.IncidentPriority `json:"priority"`
	ReporterID   string                  `json:"reporter_id"`
	AssigneeID   *string                 `json:"assignee_id"`
	DepartmentID *string                 `json:"department_id"`
	CategoryID   string                  `json:"category_id"`
	ProblemID    *string                 `json:"problem_id"`
	SLABreachAt  *time.Time              `json:"sla_breach_at"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	ResolvedAt   *time.Time              `json:"resolved_at"`
}

// IncidentDetailResponse provides full incident info with display names.
type IncidentDetailResponse struct {
	IncidentSummary
	Description     string  `json:"description"`
	SubcategoryID   *string `json:"subcategory_id"`
	ServiceItemID   *string `json:"service_item_id"`
	ReporterName    string  `json:"reporter_name"`
	AssigneeName    *string `json:"assignee_name"`
	DepartmentName  *string `json:"department_name"`
	CategoryName    string  `json:"category_name"`
	SubcategoryName *string `json:"subcategory_name"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// CommentResponse represents a comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimelineEntryResponse is one display-ready audit entry.
type TimelineEntryResponse struct {
	ID        string             `json:"id"`
	Action    domain.AuditAction `json:"action"`
	ActorID   string             `json:"actor_id"`
	ActorName string             `json:"actor_name"`
	OldValue  *string            `json:"old_value"`
	NewValue  *string            `json:"new_value"`
	CreatedAt time.Time          `json:"created_at"`
}

// CreateAttachmentRequest records uploaded file metadata.
type CreateAttachmentRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	StorageKey  string `json:"storage_key" validate:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	IncidentID  string    `json:"incident_id"`
	UploaderID  string    `json:"uploader_id"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewIncidentSummary converts a domain incident.
func NewIncidentSummary(incident *domain.Incident) IncidentSummary {
	return IncidentSummary{
		ID:           incident.ID,
		IncidentKey:  incident.IncidentKey,
		Title:        incident.Title,
		Status:       incident.Status,
		Priority:     incident.Priority,
		ReporterID:   incident.ReporterID,
		AssigneeID:   incident.AssigneeID,
		DepartmentID: incident.DepartmentID,
		CategoryID:   incident.CategoryID,
		ProblemID:    incident.ProblemID,
		SLABreachAt:  incident.SLABreachAt,
		CreatedAt:    incident.CreatedAt,
		UpdatedAt:    incident.UpdatedAt,
		ResolvedAt:   incident.ResolvedAt,
	}
}

// NewIncidentDetail converts a resolved incident detail.
func NewIncidentDetail(detail *domain.IncidentDetail) IncidentDetailResponse {
	return IncidentDetailResponse{
		IncidentSummary: NewIncidentSummary(&detail.Incident),
		Description:     detail.Description,
		SubcategoryID:   detail.SubcategoryID,
		ServiceItemID:   detail.ServiceItemID,
		ReporterName:    detail.ReporterName,
		AssigneeName:    detail.AssigneeName,
		DepartmentName:  detail.DepartmentName,
		CategoryName:    detail.CategoryName,
		SubcategoryName: detail.SubcategoryName,
	}
}

// NewCommentResponse converts a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		IncidentID: comment.IncidentID,
		AuthorID:   comment.AuthorID,
		Content:    comment.Content,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}
}

// NewTimelineEntry converts a timeline entry.
func NewTimelineEntry(entry *domain.TimelineEntry) TimelineEntryResponse {
	return TimelineEntryResponse{
		ID:        entry.AuditLogEntry.ID,
		Action:    entry.Action,
		ActorID:   entry.ActorID,
		ActorName: entry.ActorName,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.AuditLogEntry.CreatedAt,
	}
}

// NewAttachmentResponse converts attachment metadata.
func NewAttachmentResponse(attachment *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          attachment.ID,
		IncidentID:  attachment.IncidentID,
		UploaderID:  attachment.UploaderID,
		FileName:    attachment.FileName,
		StorageKey:  attachment.StorageKey,
		ContentType: attachment.ContentType,
		SizeBytes:   attachment.SizeBytes,
		CreatedAt:   attachment.CreatedAt,
	}
}
