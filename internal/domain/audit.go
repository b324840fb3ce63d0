package domain

import "time"

// AuditAction tags what kind of change an audit entry records.
type AuditAction string

const (
	AuditActionCreated           AuditAction = "CREATED"
	AuditActionStatusChange      AuditAction = "STATUS_CHANGE"
	AuditActionAssignment        AuditAction = "ASSIGNMENT"
	AuditActionPriorityChange    AuditAction = "PRIORITY_CHANGE"
	AuditActionTitleUpdate       AuditAction = "TITLE_UPDATE"
	AuditActionDescriptionUpdate AuditAction = "DESCRIPTION_UPDATE"
)

// AuditLogEntry is an immutable record of one field-level change.
// Entries are only ever appended, never updated or deleted.
type AuditLogEntry struct {
	ID         string
	IncidentID string
	ActorID    string
	Action     AuditAction
	OldValue   *string
	NewValue   *string
	CreatedAt  time.Time
}

// TimelineEntry is an audit entry enriched for display. Old/new values are
// resolved best-effort: entries written by older code paths stored raw
// identifiers, newer ones store display text already.
type TimelineEntry struct {
	AuditLogEntry
	ActorName string
	OldValue  *string
	NewValue  *string
}
