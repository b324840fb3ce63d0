package events

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated         EventType = "incident_created"
	EventIncidentStatusChanged   EventType = "incident_status_changed"
	EventIncidentAssigned        EventType = "incident_assigned"
	EventIncidentPriorityChanged EventType = "incident_priority_changed"
	EventIncidentCommentAdded    EventType = "incident_comment_added"
	EventUserRegistered          EventType = "user_registered"
)

// Event represents a domain event emitted by services after a successful
// commit. Handlers run detached from the request; an event is never a
// correctness dependency of the mutation that produced it.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IncidentID string      `json:"incident_id,omitempty"`
	ActorID    string      `json:"actor_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	IncidentKey   string                  `json:"incident_key"`
	Title         string                  `json:"title"`
	Priority      domain.IncidentPriority `json:"priority"`
	ReporterEmail string                  `json:"reporter_email"`
	ReporterName  string                  `json:"reporter_name"`
}

// IncidentStatusChangedPayload payload.
type IncidentStatusChangedPayload struct {
	IncidentKey   string                `json:"incident_key"`
	Title         string                `json:"title"`
	OldStatus     domain.IncidentStatus `json:"old_status"`
	NewStatus     domain.IncidentStatus `json:"new_status"`
	ReporterEmail string                `json:"reporter_email"`
	ReporterName  string                `json:"reporter_name"`
}

// IncidentAssignedPayload payload.
type IncidentAssignedPayload struct {
	IncidentKey   string `json:"incident_key"`
	Title         string `json:"title"`
	AssigneeEmail string `json:"assignee_email"`
	AssigneeName  string `json:"assignee_name"`
}

// IncidentPriorityChangedPayload payload.
type IncidentPriorityChangedPayload struct {
	IncidentKey string                  `json:"incident_key"`
	OldPriority domain.IncidentPriority `json:"old_priority"`
	NewPriority domain.IncidentPriority `json:"new_priority"`
}

// IncidentCommentAddedPayload payload. Recipient addresses are resolved
// at publish time so handlers need no storage access.
type IncidentCommentAddedPayload struct {
	IncidentKey   string  `json:"incident_key"`
	Title         string  `json:"title"`
	AuthorID      string  `json:"author_id"`
	AuthorName    string  `json:"author_name"`
	IsInternal    bool    `json:"is_internal"`
	ReporterID    string  `json:"reporter_id"`
	ReporterEmail string  `json:"reporter_email"`
	AssigneeID    *string `json:"assignee_id,omitempty"`
	AssigneeEmail *string `json:"assignee_email,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
