package domain

import "time"

// IncidentStatus enumerates lifecycle states for incidents.
type IncidentStatus string

const (
	IncidentStatusOpen       IncidentStatus = "OPEN"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusClosed     IncidentStatus = "CLOSED"
	IncidentStatusCancelled  IncidentStatus = "CANCELLED"
)

// IncidentPriority enumerates urgency levels.
type IncidentPriority string

const (
	PriorityLow      IncidentPriority = "LOW"
	PriorityMedium   IncidentPriority = "MEDIUM"
	PriorityHigh     IncidentPriority = "HIGH"
	PriorityCritical IncidentPriority = "CRITICAL"
)

// ValidPriority reports whether p is a defined priority level.
func ValidPriority(p IncidentPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s IncidentStatus) Terminal() bool {
	return s == IncidentStatusClosed || s == IncidentStatusCancelled
}

// Incident is the aggregate for reported issues and service requests.
type Incident struct {
	ID            string
	IncidentKey   string
	Title         string
	Description   string
	Status        IncidentStatus
	Priority      IncidentPriority
	ReporterID    string
	AssigneeID    *string
	DepartmentID  *string
	CategoryID    string
	SubcategoryID *string
	ProblemID     *string
	ServiceItemID *string
	SLABreachAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// IncidentDetail carries an incident plus display names resolved at read time.
type IncidentDetail struct {
	Incident
	ReporterName    string
	AssigneeName    *string
	DepartmentName  *string
	CategoryName    string
	SubcategoryName *string
}
