package domain

import "time"

// ChangeRiskLevel grades the blast radius of a change request.
type ChangeRiskLevel string

const (
	ChangeRiskLow    ChangeRiskLevel = "LOW"
	ChangeRiskMedium ChangeRiskLevel = "MEDIUM"
	ChangeRiskHigh   ChangeRiskLevel = "HIGH"
)

// ChangeStatus enumerates change request states.
type ChangeStatus string

const (
	ChangeStatusDraft     ChangeStatus = "DRAFT"
	ChangeStatusApproved  ChangeStatus = "APPROVED"
	ChangeStatusScheduled ChangeStatus = "SCHEDULED"
	ChangeStatusDone      ChangeStatus = "DONE"
)

// ChangeRequest proposes remediation work linked to a problem.
type ChangeRequest struct {
	ID             string
	ProblemID      string
	RequesterID    string
	Title          string
	Description    string
	RiskLevel      ChangeRiskLevel
	Status         ChangeStatus
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	CreatedAt      time.Time
}
