package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ProblemRequest payload for problem create/update. Nil fields are left
// untouched on update. Status requests a manual override; it only takes
// effect for callers authorized to override.
type ProblemRequest struct {
	Title           *string               `json:"title"`
	Description     *string               `json:"description"`
	FunctionFailure *string               `json:"function_failure"`
	FailureMode     *string               `json:"failure_mode"`
	FiveWhys        *string               `json:"five_whys"`
	RCFAAnalysis    *string               `json:"rcfa_analysis"`
	RootCause       *string               `json:"root_cause"`
	Countermeasure  *string               `json:"countermeasure"`
	Status          *domain.ProblemStatus `json:"status"`
}

// ProblemStatusRequest payload for manual status overrides.
type ProblemStatusRequest struct {
	Status domain.ProblemStatus `json:"status" validate:"required"`
}

// ProblemResponse represents an investigation.
type ProblemResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	FunctionFailure string               `json:"function_failure"`
	FailureMode     string               `json:"failure_mode"`
	FiveWhys        string               `json:"five_whys"`
	RCFAAnalysis    string               `json:"rcfa_analysis"`
	RootCause       string               `json:"root_cause"`
	Countermeasure  string               `json:"countermeasure"`
	Status          domain.ProblemStatus `json:"status"`
	CreatorID       string               `json:"creator_id"`
	CreatedAt       time.Time            `json:"created_at"`
	ResolvedAt      *time.Time           `json:"resolved_at"`
}

// ProblemActionRequest payload.
type ProblemActionRequest struct {
	Description string                      `json:"description"`
	AssigneeID  string                      `json:"assignee_id"`
	DueDate     *time.Time                  `json:"due_date"`
	Status      *domain.ProblemActionStatus `json:"status"`
}

// ProblemActionResponse represents a countermeasure task.
type ProblemActionResponse struct {
	ID           string                     `json:"id"`
	ProblemID    string                     `json:"problem_id"`
	Description  string                     `json:"description"`
	AssigneeID   string                     `json:"assignee_id"`
	AssigneeName string                     `json:"assignee_name"`
	DueDate      *time.Time                 `json:"due_date"`
	Status       domain.ProblemActionStatus `json:"status"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// ChangeRequestRequest payload.
type ChangeRequestRequest struct {
	Title          string                 `json:"title" validate:"required"`
	Description    string                 `json:"description"`
	RiskLevel      domain.ChangeRiskLevel `json:"risk_level"`
	ScheduledStart *time.Time             `json:"scheduled_start"`
	ScheduledEnd   *time.Time             `json:"scheduled_end"`
}

// ChangeRequestResponse represents a change request.
type ChangeRequestResponse struct {
	ID             string                 `json:"id"`
	ProblemID      string                 `json:"problem_id"`
	RequesterID    string                 `json:"requester_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	RiskLevel      domain.ChangeRiskLevel `json:"risk_level"`
	Status         domain.ChangeStatus    `json:"status"`
	ScheduledStart *time.Time             `json:"scheduled_start"`
	ScheduledEnd   *time.Time             `json:"scheduled_end"`
	CreatedAt      time.Time              `json:"created_at"`
}

// LinkIncidentRequest payload.
type LinkIncidentRequest struct {
	IncidentID string `json:"incident_id" validate:"required"`
}

// NewProblemResponse converts a domain problem.
func NewProblemResponse(problem *domain.Problem) ProblemResponse {
	return ProblemResponse{
		ID:              problem.ID,
		Title:           problem.Title,
		Description:     problem.Description,
		FunctionFailure: problem.FunctionFailure,
		FailureMode:     problem.FailureMode,
		FiveWhys:        problem.FiveWhys,
		RCFAAnalysis:    problem.RCFAAnalysis,
		RootCause:       problem.RootCause,
		Countermeasure:  problem.Countermeasure,
		Status:          problem.Status,
		CreatorID:       problem.CreatorID,
		CreatedAt:       problem.CreatedAt,
		ResolvedAt:      problem.ResolvedAt,
	}
}

// NewProblemActionResponse converts a countermeasure task.
func NewProblemActionResponse(action *domain.ProblemAction) ProblemActionResponse {
	return ProblemActionResponse{
		ID:           action.ID,
		ProblemID:    action.ProblemID,
		Description:  action.Description,
		AssigneeID:   action.AssigneeID,
		AssigneeName: action.AssigneeName,
		DueDate:      action.DueDate,
		Status:       action.Status,
		CreatedAt:    action.CreatedAt,
	}
}

// NewChangeRequestResponse converts a change request.
func NewChangeRequestResponse(change *domain.ChangeRequest) ChangeRequestResponse {
	return ChangeRequestResponse{
		ID:             change.ID,
		ProblemID:      change.ProblemID,
		RequesterID:    change.RequesterID,
		Title:          change.Title,
		Description:    change.Description,
		RiskLevel:      change.RiskLevel,
		Status:         change.Status,
		ScheduledStart: change.ScheduledStart,
		ScheduledEnd:   change.ScheduledEnd,
		CreatedAt:      change.CreatedAt,
	}
}
