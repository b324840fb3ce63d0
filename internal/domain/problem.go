package domain

import "time"

// ProblemStatus enumerates the stages of a root-cause investigation.
// Progression between stages is derived from field completeness, not set
// directly (see service.ProblemService).
type ProblemStatus string

const (
	ProblemStatusOpen           ProblemStatus = "OPEN"
	ProblemStatusDefinition     ProblemStatus = "DEFINITION"
	ProblemStatusAnalysis       ProblemStatus = "ANALYSIS"
	ProblemStatusCountermeasure ProblemStatus = "COUNTERMEASURE"
	ProblemStatusMonitoring     ProblemStatus = "MONITORING"
	ProblemStatusClosed         ProblemStatus = "CLOSED"
	ProblemStatusCancelled      ProblemStatus = "CANCELLED"
)

// ValidProblemStatus reports whether s is a defined investigation stage.
func ValidProblemStatus(s ProblemStatus) bool {
	switch s {
	case ProblemStatusOpen, ProblemStatusDefinition, ProblemStatusAnalysis,
		ProblemStatusCountermeasure, ProblemStatusMonitoring,
		ProblemStatusClosed, ProblemStatusCancelled:
		return true
	}
	return false
}

// Problem is a root-cause investigation record.
type Problem struct {
	ID              string
	Title           string
	Description     string
	FunctionFailure string
	FailureMode     string
	FiveWhys        string
	RCFAAnalysis    string
	RootCause       string
	Countermeasure  string
	Status          ProblemStatus
	CreatorID       string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// ProblemActionStatus enumerates countermeasure action states.
type ProblemActionStatus string

const (
	ActionStatusPending    ProblemActionStatus = "PENDING"
	ActionStatusInProgress ProblemActionStatus = "IN_PROGRESS"
	ActionStatusCompleted  ProblemActionStatus = "COMPLETED"
	ActionStatusCancelled  ProblemActionStatus = "CANCELLED"
)

// ValidActionStatus reports whether s is a defined action state.
func ValidActionStatus(s ProblemActionStatus) bool {
	switch s {
	case ActionStatusPending, ActionStatusInProgress, ActionStatusCompleted, ActionStatusCancelled:
		return true
	}
	return false
}

// ProblemAction is a countermeasure task owned by a problem. Completion of
// all actions is the precondition for problem auto-closure.
type ProblemAction struct {
	ID           string
	ProblemID    string
	Description  string
	AssigneeID   string
	AssigneeName string
	DueDate      *time.Time
	Status       ProblemActionStatus
	CreatedAt    time.Time
}
