package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// ProblemService manages root-cause investigations. A problem's status is
// not set directly: it advances when the fields required by the next stage
// are filled in, evaluated by advance after every mutation.
type ProblemService struct {
	problems  repository.ProblemRepository
	actions   repository.ProblemActionRepository
	changes   repository.ChangeRequestRepository
	incidents repository.IncidentRepository
	users     repository.UserRepository
}

// ProblemDependencies bundles repositories for the problem service.
type ProblemDependencies struct {
	ProblemRepo  repository.ProblemRepository
	ActionRepo   repository.ProblemActionRepository
	ChangeRepo   repository.ChangeRequestRepository
	IncidentRepo repository.IncidentRepository
	UserRepo     repository.UserRepository
}

// NewProblemService constructs the service.
func NewProblemService(deps ProblemDependencies) *ProblemService {
	return &ProblemService{
		problems:  deps.ProblemRepo,
		actions:   deps.ActionRepo,
		changes:   deps.ChangeRepo,
		incidents: deps.IncidentRepo,
		users:     deps.UserRepo,
	}
}

// ProblemInput describes a problem create/update payload. Nil fields are
// left untouched on update. Status is a manual override honored only for
// callers allowed to override; everyone else has it silently dropped.
type ProblemInput struct {
	Title           *string
	Description     *string
	FunctionFailure *string
	FailureMode     *string
	FiveWhys        *string
	RCFAAnalysis    *string
	RootCause       *string
	Countermeasure  *string
	Status          *domain.ProblemStatus
}

// ProblemActionInput describes a countermeasure action payload.
type ProblemActionInput struct {
	Description string
	AssigneeID  string
	DueDate     *time.Time
	Status      *domain.ProblemActionStatus
}

// ChangeRequestInput describes a change request payload.
type ChangeRequestInput struct {
	Title          string
	Description    string
	RiskLevel      domain.ChangeRiskLevel
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
}

// advance walks the stage rules in order against the problem's current
// state. Each rule fires at most once per pass, but filling several stages'
// worth of fields in one save cascades through all of them.
func (s *ProblemService) advance(ctx context.Context, problem *domain.Problem) error {
	filled := func(v string) bool { return strings.TrimSpace(v) != "" }

	if problem.Status == domain.ProblemStatusOpen &&
		filled(problem.FunctionFailure) && filled(problem.FailureMode) {
		problem.Status = domain.ProblemStatusDefinition
	}
	if problem.Status == domain.ProblemStatusDefinition &&
		(filled(problem.FiveWhys) || filled(problem.RCFAAnalysis)) {
		problem.Status = domain.ProblemStatusAnalysis
	}
	if problem.Status == domain.ProblemStatusAnalysis &&
		filled(problem.RootCause) && filled(problem.Countermeasure) {
		problem.Status = domain.ProblemStatusCountermeasure
	}

	if problem.Status == domain.ProblemStatusCountermeasure || problem.Status == domain.ProblemStatusMonitoring {
		actions, err := s.actions.ListByProblem(ctx, problem.ID)
		if err != nil {
			return err
		}
		if problem.Status == domain.ProblemStatusCountermeasure && len(actions) > 0 {
			problem.Status = domain.ProblemStatusMonitoring
		}
		if problem.Status == domain.ProblemStatusMonitoring && len(actions) > 0 {
			completed := true
			for _, action := range actions {
				if action.Status != domain.ActionStatusCompleted {
					completed = false
					break
				}
			}
			if completed {
				problem.Status = domain.ProblemStatusClosed
				now := time.Now().UTC()
				problem.ResolvedAt = &now
			}
		}
	}
	return nil
}

// CreateProblem opens an investigation. Stage fields supplied at creation
// advance the status immediately.
func (s *ProblemService) CreateProblem(ctx context.Context, actor *domain.User, input ProblemInput) (*domain.Problem, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to manage problems")
	}
	problem := &domain.Problem{
		Status:    domain.ProblemStatusOpen,
		CreatorID: actor.ID,
	}
	applyProblemInput(problem, input)
	if strings.TrimSpace(problem.Title) == "" {
		return nil, errorutil.NewMissingRequiredField("title")
	}
	if err := s.advance(ctx, problem); err != nil {
		return nil, err
	}
	if err := s.problems.Create(ctx, problem); err != nil {
		return nil, err
	}
	return problem, nil
}

// UpdateProblem applies field changes and re-derives the status. A status
// in the payload is a manual override: honored when the actor may override
// (or is the creator cancelling from OPEN), silently dropped otherwise. An
// honored override suppresses derivation for this save.
func (s *ProblemService) UpdateProblem(ctx context.Context, actor *domain.User, problemID string, input ProblemInput) (*domain.Problem, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to manage problems")
	}
	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if problem.Status == domain.ProblemStatusClosed || problem.Status == domain.ProblemStatusCancelled {
		return nil, errorutil.NewIllegalStateOperation("problem is finished")
	}

	override := input.Status != nil && *input.Status != problem.Status &&
		statusOverrideAllowed(actor, problem, *input.Status)

	applyProblemInput(problem, input)
	if strings.TrimSpace(problem.Title) == "" {
		return nil, errorutil.NewMissingRequiredField("title")
	}
	if override {
		if !domain.ValidProblemStatus(*input.Status) {
			return nil, errorutil.NewValidationError("invalid problem status", map[string]any{"status": *input.Status})
		}
		applyStatusOverride(problem, *input.Status)
	} else if err := s.advance(ctx, problem); err != nil {
		return nil, err
	}
	if err := s.problems.Update(ctx, problem); err != nil {
		return nil, err
	}
	return problem, nil
}

// SetStatus overrides the derived status. Admins may set any stage;
// the creator may cancel an investigation that has not left OPEN.
func (s *ProblemService) SetStatus(ctx context.Context, actor *domain.User, problemID string, status domain.ProblemStatus) (*domain.Problem, error) {
	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !statusOverrideAllowed(actor, problem, status) {
		return nil, errorutil.NewForbidden("not allowed to override problem status")
	}
	if !domain.ValidProblemStatus(status) {
		return nil, errorutil.NewValidationError("invalid problem status", map[string]any{"status": status})
	}

	applyStatusOverride(problem, status)
	if err := s.problems.Update(ctx, problem); err != nil {
		return nil, err
	}
	return problem, nil
}

func statusOverrideAllowed(actor *domain.User, problem *domain.Problem, status domain.ProblemStatus) bool {
	if policy.AllowsRole(actor.Role, policy.ActionOverrideProblem) {
		return true
	}
	return actor.ID == problem.CreatorID &&
		status == domain.ProblemStatusCancelled &&
		problem.Status == domain.ProblemStatusOpen
}

func applyStatusOverride(problem *domain.Problem, status domain.ProblemStatus) {
	problem.Status = status
	if status == domain.ProblemStatusClosed {
		now := time.Now().UTC()
		problem.ResolvedAt = &now
	} else {
		problem.ResolvedAt = nil
	}
}

// GetProblem returns one investigation.
func (s *ProblemService) GetProblem(ctx context.Context, actor *domain.User, problemID string) (*domain.Problem, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to view problems")
	}
	return s.getProblem(ctx, problemID)
}

// ListProblems returns investigations, optionally filtered by status.
func (s *ProblemService) ListProblems(ctx context.Context, actor *domain.User, status *domain.ProblemStatus) ([]domain.Problem, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to view problems")
	}
	return s.problems.List(ctx, status)
}

// CreateAction adds a countermeasure task, which may advance the problem
// out of COUNTERMEASURE.
func (s *ProblemService) CreateAction(ctx context.Context, actor *domain.User, problemID string, input ProblemActionInput) (*domain.ProblemAction, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to manage problems")
	}
	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, errorutil.NewMissingRequiredField("description")
	}
	if _, err := s.users.GetByID(ctx, input.AssigneeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("assignee", map[string]any{"id": input.AssigneeID})
		}
		return nil, err
	}

	action := &domain.ProblemAction{
		ProblemID:   problem.ID,
		Description: strings.TrimSpace(input.Description),
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		Status:      domain.ActionStatusPending,
	}
	if input.Status != nil {
		if !domain.ValidActionStatus(*input.Status) {
			return nil, errorutil.NewValidationError("invalid action status", map[string]any{"status": *input.Status})
		}
		action.Status = *input.Status
	}
	if err := s.actions.Create(ctx, action); err != nil {
		return nil, err
	}
	if err := s.rederive(ctx, problem); err != nil {
		return nil, err
	}
	return action, nil
}

// UpdateAction mutates a countermeasure task; completing the last one
// closes the problem.
func (s *ProblemService) UpdateAction(ctx context.Context, actor *domain.User, problemID, actionID string, input ProblemActionInput) (*domain.ProblemAction, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to manage problems")
	}
	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	action, err := s.actions.GetByID(ctx, problemID, actionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("action", map[string]any{"id": actionID})
		}
		return nil, err
	}

	if strings.TrimSpace(input.Description) != "" {
		action.Description = strings.TrimSpace(input.Description)
	}
	if input.AssigneeID != "" && input.AssigneeID != action.AssigneeID {
		if _, err := s.users.GetByID(ctx, input.AssigneeID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, errorutil.NewNotFound("assignee", map[string]any{"id": input.AssigneeID})
			}
			return nil, err
		}
		action.AssigneeID = input.AssigneeID
	}
	if input.DueDate != nil {
		action.DueDate = input.DueDate
	}
	if input.Status != nil {
		if !domain.ValidActionStatus(*input.Status) {
			return nil, errorutil.NewValidationError("invalid action status", map[string]any{"status": *input.Status})
		}
		action.Status = *input.Status
	}

	if err := s.actions.Update(ctx, action); err != nil {
		return nil, err
	}
	if err := s.rederive(ctx, problem); err != nil {
		return nil, err
	}
	return action, nil
}

// rederive persists any status advance caused by an action mutation.
func (s *ProblemService) rederive(ctx context.Context, problem *domain.Problem) error {
	before := problem.Status
	if err := s.advance(ctx, problem); err != nil {
		return err
	}
	if problem.Status == before {
		return nil
	}
	return s.problems.Update(ctx, problem)
}

// ListActions returns a problem's countermeasure tasks.
func (s *ProblemService) ListActions(ctx context.Context, actor *domain.User, problemID string) ([]domain.ProblemAction, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to view problems")
	}
	if _, err := s.getProblem(ctx, problemID); err != nil {
		return nil, err
	}
	return s.actions.ListByProblem(ctx, problemID)
}

// MyActions returns open countermeasure tasks assigned to the actor.
func (s *ProblemService) MyActions(ctx context.Context, actor *domain.User, status *domain.ProblemActionStatus) ([]domain.ProblemAction, error) {
	return s.actions.List(ctx, repository.ProblemActionFilter{
		AssigneeID: &actor.ID,
		Status:     status,
	})
}

// CreateChange records a change request against a problem.
func (s *ProblemService) CreateChange(ctx context.Context, actor *domain.User, problemID string, input ChangeRequestInput) (*domain.ChangeRequest, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to manage problems")
	}
	problem, err := s.getProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, errorutil.NewMissingRequiredField("title")
	}
	riskLevel := input.RiskLevel
	if riskLevel == "" {
		riskLevel = domain.ChangeRiskLow
	}

	change := &domain.ChangeRequest{
		ProblemID:      problem.ID,
		RequesterID:    actor.ID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		RiskLevel:      riskLevel,
		Status:         domain.ChangeStatusDraft,
		ScheduledStart: input.ScheduledStart,
		ScheduledEnd:   input.ScheduledEnd,
	}
	if err := s.changes.Create(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

// ListChanges returns a problem's change requests.
func (s *ProblemService) ListChanges(ctx context.Context, actor *domain.User, problemID string) ([]domain.ChangeRequest, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to view problems")
	}
	if _, err := s.getProblem(ctx, problemID); err != nil {
		return nil, err
	}
	return s.changes.ListByProblem(ctx, problemID)
}

// LinkIncident attaches an incident to a problem.
func (s *ProblemService) LinkIncident(ctx context.Context, actor *domain.User, problemID, incidentID string) error {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return errorutil.NewForbidden("not allowed to manage problems")
	}
	if _, err := s.getProblem(ctx, problemID); err != nil {
		return err
	}
	if err := s.incidents.SetProblem(ctx, incidentID, problemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("incident", map[string]any{"id": incidentID})
		}
		return err
	}
	return nil
}

// LinkedIncidents returns incidents attached to a problem.
func (s *ProblemService) LinkedIncidents(ctx context.Context, actor *domain.User, problemID string) ([]domain.Incident, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageProblem) {
		return nil, errorutil.NewForbidden("not allowed to view problems")
	}
	if _, err := s.getProblem(ctx, problemID); err != nil {
		return nil, err
	}
	return s.incidents.ListByProblem(ctx, problemID)
}

func (s *ProblemService) getProblem(ctx context.Context, problemID string) (*domain.Problem, error) {
	problem, err := s.problems.GetByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("problem", map[string]any{"id": problemID})
		}
		return nil, err
	}
	return problem, nil
}

func applyProblemInput(problem *domain.Problem, input ProblemInput) {
	if input.Title != nil {
		problem.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		problem.Description = strings.TrimSpace(*input.Description)
	}
	if input.FunctionFailure != nil {
		problem.FunctionFailure = strings.TrimSpace(*input.FunctionFailure)
	}
	if input.FailureMode != nil {
		problem.FailureMode = strings.TrimSpace(*input.FailureMode)
	}
	if input.FiveWhys != nil {
		problem.FiveWhys = strings.TrimSpace(*input.FiveWhys)
	}
	if input.RCFAAnalysis != nil {
		problem.RCFAAnalysis = strings.TrimSpace(*input.RCFAAnalysis)
	}
	if input.RootCause != nil {
		problem.RootCause = strings.TrimSpace(*input.RootCause)
	}
	if input.Countermeasure != nil {
		problem.Countermeasure = strings.TrimSpace(*input.Countermeasure)
	}
}
