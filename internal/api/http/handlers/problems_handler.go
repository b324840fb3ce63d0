package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// ProblemsHandler manages problem investigation endpoints.
type ProblemsHandler struct {
	problems *service.ProblemService
}

// NewProblemsHandler constructs handler.
func NewProblemsHandler(problems *service.ProblemService) *ProblemsHandler {
	return &ProblemsHandler{problems: problems}
}

// Create POST /problems.
func (h *ProblemsHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	problem, err := h.problems.CreateProblem(c.UserContext(), principal.User, problemInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewProblemResponse(problem)})
}

// List GET /problems.
func (h *ProblemsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var status *domain.ProblemStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := domain.ProblemStatus(statusStr)
		status = &s
	}
	problems, err := h.problems.ListProblems(c.UserContext(), principal.User, status)
	if err != nil {
		return err
	}
	items := make([]dto.ProblemResponse, 0, len(problems))
	for i := range problems {
		items = append(items, dto.NewProblemResponse(&problems[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /problems/:id.
func (h *ProblemsHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	problem, err := h.problems.GetProblem(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProblemResponse(problem)})
}

// Update PATCH /problems/:id.
func (h *ProblemsHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProblemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	problem, err := h.problems.UpdateProblem(c.UserContext(), principal.User, c.Params("id"), problemInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProblemResponse(problem)})
}

// SetStatus PUT /problems/:id/status.
func (h *ProblemsHandler) SetStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProblemStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	problem, err := h.problems.SetStatus(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProblemResponse(problem)})
}

// CreateAction POST /problems/:id/actions.
func (h *ProblemsHandler) CreateAction(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProblemActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	action, err := h.problems.CreateAction(c.UserContext(), principal.User, c.Params("id"), service.ProblemActionInput{
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewProblemActionResponse(action)})
}

// UpdateAction PATCH /problems/:id/actions/:actionId.
func (h *ProblemsHandler) UpdateAction(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProblemActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	action, err := h.problems.UpdateAction(c.UserContext(), principal.User, c.Params("id"), c.Params("actionId"), service.ProblemActionInput{
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Status:      req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProblemActionResponse(action)})
}

// ListActions GET /problems/:id/actions.
func (h *ProblemsHandler) ListActions(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	actions, err := h.problems.ListActions(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actionResponses(actions)})
}

// MyActions GET /actions/mine.
func (h *ProblemsHandler) MyActions(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var status *domain.ProblemActionStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := domain.ProblemActionStatus(statusStr)
		status = &s
	}
	actions, err := h.problems.MyActions(c.UserContext(), principal.User, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actionResponses(actions)})
}

// CreateChange POST /problems/:id/changes.
func (h *ProblemsHandler) CreateChange(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	change, err := h.problems.CreateChange(c.UserContext(), principal.User, c.Params("id"), service.ChangeRequestInput{
		Title:          req.Title,
		Description:    req.Description,
		RiskLevel:      req.RiskLevel,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewChangeRequestResponse(change)})
}

// ListChanges GET /problems/:id/changes.
func (h *ProblemsHandler) ListChanges(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	changes, err := h.problems.ListChanges(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ChangeRequestResponse, 0, len(changes))
	for i := range changes {
		items = append(items, dto.NewChangeRequestResponse(&changes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// LinkIncident POST /problems/:id/incidents.
func (h *ProblemsHandler) LinkIncident(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.LinkIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	if err := h.problems.LinkIncident(c.UserContext(), principal.User, c.Params("id"), req.IncidentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LinkedIncidents GET /problems/:id/incidents.
func (h *ProblemsHandler) LinkedIncidents(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	incidents, err := h.problems.LinkedIncidents(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.IncidentSummary, 0, len(incidents))
	for i := range incidents {
		items = append(items, dto.NewIncidentSummary(&incidents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func problemInput(req dto.ProblemRequest) service.ProblemInput {
	return service.ProblemInput{
		Title:           req.Title,
		Description:     req.Description,
		FunctionFailure: req.FunctionFailure,
		FailureMode:     req.FailureMode,
		FiveWhys:        req.FiveWhys,
		RCFAAnalysis:    req.RCFAAnalysis,
		RootCause:       req.RootCause,
		Countermeasure:  req.Countermeasure,
		Status:          req.Status,
	}
}

func actionResponses(actions []domain.ProblemAction) []dto.ProblemActionResponse {
	items := make([]dto.ProblemActionResponse, 0, len(actions))
	for i := range actions {
		items = append(items, dto.NewProblemActionResponse(&actions[i]))
	}
	return items
}
