package handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentsHandler manages incident endpoints.
type IncidentsHandler struct {
	incidents   *service.IncidentService
	comments    *service.CommentService
	timeline    *service.TimelineService
	attachments *service.AttachmentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidents *service.IncidentService, comments *service.CommentService, timeline *service.TimelineService, attachments *service.AttachmentService) *IncidentsHandler {
	return &IncidentsHandler{
		incidents:   incidents,
		comments:    comments,
		timeline:    timeline,
		attachments: attachments,
	}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	incident, err := h.incidents.CreateIncident(c.UserContext(), principal.User, service.IncidentCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		DepartmentID:  req.DepartmentID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewIncidentSummary(incident)})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	incidents, err := h.incidents.ListIncidents(c.UserContext(), principal.User, parseIncidentQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.IncidentSummary, 0, len(incidents))
	for i := range incidents {
		items = append(items, dto.NewIncidentSummary(&incidents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.incidents.GetIncident(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentDetail(detail)})
}

// Update PATCH /incidents/:id.
func (h *IncidentsHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	// assignee_id: null means unassign, so key presence matters.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	_, assigneeSet := raw["assignee_id"]

	incident, err := h.incidents.UpdateIncident(c.UserContext(), principal.User, c.Params("id"), service.IncidentUpdateInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		StatusComment: req.StatusComment,
		Priority:      req.Priority,
		AssigneeID:    req.AssigneeID,
		AssigneeSet:   assigneeSet,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentSummary(incident)})
}

// Timeline GET /incidents/:id/timeline.
func (h *IncidentsHandler) Timeline(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.timeline.Timeline(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TimelineEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewTimelineEntry(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /incidents/:id/comments.
func (h *IncidentsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.comments.AddComment(c.UserContext(), principal.User, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// ListComments GET /incidents/:id/comments.
func (h *IncidentsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddAttachment POST /incidents/:id/attachments.
func (h *IncidentsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateAttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	attachment, err := h.attachments.AddAttachment(c.UserContext(), principal.User, c.Params("id"), service.AttachmentInput{
		FileName:    req.FileName,
		StorageKey:  req.StorageKey,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

// ListAttachments GET /incidents/:id/attachments.
func (h *IncidentsHandler) ListAttachments(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	attachments, err := h.attachments.ListAttachments(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.NewAttachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseIncidentQuery(c *fiber.Ctx) service.IncidentListInput {
	input := service.IncidentListInput{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			input.Statuses = append(input.Statuses, domain.IncidentStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			input.Priorities = append(input.Priorities, domain.IncidentPriority(strings.TrimSpace(part)))
		}
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		input.CategoryID = &categoryID
	}
	if reporterID := c.Query("reporter_id"); reporterID != "" {
		input.ReporterID = &reporterID
	}
	if assigneeID := c.Query("assignee_id"); assigneeID != "" {
		input.AssigneeID = &assigneeID
	}
	if departmentID := c.Query("department_id"); departmentID != "" {
		input.DepartmentID = &departmentID
	}
	if search := c.Query("search"); search != "" {
		input.Search = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		input.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		input.CreatedTo = to
	}

	// skip/limit are the primary pagination parameters; page/page_size
	// remain as aliases.
	limit := parseInt(c.Query("limit"), parseInt(c.Query("page_size"), 20))
	input.Limit = limit
	if skipStr := c.Query("skip"); skipStr != "" {
		if skip, err := strconv.Atoi(skipStr); err == nil && skip >= 0 {
			input.Offset = skip
		}
	} else {
		input.Offset = (parseInt(c.Query("page"), 1) - 1) * limit
	}
	return input
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
