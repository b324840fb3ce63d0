package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// CatalogHandler manages the service catalog, directory and SLA endpoints.
type CatalogHandler struct {
	catalog   *service.CatalogService
	directory *service.DirectoryService
	sla       *service.SLAService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService, directory *service.DirectoryService, sla *service.SLAService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, directory: directory, sla: sla}
}

// ListItems GET /catalog/items.
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	var categoryID *string
	if id := c.Query("category_id"); id != "" {
		categoryID = &id
	}
	items, err := h.catalog.ListItems(c.UserContext(), categoryID)
	if err != nil {
		return err
	}
	result := make([]dto.ServiceItemResponse, 0, len(items))
	for i := range items {
		result = append(result, dto.NewServiceItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

// CreateItem POST /catalog/items (admin).
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateServiceItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	item, err := h.catalog.CreateItem(c.UserContext(), principal.User, service.ServiceItemInput{
		Name:         req.Name,
		Description:  req.Description,
		Icon:         req.Icon,
		BasePriority: req.BasePriority,
		CategoryID:   req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewServiceItemResponse(item)})
}

// RequestItem POST /catalog/items/:id/request.
func (h *CatalogHandler) RequestItem(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RequestServiceItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	incident, err := h.catalog.RequestItem(c.UserContext(), principal.User, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewIncidentSummary(incident)})
}

// ListDepartments GET /departments.
func (h *CatalogHandler) ListDepartments(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	departments, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for i := range departments {
		items = append(items, dto.NewDepartmentResponse(&departments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateDepartment POST /departments (admin).
func (h *CatalogHandler) CreateDepartment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	department, err := h.directory.CreateDepartment(c.UserContext(), principal.User, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(department)})
}

// ListCategories GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	categories, err := h.directory.ListCategories(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, dto.NewCategoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /categories (admin).
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	category, err := h.directory.CreateCategory(c.UserContext(), principal.User, req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCategoryResponse(category)})
}

// ListSubcategories GET /categories/:id/subcategories.
func (h *CatalogHandler) ListSubcategories(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	subs, err := h.directory.ListSubcategories(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.SubcategoryResponse, 0, len(subs))
	for i := range subs {
		items = append(items, dto.NewSubcategoryResponse(&subs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateSubcategory POST /categories/:id/subcategories (admin).
func (h *CatalogHandler) CreateSubcategory(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	sub, err := h.directory.CreateSubcategory(c.UserContext(), principal.User, c.Params("id"), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSubcategoryResponse(sub)})
}

// ListSLAPolicies GET /sla-policies.
func (h *CatalogHandler) ListSLAPolicies(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	policies, err := h.sla.ListPolicies(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.NewSLAPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateSLAPolicy POST /sla-policies (admin).
func (h *CatalogHandler) CreateSLAPolicy(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	policy, err := h.sla.CreatePolicy(c.UserContext(), principal.User, service.SLAPolicyInput{
		Name:                  req.Name,
		Priority:              req.Priority,
		ResponseTimeMinutes:   req.ResponseTimeMinutes,
		ResolutionTimeMinutes: req.ResolutionTimeMinutes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}

// UpdateSLAPolicy PUT /sla-policies/:id (admin).
func (h *CatalogHandler) UpdateSLAPolicy(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	policy, err := h.sla.UpdatePolicy(c.UserContext(), principal.User, c.Params("id"), service.SLAPolicyInput{
		Name:                  req.Name,
		Priority:              req.Priority,
		ResponseTimeMinutes:   req.ResponseTimeMinutes,
		ResolutionTimeMinutes: req.ResolutionTimeMinutes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}
