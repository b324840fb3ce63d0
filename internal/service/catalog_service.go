package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// CatalogService manages the service catalog and turns item requests into
// REQ-keyed incidents.
type CatalogService struct {
	items     repository.ServiceItemRepository
	incidents *IncidentService
}

// NewCatalogService constructs the service.
func NewCatalogService(items repository.ServiceItemRepository, incidents *IncidentService) *CatalogService {
	return &CatalogService{items: items, incidents: incidents}
}

// ServiceItemInput describes a catalog item payload.
type ServiceItemInput struct {
	Name         string
	Description  string
	Icon         string
	BasePriority domain.IncidentPriority
	CategoryID   string
}

// CreateItem adds a catalog entry. Admin only.
func (s *CatalogService) CreateItem(ctx context.Context, actor *domain.User, input ServiceItemInput) (*domain.ServiceItem, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageCatalog) {
		return nil, errorutil.NewForbidden("not allowed to manage the catalog")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errorutil.NewMissingRequiredField("name")
	}
	basePriority := input.BasePriority
	if basePriority == "" {
		basePriority = domain.PriorityMedium
	}
	if !domain.ValidPriority(basePriority) {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": basePriority})
	}

	item := &domain.ServiceItem{
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Icon:         input.Icon,
		BasePriority: basePriority,
		CategoryID:   input.CategoryID,
		IsActive:     true,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns active catalog entries, optionally for one category.
func (s *CatalogService) ListItems(ctx context.Context, categoryID *string) ([]domain.ServiceItem, error) {
	return s.items.List(ctx, categoryID)
}

// RequestItem orders a catalog item, producing a REQ incident carrying
// the item's base priority and category.
func (s *CatalogService) RequestItem(ctx context.Context, actor *domain.User, itemID, note string) (*domain.Incident, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("service item", map[string]any{"id": itemID})
		}
		return nil, err
	}
	if !item.IsActive {
		return nil, errorutil.NewValidationError("service item is inactive", map[string]any{"id": item.ID})
	}

	description := strings.TrimSpace(note)
	if description == "" {
		description = item.Description
	}
	input := IncidentCreateInput{
		Title:       fmt.Sprintf("Service request: %s", item.Name),
		Description: description,
		Priority:    item.BasePriority,
		CategoryID:  item.CategoryID,
	}
	return s.incidents.create(ctx, actor, input, "REQ", &item.ID)
}
