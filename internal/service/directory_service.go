package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// DirectoryService manages departments, categories and subcategories.
type DirectoryService struct {
	departments repository.DepartmentRepository
	categories  repository.CategoryRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(departments repository.DepartmentRepository, categories repository.CategoryRepository) *DirectoryService {
	return &DirectoryService{departments: departments, categories: categories}
}

// CreateDepartment adds a department. Admin only.
func (s *DirectoryService) CreateDepartment(ctx context.Context, actor *domain.User, name, description string) (*domain.Department, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageCatalog) {
		return nil, errorutil.NewForbidden("not allowed to manage departments")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errorutil.NewMissingRequiredField("name")
	}
	department := &domain.Department{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := s.departments.Create(ctx, department); err != nil {
		return nil, err
	}
	return department, nil
}

// ListDepartments returns all departments.
func (s *DirectoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.List(ctx)
}

// CreateCategory adds a category. Admin only.
func (s *DirectoryService) CreateCategory(ctx context.Context, actor *domain.User, name, description string) (*domain.Category, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageCatalog) {
		return nil, errorutil.NewForbidden("not allowed to manage categories")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errorutil.NewMissingRequiredField("name")
	}
	category := &domain.Category{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// ListCategories returns categories; non-admins only see active ones.
func (s *DirectoryService) ListCategories(ctx context.Context, actor *domain.User) ([]domain.Category, error) {
	activeOnly := !policy.AllowsRole(actor.Role, policy.ActionManageCatalog)
	return s.categories.List(ctx, activeOnly)
}

// CreateSubcategory adds a subcategory under an existing category. Admin only.
func (s *DirectoryService) CreateSubcategory(ctx context.Context, actor *domain.User, categoryID, name, description string) (*domain.Subcategory, error) {
	if !policy.AllowsRole(actor.Role, policy.ActionManageCatalog) {
		return nil, errorutil.NewForbidden("not allowed to manage categories")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errorutil.NewMissingRequiredField("name")
	}
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("category", map[string]any{"id": categoryID})
		}
		return nil, err
	}
	sub := &domain.Subcategory{
		CategoryID:  categoryID,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	if err := s.categories.CreateSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubcategories returns a category's subcategories.
func (s *DirectoryService) ListSubcategories(ctx context.Context, categoryID string) ([]domain.Subcategory, error) {
	return s.categories.ListSubcategories(ctx, categoryID)
}
