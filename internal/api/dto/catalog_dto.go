package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// DepartmentResponse represents a department.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCategoryRequest payload.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// CategoryResponse represents a category.
type CategoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// SubcategoryResponse represents a subcategory.
type SubcategoryResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// CreateServiceItemRequest payload.
type CreateServiceItemRequest struct {
	Name         string                  `json:"name" validate:"required"`
	Description  string                  `json:"description"`
	Icon         string                  `json:"icon"`
	BasePriority domain.IncidentPriority `json:"base_priority"`
	CategoryID   string                  `json:"category_id" validate:"required"`
}

// ServiceItemResponse represents a catalog entry.
type ServiceItemResponse struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Icon         string                  `json:"icon"`
	BasePriority domain.IncidentPriority `json:"base_priority"`
	CategoryID   string                  `json:"category_id"`
	IsActive     bool                    `json:"is_active"`
}

// RequestServiceItemRequest payload for ordering a catalog item.
type RequestServiceItemRequest struct {
	Note string `json:"note"`
}

// SLAPolicyRequest payload.
type SLAPolicyRequest struct {
	Name                  string                  `json:"name" validate:"required"`
	Priority              domain.IncidentPriority `json:"priority" validate:"required"`
	ResponseTimeMinutes   int                     `json:"response_time_minutes" validate:"gt=0"`
	ResolutionTimeMinutes int                     `json:"resolution_time_minutes" validate:"gt=0"`
}

// SLAPolicyResponse represents an SLA policy.
type SLAPolicyResponse struct {
	ID                    string                  `json:"id"`
	Name                  string                  `json:"name"`
	Priority              domain.IncidentPriority `json:"priority"`
	ResponseTimeMinutes   int                     `json:"response_time_minutes"`
	ResolutionTimeMinutes int                     `json:"resolution_time_minutes"`
}

// StatsResponse is the reporting overview.
type StatsResponse struct {
	ByStatus       map[string]int64   `json:"by_status"`
	ByDepartment   map[string]int64   `json:"by_department"`
	ByPriority     map[string]int64   `json:"by_priority"`
	MTTRSeconds    float64            `json:"mttr_seconds"`
	MTTRByPriority map[string]float64 `json:"mttr_by_priority"`
	DailyTrend     []DailyTrendPoint  `json:"daily_trend"`
}

// DailyTrendPoint is one day of resolution metrics.
type DailyTrendPoint struct {
	Day        time.Time `json:"day"`
	AvgSeconds float64   `json:"avg_seconds"`
	Resolved   int64     `json:"resolved"`
}

// WorkloadResponse counts open incidents per department member.
type WorkloadResponse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	OpenCount int64  `json:"open_count"`
}

// NewDepartmentResponse converts a department.
func NewDepartmentResponse(department *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          department.ID,
		Name:        department.Name,
		Description: department.Description,
		CreatedAt:   department.CreatedAt,
	}
}

// NewCategoryResponse converts a category.
func NewCategoryResponse(category *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		IsActive:    category.IsActive,
	}
}

// NewSubcategoryResponse converts a subcategory.
func NewSubcategoryResponse(sub *domain.Subcategory) SubcategoryResponse {
	return SubcategoryResponse{
		ID:          sub.ID,
		CategoryID:  sub.CategoryID,
		Name:        sub.Name,
		Description: sub.Description,
		IsActive:    sub.IsActive,
	}
}

// NewServiceItemResponse converts a catalog entry.
func NewServiceItemResponse(item *domain.ServiceItem) ServiceItemResponse {
	return ServiceItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Icon:         item.Icon,
		BasePriority: item.BasePriority,
		CategoryID:   item.CategoryID,
		IsActive:     item.IsActive,
	}
}

// NewSLAPolicyResponse converts an SLA policy.
func NewSLAPolicyResponse(policy *domain.SLAPolicy) SLAPolicyResponse {
	return SLAPolicyResponse{
		ID:                    policy.ID,
		Name:                  policy.Name,
		Priority:              policy.Priority,
		ResponseTimeMinutes:   policy.ResponseTimeMinutes,
		ResolutionTimeMinutes: policy.ResolutionTimeMinutes,
	}
}

// NewWorkloadResponse converts workload rows.
func NewWorkloadResponse(entries []repository.WorkloadEntry) []WorkloadResponse {
	result := make([]WorkloadResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, WorkloadResponse{
			UserID:    entry.UserID,
			Name:      entry.Name,
			OpenCount: entry.OpenCount,
		})
	}
	return result
}
