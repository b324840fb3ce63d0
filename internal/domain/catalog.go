package domain

import "time"

// Department represents an organizational unit incidents are routed to.
type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Category classifies incidents.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
}

// Subcategory refines a category.
type Subcategory struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
	IsActive    bool
}

// ServiceItem is an orderable entry in the service catalog. Requesting one
// creates a REQ-keyed incident with the item's base priority.
type ServiceItem struct {
	ID           string
	Name         string
	Description  string
	Icon         string
	BasePriority IncidentPriority
	CategoryID   string
	IsActive     bool
}
