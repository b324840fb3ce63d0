package domain

// SLAPolicy defines response and resolution targets for one priority level.
type SLAPolicy struct {
	ID                    string
	Name                  string
	Priority              IncidentPriority
	ResponseTimeMinutes   int
	ResolutionTimeMinutes int
}
