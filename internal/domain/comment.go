package domain

import "time"

// Comment captures communication on an incident. Internal comments are
// hidden from reporters.
type Comment struct {
	ID         string
	IncidentID string
	AuthorID   string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
