package domain

import "time"

// Attachment stores metadata for a file attached to an incident. The bytes
// live in external storage under StorageKey.
type Attachment struct {
	ID          string
	IncidentID  string
	UploaderID  string
	FileName    string
	StorageKey  string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
