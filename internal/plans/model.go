package plans

import "time"

// Plan represents an uploaded business-plan document owned by a user.
type Plan struct {
	ID            string
	UserID        string
	FileName      string
	StorageKey    string
	MimeType      string
	SizeBytes     int64
	ExtractedText string
	CreatedAt     time.Time
}
