package analyses

import "context"

// Repo defines persistence operations for analyses. Section updates are
// per-section upserts: concurrent writers touching different sections of the
// same analysis must never lose each other's writes.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	UpdateStatus(ctx context.Context, analysisID, status string) error
	UpsertSection(ctx context.Context, analysisID string, section Section) error
}
