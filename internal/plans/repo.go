package plans

import "context"

// Repo defines persistence operations for plans.
type Repo interface {
	Create(ctx context.Context, plan Plan) error
	GetByID(ctx context.Context, userID, planID string) (Plan, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Plan, error)
}
