package plans

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores plans in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Plan
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Plan)}
}

// Create stores the plan.
func (r *MemoryRepo) Create(ctx context.Context, plan Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[plan.ID] = plan
	return nil
}

// GetByID returns a plan owned by the user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, planID string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.byID[planID]
	if !ok || plan.UserID != userID {
		return Plan{}, ErrNotFound
	}
	return plan, nil
}

// ListByUser returns plans for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var matches []Plan
	for _, p := range r.byID {
		if p.UserID == userID {
			matches = append(matches, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if offset >= len(matches) {
		return []Plan{}, nil
	}
	end := len(matches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
