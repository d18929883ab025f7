package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(analysis), nil
}

// ListByUser returns analyses for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
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
	var matches []Analysis
	for _, a := range r.byID {
		if a.UserID == userID {
			matches = append(matches, cloneAnalysis(a))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if offset >= len(matches) {
		return []Analysis{}, nil
	}
	end := len(matches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], nil
}

// UpdateStatus updates the document-level status.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, analysisID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	analysis.Status = status
	analysis.UpdatedAt = time.Now().UTC()
	r.byID[analysisID] = analysis
	return nil
}

// UpsertSection merges one section into the analysis. Writers touching
// different sections never clobber each other: the sections map is copied
// under the lock before the merge.
func (r *MemoryRepo) UpsertSection(ctx context.Context, analysisID string, section Section) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	merged := make(map[string]Section, len(analysis.Sections)+1)
	for k, v := range analysis.Sections {
		merged[k] = v
	}
	if existing, ok := merged[section.SectionID]; ok && !existing.CreatedAt.IsZero() {
		section.CreatedAt = existing.CreatedAt
	} else if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now
	merged[section.SectionID] = section

	analysis.Sections = merged
	analysis.UpdatedAt = now
	r.byID[analysisID] = analysis
	return nil
}

func cloneAnalysis(a Analysis) Analysis {
	out := a
	out.Sections = make(map[string]Section, len(a.Sections))
	for k, v := range a.Sections {
		out.Sections[k] = v
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
