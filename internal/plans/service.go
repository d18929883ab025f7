package plans

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"venture-backend/internal/extract"
	"venture-backend/internal/shared/storage/object"
	"venture-backend/internal/shared/telemetry"
)

// Service contains business logic for plans.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the file to object storage, extracts its text, and records the
// plan. Extraction failure is not fatal: the plan is stored without text and
// extraction is retried on first use.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Plan, error) {
	if fileName == "" {
		return Plan{}, ErrInvalidInput
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return Plan{}, err
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, bytes.NewReader(raw))
	if err != nil {
		return Plan{}, err
	}

	text, err := extract.ExtractTextFromBytes(ctx, raw, mimeType, fileName)
	if err != nil {
		telemetry.Warn("plan.extract", map[string]any{
			"user_id":   userID,
			"file_name": fileName,
			"error":     err.Error(),
		})
		text = ""
	}

	plan := Plan{
		ID:            uuid.NewString(),
		UserID:        userID,
		FileName:      fileName,
		StorageKey:    storageKey,
		MimeType:      mimeType,
		SizeBytes:     size,
		ExtractedText: text,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, plan); err != nil {
		return Plan{}, err
	}

	return plan, nil
}

// Get returns a plan owned by the user.
func (s *Service) Get(ctx context.Context, userID, planID string) (Plan, error) {
	if userID == "" || planID == "" {
		return Plan{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, planID)
}

// List returns plans for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Plan, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ExtractedText returns the plan's text, extracting from the stored object
// when the upload-time extraction did not produce any.
func (s *Service) ExtractedText(ctx context.Context, userID, planID string) (string, error) {
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return "", err
	}
	if plan.ExtractedText != "" {
		return plan.ExtractedText, nil
	}
	return extract.ExtractText(ctx, s.Store, plan.StorageKey, plan.MimeType, plan.FileName)
}
