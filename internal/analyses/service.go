package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"venture-backend/internal/llm"
	"venture-backend/internal/llm/gateway"
	"venture-backend/internal/queue"
	"venture-backend/internal/sections"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/storage/object"
	"venture-backend/internal/shared/telemetry"
)

// Generator is the gateway surface the orchestrator depends on.
type Generator interface {
	Generate(ctx context.Context, sectionID sections.ID, prompt string) (string, error)
}

// PlanSource resolves a supporting document's extracted text.
type PlanSource interface {
	ExtractedText(ctx context.Context, userID, planID string) (string, error)
}

// Service contains business logic for analyses: it ties the scheduler,
// gateway, normalizer and state store together into the end-to-end pipeline
// for one analysis run.
type Service struct {
	Repo    Repo
	Gateway Generator
	// Plans is optional; when set, a submitted planId adds the uploaded
	// document's extracted text to every section prompt.
	Plans PlanSource
	// RawStore is optional; when set, raw model responses that failed
	// normalization or validation are archived for diagnosis.
	RawStore object.ObjectStore
	// Queue is optional; when set, processing happens on a worker consuming
	// the queue instead of an in-process goroutine.
	Queue queue.Client
}

// Create validates the input, persists a new pending analysis with every
// section queued, and kicks off asynchronous processing.
func (s *Service) Create(ctx context.Context, userID string, input Input) (Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, errors.New("userID is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return Analysis{}, errors.New("description is required")
	}
	if strings.TrimSpace(input.Industry) == "" {
		return Analysis{}, errors.New("industry is required")
	}

	now := time.Now().UTC()
	analysis := Analysis{
		ID:        uuid.NewString(),
		UserID:    userID,
		Input:     input,
		Status:    StatusPending,
		Sections:  make(map[string]Section, len(sections.All())),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range sections.All() {
		analysis.Sections[string(id)] = Section{
			SectionID: string(id),
			Status:    SectionQueued,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	if s.Queue != nil {
		msg := queue.Message{
			AnalysisID: analysis.ID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: now.Format(time.RFC3339),
			Version:    1,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			// Fall back to in-process completion rather than stranding a
			// pending document.
			telemetry.Error("analysis.enqueue", map[string]any{
				"analysis_id": analysis.ID,
				"error":       sanitizeError(err),
			})
			go s.processAsync(backgroundWithRequestID(ctx), analysis.ID)
		}
		return analysis, nil
	}

	go s.processAsync(backgroundWithRequestID(ctx), analysis.ID)
	return analysis, nil
}

// Get returns an analysis by ID.
func (s *Service) Get(ctx context.Context, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	return s.Repo.GetByID(ctx, analysisID)
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// OverrideSection validates manually supplied data against the section's
// schema and stores it through the same per-section update as the pipeline.
func (s *Service) OverrideSection(ctx context.Context, analysisID, sectionID string, data json.RawMessage) (Section, error) {
	id := sections.ID(sectionID)
	if !sections.Known(id) {
		return Section{}, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}
	if _, err := s.Repo.GetByID(ctx, analysisID); err != nil {
		return Section{}, err
	}

	validated, err := sections.Validate(id, data)
	if err != nil {
		return Section{}, fmt.Errorf("section data invalid: %w", err)
	}

	section := Section{
		SectionID: sectionID,
		Status:    SectionCompleted,
		Data:      validated,
	}
	if err := s.Repo.UpsertSection(ctx, analysisID, section); err != nil {
		return Section{}, err
	}
	return section, nil
}

func (s *Service) processAsync(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(ctx, analysisID, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.ProcessAnalysis(ctx, analysisID); err != nil {
		telemetry.Error("analysis.process", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"analysis_id": analysisID,
			"error":       sanitizeError(err),
		})
	}
}

// ProcessAnalysis runs the full pipeline for one analysis. Per-section
// failures are recorded and isolated; only store-layer failures or a failure
// of the driver itself mark the whole document failed.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	startedAt := time.Now().UTC()

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("analysis lookup: %w", err)
	}
	if analysis.Status == StatusCompleted || analysis.Status == StatusFailed {
		return nil
	}
	if s.Gateway == nil {
		s.failAnalysis(ctx, analysisID, errors.New("missing provider gateway"))
		return errors.New("missing provider gateway")
	}

	if err := s.updateStatusWithRetry(ctx, analysisID, StatusProcessing); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set processing failed: %w", err))
		return err
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysisID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	businessContext := buildBusinessContext(analysis.Input, s.planText(ctx, analysis))

	var storeFailed atomic.Bool
	sched := &scheduler{
		ids: sections.All(),
		run: func(ctx context.Context, id sections.ID, deps map[sections.ID]map[string]any) (map[string]any, error) {
			return s.runSection(ctx, analysisID, id, businessContext, deps, &storeFailed)
		},
		skip: func(ctx context.Context, id sections.ID, reason error) {
			s.skipSection(ctx, analysisID, id, reason, &storeFailed)
		},
	}

	if err := sched.execute(ctx); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("scheduler: %w", err))
		return err
	}
	if storeFailed.Load() {
		err := errors.New("section state could not be recorded")
		s.failAnalysis(ctx, analysisID, err)
		return err
	}

	if err := s.updateStatusWithRetry(ctx, analysisID, StatusCompleted); err != nil {
		s.failAnalysis(ctx, analysisID, fmt.Errorf("set completed failed: %w", err))
		return err
	}
	completedAt := time.Now().UTC()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"analysis_id":       analysisID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	return nil
}

// runSection drives one section through the pipeline: pending -> provider ->
// normalize -> validate -> completed/failed. A panic or error here stays at
// the section boundary and never aborts sibling sections.
func (s *Service) runSection(ctx context.Context, analysisID string, id sections.ID, businessContext string, deps map[sections.ID]map[string]any, storeFailed *atomic.Bool) (data map[string]any, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.failSection(ctx, analysisID, id, ErrorCodeInternal, err, "", storeFailed)
		}
	}()

	if err := s.upsertSectionWithRetry(ctx, analysisID, Section{
		SectionID: string(id),
		Status:    SectionPending,
	}); err != nil {
		storeFailed.Store(true)
		return nil, fmt.Errorf("mark section pending: %w", err)
	}

	prompt, err := llm.BuildSectionPrompt(string(id), businessContext, dependencyContext(deps))
	if err != nil {
		s.failSection(ctx, analysisID, id, ErrorCodeInternal, err, "", storeFailed)
		return nil, err
	}

	raw, err := s.Gateway.Generate(ctx, id, prompt)
	if err != nil {
		s.failSection(ctx, analysisID, id, providerErrorCode(err), err, "", storeFailed)
		return nil, err
	}

	normalized, err := sections.Normalize(raw, id)
	if err != nil {
		s.failSection(ctx, analysisID, id, ErrorCodeNormalize, err, raw, storeFailed)
		return nil, err
	}

	validated, err := sections.Validate(id, normalized)
	if err != nil {
		s.failSection(ctx, analysisID, id, ErrorCodeSchema, err, raw, storeFailed)
		return nil, err
	}

	if err := s.upsertSectionWithRetry(ctx, analysisID, Section{
		SectionID: string(id),
		Status:    SectionCompleted,
		Data:      validated,
	}); err != nil {
		storeFailed.Store(true)
		return nil, fmt.Errorf("store section result: %w", err)
	}

	metrics.IncSectionCompleted()
	metrics.ObserveSectionDurationMs(durationMs(startedAt, time.Now().UTC()))
	telemetry.Info("section.status", map[string]any{
		"analysis_id": analysisID,
		"section":     string(id),
		"status":      SectionCompleted,
		"duration_ms": durationMs(startedAt, time.Now().UTC()),
	})
	return validated, nil
}

// failSection records a failed section with its fallback payload. The raw
// model response, when present, is archived for diagnosis.
func (s *Service) failSection(ctx context.Context, analysisID string, id sections.ID, code string, cause error, rawText string, storeFailed *atomic.Bool) {
	if rawText != "" {
		s.archiveRaw(ctx, analysisID, id, rawText)
	}
	var normErr *sections.NormalizationError
	if errors.As(cause, &normErr) && normErr.RawText != "" {
		s.archiveRaw(ctx, analysisID, id, normErr.RawText)
	}

	section := Section{
		SectionID: string(id),
		Status:    SectionFailed,
		Data:      sections.Fallback(id),
		Error:     code + ": " + sanitizeError(cause),
	}
	if err := s.upsertSectionWithRetry(ctx, analysisID, section); err != nil {
		storeFailed.Store(true)
		return
	}
	metrics.IncSectionFailed()
	telemetry.Warn("section.status", map[string]any{
		"analysis_id": analysisID,
		"section":     string(id),
		"status":      SectionFailed,
		"error_code":  code,
		"error":       sanitizeError(cause),
	})
}

func (s *Service) skipSection(ctx context.Context, analysisID string, id sections.ID, reason error, storeFailed *atomic.Bool) {
	s.failSection(ctx, analysisID, id, ErrorCodeDependency, reason, "", storeFailed)
}

func (s *Service) failAnalysis(ctx context.Context, analysisID string, cause error) {
	// Use a fresh context: the run's context may already be canceled.
	if err := s.Repo.UpdateStatus(context.Background(), analysisID, StatusFailed); err != nil {
		fmt.Printf("failAnalysis: update failed id=%s err=%v orig=%v\n", analysisID, err, cause)
	}
	metrics.IncAnalysisFailed()
	telemetry.Error("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             sanitizeError(cause),
	})
}

func (s *Service) planText(ctx context.Context, analysis Analysis) string {
	if s.Plans == nil || strings.TrimSpace(analysis.Input.PlanID) == "" {
		return ""
	}
	text, err := s.Plans.ExtractedText(ctx, analysis.UserID, analysis.Input.PlanID)
	if err != nil {
		telemetry.Warn("analysis.plan", map[string]any{
			"analysis_id": analysis.ID,
			"plan_id":     analysis.Input.PlanID,
			"error":       sanitizeError(err),
		})
		return ""
	}
	return text
}

func (s *Service) archiveRaw(ctx context.Context, analysisID string, id sections.ID, rawText string) {
	if s.RawStore == nil {
		return
	}
	key := fmt.Sprintf("analyses/%s/%s.raw.txt", analysisID, id)
	if err := s.RawStore.Put(ctx, key, strings.NewReader(rawText), "text/plain; charset=utf-8"); err != nil {
		telemetry.Warn("analysis.archive", map[string]any{
			"analysis_id": analysisID,
			"section":     string(id),
			"error":       sanitizeError(err),
		})
	}
}

const storeRetryDelay = 200 * time.Millisecond

func (s *Service) upsertSectionWithRetry(ctx context.Context, analysisID string, section Section) error {
	err := s.Repo.UpsertSection(ctx, analysisID, section)
	if err == nil {
		return nil
	}
	select {
	case <-time.After(storeRetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Repo.UpsertSection(ctx, analysisID, section)
}

func (s *Service) updateStatusWithRetry(ctx context.Context, analysisID, status string) error {
	err := s.Repo.UpdateStatus(ctx, analysisID, status)
	if err == nil {
		return nil
	}
	select {
	case <-time.After(storeRetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Repo.UpdateStatus(ctx, analysisID, status)
}

func providerErrorCode(err error) string {
	switch {
	case errors.Is(err, gateway.ErrMalformedResponse):
		return ErrorCodeNormalize
	case errors.Is(err, gateway.ErrProviderRejected), errors.Is(err, gateway.ErrProviderUnavailable):
		return ErrorCodeProvider
	default:
		return ErrorCodeProvider
	}
}

// buildBusinessContext renders the user input as the prompt's business
// details block.
func buildBusinessContext(input Input, planText string) string {
	var b strings.Builder
	writeField := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(value))
		b.WriteString("\n")
	}
	writeField("Description", input.Description)
	writeField("Industry", input.Industry)
	writeField("Sub-industry", input.SubIndustry)
	writeField("Target customers", input.TargetCustomers)
	writeField("Pricing model", input.PricingModel)
	writeField("Stage", input.Stage)
	if input.TeamSize > 0 {
		writeField("Team size", fmt.Sprintf("%d", input.TeamSize))
	}
	writeField("Additional info", input.AdditionalInfo)
	if strings.TrimSpace(planText) != "" {
		b.WriteString("\nSupporting document:\n")
		b.WriteString(truncateText(planText, maxPlanChars))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const (
	maxPlanChars    = 12000
	maxDepJSONChars = 4000
)

// dependencyContext renders completed dependency payloads as compact JSON so
// downstream sections can build on upstream findings.
func dependencyContext(deps map[sections.ID]map[string]any) string {
	if len(deps) == 0 {
		return ""
	}
	var b strings.Builder
	for _, id := range sections.All() {
		data, ok := deps[id]
		if !ok {
			continue
		}
		payload, err := json.Marshal(data)
		if err != nil {
			continue
		}
		b.WriteString(string(id))
		b.WriteString(": ")
		b.WriteString(truncateText(string(payload), maxDepJSONChars))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
