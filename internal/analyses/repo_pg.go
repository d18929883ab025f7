package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Sections live in their own table
// keyed by (analysis_id, section_id); a keyed upsert makes concurrent section
// completions lost-update-free without read-modify-write of the whole map.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis and its queued section rows in one
// transaction.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	inputPayload, err := json.Marshal(analysis.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insertAnalysis = `
INSERT INTO analyses (id, user_id, input, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	if _, err := tx.ExecContext(ctx, insertAnalysis,
		analysis.ID,
		analysis.UserID,
		string(inputPayload),
		analysis.Status,
		analysis.CreatedAt,
	); err != nil {
		return err
	}

	const insertSection = `
INSERT INTO analysis_sections (analysis_id, section_id, status, data, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	for _, section := range analysis.Sections {
		dataPayload, err := marshalJSONB(section.Data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertSection,
			analysis.ID,
			section.SectionID,
			section.Status,
			dataPayload,
			nullString(section.Error),
			analysis.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID returns an analysis with all of its sections.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	const query = `
SELECT id, user_id, input, status, created_at, updated_at
FROM analyses
WHERE id = $1
LIMIT 1`
	var a Analysis
	var inputPayload sql.NullString
	err := r.DB.QueryRowContext(ctx, query, analysisID).Scan(
		&a.ID,
		&a.UserID,
		&inputPayload,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	if inputPayload.Valid {
		if err := json.Unmarshal([]byte(inputPayload.String), &a.Input); err != nil {
			return Analysis{}, fmt.Errorf("unmarshal input: %w", err)
		}
	}

	sections, err := r.sectionsFor(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	a.Sections = sections
	return a, nil
}

func (r *PGRepo) sectionsFor(ctx context.Context, analysisID string) (map[string]Section, error) {
	const query = `
SELECT section_id, status, data, error, created_at, updated_at
FROM analysis_sections
WHERE analysis_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Section)
	for rows.Next() {
		var s Section
		var dataPayload sql.NullString
		var errMsg sql.NullString
		if err := rows.Scan(&s.SectionID, &s.Status, &dataPayload, &errMsg, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if dataPayload.Valid && dataPayload.String != "" {
			if err := json.Unmarshal([]byte(dataPayload.String), &s.Data); err != nil {
				s.Data = nil
			}
		}
		if errMsg.Valid {
			s.Error = errMsg.String
		}
		out[s.SectionID] = s
	}
	return out, rows.Err()
}

// ListByUser returns analyses for a user ordered newest-first. Section rows
// are not joined; listings only need document-level fields.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, input, status, created_at, updated_at
FROM analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		var a Analysis
		var inputPayload sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &inputPayload, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if inputPayload.Valid {
			if err := json.Unmarshal([]byte(inputPayload.String), &a.Input); err != nil {
				return nil, fmt.Errorf("unmarshal input: %w", err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus updates the document-level status.
func (r *PGRepo) UpdateStatus(ctx context.Context, analysisID, status string) error {
	const query = `
UPDATE analyses
SET status = $2, updated_at = $3
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, analysisID, status, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertSection writes one section row. ON CONFLICT keeps the original
// created_at and merges the new status/data/error atomically.
func (r *PGRepo) UpsertSection(ctx context.Context, analysisID string, section Section) error {
	dataPayload, err := marshalJSONB(section.Data)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	const query = `
INSERT INTO analysis_sections (analysis_id, section_id, status, data, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (analysis_id, section_id)
DO UPDATE SET status = EXCLUDED.status,
              data = EXCLUDED.data,
              error = EXCLUDED.error,
              updated_at = EXCLUDED.updated_at`
	if _, err := r.DB.ExecContext(ctx, query,
		analysisID,
		section.SectionID,
		section.Status,
		dataPayload,
		nullString(section.Error),
		now,
	); err != nil {
		return err
	}

	const touch = `UPDATE analyses SET updated_at = $2 WHERE id = $1`
	_, err = r.DB.ExecContext(ctx, touch, analysisID, now)
	return err
}

func marshalJSONB(value map[string]any) (any, error) {
	if value == nil {
		return nil, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal section data: %w", err)
	}
	return string(payload), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
