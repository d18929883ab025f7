package plans

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new plan.
func (r *PGRepo) Create(ctx context.Context, plan Plan) error {
	const query = `
INSERT INTO plans (id, user_id, file_name, storage_key, mime_type, size_bytes, extracted_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		plan.ID,
		plan.UserID,
		plan.FileName,
		plan.StorageKey,
		nullString(plan.MimeType),
		plan.SizeBytes,
		nullString(plan.ExtractedText),
		plan.CreatedAt,
	)
	return err
}

// GetByID fetches a plan by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, planID string) (Plan, error) {
	const query = `
SELECT id, user_id, file_name, storage_key, mime_type, size_bytes, extracted_text, created_at
FROM plans
WHERE user_id = $1 AND id = $2
LIMIT 1`
	var p Plan
	var mimeType, extracted sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID, planID).Scan(
		&p.ID,
		&p.UserID,
		&p.FileName,
		&p.StorageKey,
		&mimeType,
		&p.SizeBytes,
		&extracted,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	if mimeType.Valid {
		p.MimeType = mimeType.String
	}
	if extracted.Valid {
		p.ExtractedText = extracted.String
	}
	return p, nil
}

// ListByUser lists plans ordered newest-first. The extracted text column is
// not selected; listings only need metadata.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Plan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, user_id, file_name, storage_key, mime_type, size_bytes, created_at
FROM plans
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		var mimeType sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.FileName, &p.StorageKey, &mimeType, &p.SizeBytes, &p.CreatedAt); err != nil {
			return nil, err
		}
		if mimeType.Valid {
			p.MimeType = mimeType.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
