package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// SegmentRepo implements segment.Repository against PostgreSQL. Rule groups
// are stored as a jsonb column.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

func (r *SegmentRepo) Create(ctx context.Context, s *domain.Segment) error {
	rulesJSON, err := json.Marshal(s.RuleGroups)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO segments
			(segment_id, name, description, rules, preview_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.SegmentID, s.Name, s.Description, rulesJSON, s.PreviewCount, s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	return nil
}

func (r *SegmentRepo) Get(ctx context.Context, id string) (*domain.Segment, error) {
	s := &domain.Segment{}
	var rulesJSON []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT segment_id, name, COALESCE(description,''), rules, preview_count,
		       created_by, created_at, updated_at
		FROM segments
		WHERE segment_id = $1
	`, id).Scan(
		&s.SegmentID, &s.Name, &s.Description, &rulesJSON, &s.PreviewCount,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, segment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	if err := json.Unmarshal(rulesJSON, &s.RuleGroups); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return s, nil
}

func (r *SegmentRepo) List(ctx context.Context) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT segment_id, name, COALESCE(description,''), rules, preview_count,
		       created_by, created_at, updated_at
		FROM segments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []domain.Segment
	for rows.Next() {
		var s domain.Segment
		var rulesJSON []byte
		if err := rows.Scan(
			&s.SegmentID, &s.Name, &s.Description, &rulesJSON, &s.PreviewCount,
			&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal(rulesJSON, &s.RuleGroups); err != nil {
			return nil, fmt.Errorf("unmarshal rules: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SegmentRepo) Update(ctx context.Context, s *domain.Segment) error {
	rulesJSON, err := json.Marshal(s.RuleGroups)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE segments
		SET name = $1, description = $2, rules = $3, preview_count = $4, updated_at = $5
		WHERE segment_id = $6
	`, s.Name, s.Description, rulesJSON, s.PreviewCount, s.UpdatedAt, s.SegmentID)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return segment.ErrNotFound
	}
	return nil
}

func (r *SegmentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM segments WHERE segment_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return segment.ErrNotFound
	}
	return nil
}
