package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/service/campaign"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// CampaignRepo implements campaign.Repository and the segment service's
// CampaignLookup against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(campaign_id, name, segment_id, message_template, campaign_type,
			 created_by, status, launch_state, target_audience_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, c.CampaignID, c.Name, c.SegmentID, c.MessageTemplate, c.CampaignType,
		c.CreatedBy, c.Status, c.LaunchState, c.TargetAudienceCount, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT campaign_id, name, segment_id, message_template, campaign_type,
		       created_by, status, launch_state, target_audience_count, created_at
		FROM campaigns
		WHERE campaign_id = $1
	`, id).Scan(
		&c.CampaignID, &c.Name, &c.SegmentID, &c.MessageTemplate, &c.CampaignType,
		&c.CreatedBy, &c.Status, &c.LaunchState, &c.TargetAudienceCount, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, f campaign.ListFilter) ([]campaign.ListItem, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.campaign_id, c.name, c.segment_id, c.message_template, c.campaign_type,
		       c.created_by, c.status, c.launch_state, c.target_audience_count, c.created_at,
		       COALESCE(s.name,'')
		FROM campaigns c
		LEFT JOIN segments s ON s.segment_id = c.segment_id
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []campaign.ListItem
	for rows.Next() {
		var it campaign.ListItem
		if err := rows.Scan(
			&it.CampaignID, &it.Name, &it.SegmentID, &it.MessageTemplate, &it.CampaignType,
			&it.CreatedBy, &it.Status, &it.LaunchState, &it.TargetAudienceCount, &it.CreatedAt,
			&it.SegmentName,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, it)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) UpdateLaunchState(ctx context.Context, id string, state domain.LaunchState) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET launch_state = $1 WHERE campaign_id = $2
	`, state, id)
	if err != nil {
		return fmt.Errorf("update launch state: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) FinalizeAudienceCount(ctx context.Context, id string, count int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET target_audience_count = $1, launch_state = $2
		WHERE campaign_id = $3
	`, count, domain.LaunchFinalized, id)
	if err != nil {
		return fmt.Errorf("finalize audience count: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) Stats(ctx context.Context, id string) (*domain.CampaignStats, error) {
	s := &domain.CampaignStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT total_delivered, total_failed, last_updated
		FROM campaign_stats
		WHERE campaign_id = $1
	`, id).Scan(&s.TotalDelivered, &s.TotalFailed, &s.LastUpdated)
	if err == sql.ErrNoRows {
		// No delivery activity yet; zero counters.
		return &domain.CampaignStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign stats: %w", err)
	}
	return s, nil
}

// FindBySegment implements segment.CampaignLookup for the delete-conflict
// check.
func (r *CampaignRepo) FindBySegment(ctx context.Context, segmentID string) ([]segment.CampaignRef, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT campaign_id, name FROM campaigns WHERE segment_id = $1
	`, segmentID)
	if err != nil {
		return nil, fmt.Errorf("find campaigns by segment: %w", err)
	}
	defer rows.Close()

	var out []segment.CampaignRef
	for rows.Next() {
		var ref segment.CampaignRef
		if err := rows.Scan(&ref.CampaignID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan campaign ref: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}
