package segment

import (
	"context"

	"github.com/xencrm/crm-server/internal/domain"
)

// Repository defines the data access contract for segments.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new segment.
	Create(ctx context.Context, s *domain.Segment) error

	// Get returns a single segment. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Segment, error)

	// List returns all segments ordered by created_at DESC.
	List(ctx context.Context) ([]domain.Segment, error)

	// Update rewrites name, description, rules, and preview count.
	// Returns ErrNotFound if the segment doesn't exist.
	Update(ctx context.Context, s *domain.Segment) error

	// Delete removes a segment. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, id string) error
}

// CampaignLookup is the slice of the campaign repository the segment service
// needs for its delete-conflict check.
type CampaignLookup interface {
	// FindBySegment returns the campaigns referencing a segment.
	FindBySegment(ctx context.Context, segmentID string) ([]CampaignRef, error)
}
