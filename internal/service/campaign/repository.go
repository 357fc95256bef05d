package campaign

import (
	"context"

	"github.com/xencrm/crm-server/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new campaign row.
	Create(ctx context.Context, c *domain.Campaign) error

	// Get returns a single campaign. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by created_at DESC,
	// along with the total count before pagination.
	List(ctx context.Context, f ListFilter) ([]ListItem, int, error)

	// UpdateLaunchState advances a campaign through the launch pipeline.
	UpdateLaunchState(ctx context.Context, id string, state domain.LaunchState) error

	// FinalizeAudienceCount records the resolved audience size and moves the
	// campaign to FINALIZED in one statement.
	FinalizeAudienceCount(ctx context.Context, id string, count int) error

	// Stats returns the delivery roll-up for a campaign. A campaign with no
	// stats row yet yields zero counters, not an error.
	Stats(ctx context.Context, id string) (*domain.CampaignStats, error)
}

// LogRepository writes the pending communication log at launch time.
type LogRepository interface {
	// CreateMany inserts all entries in one batch. Either every entry is
	// written or none are.
	CreateMany(ctx context.Context, entries []domain.CommunicationLogEntry) error
}

// SegmentSource is the slice of the segment service the launch pipeline
// needs: the segment's rules and existence check.
type SegmentSource interface {
	Get(ctx context.Context, id string) (*domain.Segment, error)
}

// ListFilter controls pagination for campaign history.
type ListFilter struct {
	Limit  int
	Offset int
}

// ListItem is a campaign history row with its segment name joined in.
type ListItem struct {
	domain.Campaign
	SegmentName string `json:"segment_name" db:"segment_name"`
}
