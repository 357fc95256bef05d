package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "ACTIVE"
	CampaignCompleted CampaignStatus = "COMPLETED"
	CampaignCancelled CampaignStatus = "CANCELLED"
)

// LaunchState tracks progress of the non-transactional launch pipeline.
// Because the campaign row, the log batch, and the audience-count update are
// separate statements, a crash mid-launch leaves the state short of
// FINALIZED and the campaign is detectably incomplete.
type LaunchState string

const (
	LaunchCreated          LaunchState = "CREATED"
	LaunchAudienceResolved LaunchState = "AUDIENCE_RESOLVED"
	LaunchLogged           LaunchState = "LOGGED"
	LaunchFinalized        LaunchState = "FINALIZED"
)

// Campaign is a one-time targeting and messaging action against a segment's
// resolved audience. TargetAudienceCount is set exactly once, after audience
// resolution, and reflects the audience size at launch time.
type Campaign struct {
	CampaignID          string         `json:"campaign_id" db:"campaign_id"`
	Name                string         `json:"name" db:"name"`
	SegmentID           string         `json:"segment_id" db:"segment_id"`
	MessageTemplate     string         `json:"message_template" db:"message_template"`
	CampaignType        string         `json:"campaign_type" db:"campaign_type"`
	CreatedBy           string         `json:"created_by" db:"created_by"`
	Status              CampaignStatus `json:"status" db:"status"`
	LaunchState         LaunchState    `json:"launch_state" db:"launch_state"`
	TargetAudienceCount int            `json:"target_audience_count" db:"target_audience_count"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// LogStatus enumerates delivery-log states. Only PENDING is written by this
// core; the downstream delivery worker owns the rest.
type LogStatus string

const (
	LogPending   LogStatus = "PENDING"
	LogDelivered LogStatus = "DELIVERED"
	LogFailed    LogStatus = "FAILED"
)

// CommunicationLogEntry is one queued, pre-rendered message for a single
// customer. Entries are written in one batch at launch and never regenerated;
// MessageText is an immutable snapshot of the rendered template.
type CommunicationLogEntry struct {
	CampaignID    string    `json:"campaign_id" db:"campaign_id"`
	CustomerID    string    `json:"customer_id" db:"customer_id"`
	CustomerEmail string    `json:"customer_email" db:"customer_email"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	MessageText   string    `json:"message_text" db:"message_text"`
	Status        LogStatus `json:"status" db:"status"`
	Attempts      int       `json:"attempts" db:"attempts"`
	MaxAttempts   int       `json:"max_attempts" db:"max_attempts"`
}

// CampaignStats is the delivery roll-up maintained by the out-of-scope
// delivery pipeline; the CRM only reads it.
type CampaignStats struct {
	TotalDelivered int        `json:"total_delivered" db:"total_delivered"`
	TotalFailed    int        `json:"total_failed" db:"total_failed"`
	LastUpdated    *time.Time `json:"last_updated,omitempty" db:"last_updated"`
}
