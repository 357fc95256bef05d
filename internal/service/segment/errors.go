package segment

import (
	"errors"
	"fmt"
)

// Sentinel errors for the segment service layer.
var (
	ErrNotFound     = errors.New("segment not found")
	ErrNameRequired = errors.New("segment name is required")
	ErrNoRuleGroups = errors.New("at least one rule group is required")
)

// CampaignRef identifies a campaign that references a segment.
type CampaignRef struct {
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
}

// ConflictError is returned when a delete is refused because campaigns still
// reference the segment. The referencing campaigns are carried for the
// caller's error detail.
type ConflictError struct {
	Campaigns []CampaignRef
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("segment is used by %d campaign(s)", len(e.Campaigns))
}
