package domain

import (
	"time"

	"github.com/xencrm/crm-server/internal/rules"
)

// Segment is a named, persisted audience-selection rule set. Rule groups are
// embedded: they have no lifecycle of their own.
//
// PreviewCount is a derived cache recomputed on every create/update. It is
// never authoritative: campaign launch recomputes the live audience.
type Segment struct {
	SegmentID    string            `json:"segment_id" db:"segment_id"`
	Name         string            `json:"name" db:"name"`
	Description  string            `json:"description,omitempty" db:"description"`
	RuleGroups   []rules.RuleGroup `json:"rules" db:"rules"`
	PreviewCount int               `json:"preview_count" db:"preview_count"`
	CreatedBy    string            `json:"created_by" db:"created_by"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
