package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/personalize"
	"github.com/xencrm/crm-server/internal/pkg/distlock"
	"github.com/xencrm/crm-server/internal/pkg/logger"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// defaultMaxAttempts is stamped on every queued log entry; the downstream
// delivery system stops retrying once attempts reaches it.
const defaultMaxAttempts = 3

// Service implements the campaign launch pipeline and history reads.
// All public methods are safe for concurrent use if the underlying
// repositories are concurrency-safe.
type Service struct {
	repo     Repository
	logs     LogRepository
	segments SegmentSource
	resolver *audience.Resolver
	newLock  func(key string) distlock.Lock
}

// NewService creates a campaign service.
func NewService(repo Repository, logs LogRepository, segments SegmentSource, resolver *audience.Resolver) *Service {
	return &Service{repo: repo, logs: logs, segments: segments, resolver: resolver}
}

// UseLaunchLock installs a lock factory that serializes launches per segment.
// Without it, concurrent launches against the same segment are allowed.
func (s *Service) UseLaunchLock(newLock func(key string) distlock.Lock) {
	s.newLock = newLock
}

// LaunchInput holds the fields for launching a new campaign.
type LaunchInput struct {
	Name            string `json:"name"`
	SegmentID       string `json:"segment_id"`
	MessageTemplate string `json:"message_template"`
	CampaignType    string `json:"campaign_type"`
}

// LaunchResult summarizes a completed launch.
type LaunchResult struct {
	CampaignID   string `json:"campaign_id"`
	Name         string `json:"name"`
	SegmentName  string `json:"segment_name"`
	MatchedCount int    `json:"matched_count"`
}

func (in *LaunchInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if in.SegmentID == "" {
		return ErrSegmentRequired
	}
	if strings.TrimSpace(in.MessageTemplate) == "" {
		return ErrMessageRequired
	}
	if in.CampaignType == "" {
		in.CampaignType = "PROMOTIONAL"
	}
	return nil
}

// Launch runs the full targeting pipeline: persist the campaign, materialize
// the segment's audience, render one message per customer, and queue the
// pending communication log in a single batch.
//
// The steps are separate statements, not one transaction; progress is
// persisted as a launch state on the campaign row so a crash mid-launch
// leaves a detectably incomplete campaign rather than a silent half-launch.
func (s *Service) Launch(ctx context.Context, createdBy string, input LaunchInput) (*LaunchResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	seg, err := s.segments.Get(ctx, input.SegmentID)
	if err != nil {
		if err == segment.ErrNotFound {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("load segment: %w", err)
	}

	if s.newLock != nil {
		lock := s.newLock("launch:segment:" + seg.SegmentID)
		ok, err := lock.TryAcquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire launch lock: %w", err)
		}
		if !ok {
			return nil, ErrLaunchInProgress
		}
		defer lock.Release(ctx)
	}

	c := &domain.Campaign{
		CampaignID:      uuid.New().String(),
		Name:            input.Name,
		SegmentID:       seg.SegmentID,
		MessageTemplate: input.MessageTemplate,
		CampaignType:    input.CampaignType,
		CreatedBy:       createdBy,
		Status:          domain.CampaignActive,
		LaunchState:     domain.LaunchCreated,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	customers, err := s.resolver.Materialize(ctx, seg.RuleGroups)
	if err != nil {
		// Campaign stays in CREATED; the caller sees the failure and the
		// row records that no audience was ever resolved.
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	if err := s.repo.UpdateLaunchState(ctx, c.CampaignID, domain.LaunchAudienceResolved); err != nil {
		return nil, fmt.Errorf("mark audience resolved: %w", err)
	}

	entries := make([]domain.CommunicationLogEntry, 0, len(customers))
	for i := range customers {
		cust := &customers[i]
		name := cust.Name
		if name == "" {
			name = "Unknown"
		}
		entries = append(entries, domain.CommunicationLogEntry{
			CampaignID:    c.CampaignID,
			CustomerID:    cust.CustomerID,
			CustomerEmail: cust.Email,
			CustomerName:  name,
			MessageText:   personalize.Render(input.MessageTemplate, cust),
			Status:        domain.LogPending,
			Attempts:      0,
			MaxAttempts:   defaultMaxAttempts,
		})
	}
	if len(entries) > 0 {
		if err := s.logs.CreateMany(ctx, entries); err != nil {
			return nil, fmt.Errorf("queue communication log: %w", err)
		}
	}
	if err := s.repo.UpdateLaunchState(ctx, c.CampaignID, domain.LaunchLogged); err != nil {
		return nil, fmt.Errorf("mark logged: %w", err)
	}

	if err := s.repo.FinalizeAudienceCount(ctx, c.CampaignID, len(customers)); err != nil {
		return nil, fmt.Errorf("finalize audience count: %w", err)
	}

	logger.Info("campaign launched",
		"campaign_id", c.CampaignID,
		"segment", seg.Name,
		"queued", len(entries))
	return &LaunchResult{
		CampaignID:   c.CampaignID,
		Name:         c.Name,
		SegmentName:  seg.Name,
		MatchedCount: len(customers),
	}, nil
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

// List returns campaign history pages, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]ListItem, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Stats returns the delivery roll-up for a campaign alongside the campaign
// itself. Returns ErrNotFound for an unknown campaign.
func (s *Service) Stats(ctx context.Context, id string) (*domain.Campaign, *domain.CampaignStats, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load campaign stats: %w", err)
	}
	return c, stats, nil
}
