package segment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/cache"
	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/pkg/logger"
	"github.com/xencrm/crm-server/internal/rules"
)

// Service implements segment business logic. It coordinates between the
// repository layer, the audience resolver, and the preview-count cache.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo      Repository
	campaigns CampaignLookup
	resolver  *audience.Resolver
	previews  *cache.PreviewCache
}

// NewService creates a segment service. previews may be nil-backed; the
// cache is a no-op in that case.
func NewService(repo Repository, campaigns CampaignLookup, resolver *audience.Resolver, previews *cache.PreviewCache) *Service {
	return &Service{repo: repo, campaigns: campaigns, resolver: resolver, previews: previews}
}

// CreateInput holds the fields for creating or updating a segment.
type CreateInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	RuleGroups  []rules.RuleGroup `json:"rules"`
}

func (in *CreateInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	if len(in.RuleGroups) == 0 {
		return ErrNoRuleGroups
	}
	return rules.Validate(in.RuleGroups)
}

// Create validates and persists a new segment. The preview audience count
// is resolved at creation time; a resolution failure is logged and stored
// as zero rather than failing the create.
func (s *Service) Create(ctx context.Context, createdBy string, input CreateInput) (*domain.Segment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seg := &domain.Segment{
		SegmentID:    uuid.New().String(),
		Name:         input.Name,
		Description:  input.Description,
		RuleGroups:   input.RuleGroups,
		PreviewCount: s.previewCount(ctx, input.RuleGroups),
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, seg); err != nil {
		return nil, fmt.Errorf("create segment: %w", err)
	}
	return seg, nil
}

// Get returns a single segment.
func (s *Service) Get(ctx context.Context, id string) (*domain.Segment, error) {
	return s.repo.Get(ctx, id)
}

// List returns all segments, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Segment, error) {
	return s.repo.List(ctx)
}

// Update rewrites a segment's name, description, and rules, and refreshes
// its preview count. Returns ErrNotFound if the segment doesn't exist.
func (s *Service) Update(ctx context.Context, id string, input CreateInput) (*domain.Segment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	seg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	seg.Name = input.Name
	seg.Description = input.Description
	seg.RuleGroups = input.RuleGroups
	seg.PreviewCount = s.previewCount(ctx, input.RuleGroups)
	seg.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, seg); err != nil {
		return nil, fmt.Errorf("update segment: %w", err)
	}
	return seg, nil
}

// Delete removes a segment. If any campaigns reference it the delete is
// refused with a ConflictError listing them.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	refs, err := s.campaigns.FindBySegment(ctx, id)
	if err != nil {
		return fmt.Errorf("check campaign references: %w", err)
	}
	if len(refs) > 0 {
		return &ConflictError{Campaigns: refs}
	}

	return s.repo.Delete(ctx, id)
}

// Preview resolves the audience count for an ad-hoc rule set without
// persisting anything. Unlike create/update, resolution errors here are
// returned to the caller.
func (s *Service) Preview(ctx context.Context, groups []rules.RuleGroup) (int, error) {
	if len(groups) == 0 {
		return 0, ErrNoRuleGroups
	}
	if err := rules.Validate(groups); err != nil {
		return 0, err
	}

	key := rules.Hash(groups)
	if n, ok := s.previews.Get(ctx, key); ok {
		return n, nil
	}

	n, err := s.resolver.Count(ctx, groups)
	if err != nil {
		return 0, err
	}
	s.previews.Put(ctx, key, n)
	return n, nil
}

// Sample returns up to limit matching customers for an ad-hoc rule set,
// highest spenders first.
func (s *Service) Sample(ctx context.Context, groups []rules.RuleGroup, limit int) ([]domain.Customer, error) {
	if len(groups) == 0 {
		return nil, ErrNoRuleGroups
	}
	if err := rules.Validate(groups); err != nil {
		return nil, err
	}

	return s.resolver.Sample(ctx, groups, limit)
}

// previewCount resolves the audience count for persisting on a segment.
// Failures degrade to zero so a transient resolver outage never blocks a
// save.
func (s *Service) previewCount(ctx context.Context, groups []rules.RuleGroup) int {
	key := rules.Hash(groups)
	if n, ok := s.previews.Get(ctx, key); ok {
		return n
	}

	n, err := s.resolver.Count(ctx, groups)
	if err != nil {
		logger.Warn("preview count failed", "error", err)
		return 0
	}
	s.previews.Put(ctx, key, n)
	return n
}
