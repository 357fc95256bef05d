package campaign_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/xencrm/crm-server/internal/audience"
	"github.com/xencrm/crm-server/internal/domain"
	"github.com/xencrm/crm-server/internal/pkg/distlock"
	"github.com/xencrm/crm-server/internal/repository/memory"
	"github.com/xencrm/crm-server/internal/rules"
	"github.com/xencrm/crm-server/internal/service/campaign"
	"github.com/xencrm/crm-server/internal/service/segment"
)

// memRepo is an in-memory campaign repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign // keyed by id
	stats     map[string]*domain.CampaignStats
}

func newMemRepo() *memRepo {
	return &memRepo{
		campaigns: make(map[string]*domain.Campaign),
		stats:     make(map[string]*domain.CampaignStats),
	}
}

func (m *memRepo) Create(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.campaigns[cp.CampaignID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, f campaign.ListFilter) ([]campaign.ListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []campaign.ListItem
	for _, c := range m.campaigns {
		out = append(out, campaign.ListItem{Campaign: *c})
	}
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) || f.Limit <= 0 {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (m *memRepo) UpdateLaunchState(_ context.Context, id string, state domain.LaunchState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	c.LaunchState = state
	return nil
}

func (m *memRepo) FinalizeAudienceCount(_ context.Context, id string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	c.TargetAudienceCount = count
	c.LaunchState = domain.LaunchFinalized
	return nil
}

func (m *memRepo) Stats(_ context.Context, id string) (*domain.CampaignStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[id]; ok {
		cp := *s
		return &cp, nil
	}
	return &domain.CampaignStats{}, nil
}

// memLogs collects batch-inserted communication log entries.
type memLogs struct {
	mu      sync.Mutex
	batches [][]domain.CommunicationLogEntry
}

func (m *memLogs) CreateMany(_ context.Context, entries []domain.CommunicationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]domain.CommunicationLogEntry, len(entries))
	copy(cp, entries)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memLogs) all() []domain.CommunicationLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CommunicationLogEntry
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

// memSegments serves canned segments by id.
type memSegments struct {
	segments map[string]*domain.Segment
}

func (m *memSegments) Get(_ context.Context, id string) (*domain.Segment, error) {
	s, ok := m.segments[id]
	if !ok {
		return nil, segment.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func bigSpenderSegment() *domain.Segment {
	return &domain.Segment{
		SegmentID: "seg-1",
		Name:      "Big spenders",
		RuleGroups: []rules.RuleGroup{{
			Operator: rules.LogicAnd,
			Rules: []rules.Rule{
				{Field: "total_spend", Operator: ">", Value: rules.NumberValue(1000)},
				{Field: "status", Operator: "=", Value: rules.StringValue("ACTIVE")},
			},
		}},
	}
}

func testCustomers() []domain.Customer {
	return []domain.Customer{
		{CustomerID: "c1", Name: "Asha", Email: "asha@test.com", TotalSpend: 500, Status: string(domain.CustomerActive)},
		{CustomerID: "c2", Name: "Ben", Email: "ben@test.com", TotalSpend: 1500, Status: string(domain.CustomerActive)},
		{CustomerID: "c3", Name: "", Email: "mystery@test.com", TotalSpend: 2500, Status: string(domain.CustomerActive)},
	}
}

type env struct {
	svc  *campaign.Service
	repo *memRepo
	logs *memLogs
}

func newTestEnv(customers []domain.Customer, segs ...*domain.Segment) env {
	repo := newMemRepo()
	logs := &memLogs{}
	src := &memSegments{segments: make(map[string]*domain.Segment)}
	for _, s := range segs {
		src.segments[s.SegmentID] = s
	}
	resolver := audience.NewResolver(memory.NewCustomerStore(customers))
	return env{
		svc:  campaign.NewService(repo, logs, src, resolver),
		repo: repo,
		logs: logs,
	}
}

func TestLaunch(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	res, err := e.svc.Launch(context.Background(), "ops@xencrm.io", campaign.LaunchInput{
		Name:            "Diwali blast",
		SegmentID:       "seg-1",
		MessageTemplate: "Hi {{name}}, you have spent {{total_spend}} with us!",
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if res.MatchedCount != 2 {
		t.Fatalf("expected 2 matched customers, got %d", res.MatchedCount)
	}
	if res.SegmentName != "Big spenders" {
		t.Fatalf("expected segment name in result, got %q", res.SegmentName)
	}

	c, err := e.svc.Get(context.Background(), res.CampaignID)
	if err != nil {
		t.Fatalf("get after launch: %v", err)
	}
	if c.Status != domain.CampaignActive {
		t.Fatalf("expected ACTIVE campaign, got %s", c.Status)
	}
	if c.LaunchState != domain.LaunchFinalized {
		t.Fatalf("expected FINALIZED launch state, got %s", c.LaunchState)
	}
	if c.TargetAudienceCount != 2 {
		t.Fatalf("expected target audience count 2, got %d", c.TargetAudienceCount)
	}

	entries := e.logs.all()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	for _, en := range entries {
		if en.Status != domain.LogPending || en.Attempts != 0 || en.MaxAttempts != 3 {
			t.Fatalf("expected PENDING/0/3 entry, got %s/%d/%d", en.Status, en.Attempts, en.MaxAttempts)
		}
		if en.CampaignID != res.CampaignID {
			t.Fatalf("entry bound to wrong campaign: %s", en.CampaignID)
		}
	}
}

func TestLaunchPersonalizesEachMessage(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	res, err := e.svc.Launch(context.Background(), "u", campaign.LaunchInput{
		Name:            "Spend recap",
		SegmentID:       "seg-1",
		MessageTemplate: "Hi {{name}}, you spent {{total_spend}}.",
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if res.MatchedCount != 2 {
		t.Fatalf("expected 2 matches, got %d", res.MatchedCount)
	}

	byEmail := make(map[string]domain.CommunicationLogEntry)
	for _, en := range e.logs.all() {
		byEmail[en.CustomerEmail] = en
	}

	ben := byEmail["ben@test.com"]
	if ben.MessageText != "Hi Ben, you spent ₹1,500." {
		t.Fatalf("unexpected rendered message: %q", ben.MessageText)
	}
	if ben.CustomerName != "Ben" {
		t.Fatalf("expected snapshot name Ben, got %q", ben.CustomerName)
	}

	// Blank customer name falls back per field: "Customer" inside the
	// rendered text, "Unknown" on the log snapshot.
	mystery := byEmail["mystery@test.com"]
	if !strings.HasPrefix(mystery.MessageText, "Hi Customer,") {
		t.Fatalf("expected Customer fallback in message, got %q", mystery.MessageText)
	}
	if mystery.CustomerName != "Unknown" {
		t.Fatalf("expected Unknown name snapshot, got %q", mystery.CustomerName)
	}
}

func TestLaunchZeroAudience(t *testing.T) {
	seg := &domain.Segment{
		SegmentID: "seg-empty",
		Name:      "Nobody",
		RuleGroups: []rules.RuleGroup{{
			Operator: rules.LogicAnd,
			Rules:    []rules.Rule{{Field: "total_spend", Operator: ">", Value: rules.NumberValue(1e9)}},
		}},
	}
	e := newTestEnv(testCustomers(), seg)

	res, err := e.svc.Launch(context.Background(), "u", campaign.LaunchInput{
		Name:            "Ghost town",
		SegmentID:       "seg-empty",
		MessageTemplate: "Hello {{name}}",
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if res.MatchedCount != 0 {
		t.Fatalf("expected 0 matches, got %d", res.MatchedCount)
	}
	if len(e.logs.batches) != 0 {
		t.Fatalf("expected no log batch for empty audience, got %d", len(e.logs.batches))
	}

	c, _ := e.svc.Get(context.Background(), res.CampaignID)
	if c.LaunchState != domain.LaunchFinalized {
		t.Fatalf("zero-audience launch should still finalize, got %s", c.LaunchState)
	}
	if c.TargetAudienceCount != 0 {
		t.Fatalf("expected audience count 0, got %d", c.TargetAudienceCount)
	}
}

func TestLaunchValidation(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	cases := []struct {
		name  string
		input campaign.LaunchInput
		want  error
	}{
		{"missing name", campaign.LaunchInput{SegmentID: "seg-1", MessageTemplate: "x"}, campaign.ErrNameRequired},
		{"missing segment", campaign.LaunchInput{Name: "A", MessageTemplate: "x"}, campaign.ErrSegmentRequired},
		{"missing message", campaign.LaunchInput{Name: "A", SegmentID: "seg-1", MessageTemplate: "  "}, campaign.ErrMessageRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.svc.Launch(context.Background(), "u", tc.input); err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLaunchSegmentNotFound(t *testing.T) {
	e := newTestEnv(testCustomers())

	_, err := e.svc.Launch(context.Background(), "u", campaign.LaunchInput{
		Name:            "A",
		SegmentID:       "missing",
		MessageTemplate: "x",
	})
	if err != campaign.ErrSegmentNotFound {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestLaunchResolutionFailureLeavesCreated(t *testing.T) {
	repo := newMemRepo()
	logs := &memLogs{}
	src := &memSegments{segments: map[string]*domain.Segment{"seg-1": bigSpenderSegment()}}
	resolver := audience.NewResolver(failingStore{})
	svc := campaign.NewService(repo, logs, src, resolver)

	_, err := svc.Launch(context.Background(), "u", campaign.LaunchInput{
		Name:            "Doomed",
		SegmentID:       "seg-1",
		MessageTemplate: "x",
	})
	if err == nil {
		t.Fatal("expected resolution failure")
	}
	if len(logs.batches) != 0 {
		t.Fatalf("no log entries should be written on failure, got %d", len(logs.batches))
	}

	// The campaign row survives in CREATED state, marking the failed launch.
	for _, c := range repo.campaigns {
		if c.LaunchState != domain.LaunchCreated {
			t.Fatalf("expected CREATED launch state, got %s", c.LaunchState)
		}
		if c.TargetAudienceCount != 0 {
			t.Fatalf("expected zero audience count, got %d", c.TargetAudienceCount)
		}
	}
}

type failingStore struct{}

func (failingStore) Count(context.Context, audience.Predicate) (int, error) {
	return 0, errors.New("store down")
}

func (failingStore) Query(context.Context, audience.Predicate, int) ([]domain.Customer, error) {
	return nil, errors.New("store down")
}

func TestListPagination(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	for i := 0; i < 3; i++ {
		if _, err := e.svc.Launch(context.Background(), "u", campaign.LaunchInput{
			Name:            "Blast",
			SegmentID:       "seg-1",
			MessageTemplate: "hi",
		}); err != nil {
			t.Fatalf("launch: %v", err)
		}
	}

	page, total, err := e.svc.List(context.Background(), campaign.ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected page of 2 out of 3, got %d of %d", len(page), total)
	}
}

func TestStats(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	res, err := e.svc.Launch(context.Background(), "u", campaign.LaunchInput{
		Name:            "Blast",
		SegmentID:       "seg-1",
		MessageTemplate: "hi",
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	e.repo.stats[res.CampaignID] = &domain.CampaignStats{TotalDelivered: 5, TotalFailed: 1}

	c, stats, err := e.svc.Stats(context.Background(), res.CampaignID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if c.CampaignID != res.CampaignID {
		t.Fatalf("wrong campaign returned: %s", c.CampaignID)
	}
	if stats.TotalDelivered != 5 || stats.TotalFailed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, _, err := e.svc.Stats(context.Background(), "missing"); err != campaign.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// memLock is a single-process stand-in for a distributed lock.
type memLock struct {
	mu   *sync.Mutex
	held map[string]bool
	key  string
}

func (l *memLock) TryAcquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[l.key] {
		return false, nil
	}
	l.held[l.key] = true
	return true, nil
}

func (l *memLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, l.key)
	return nil
}

func TestLaunchLockBlocksConcurrentLaunch(t *testing.T) {
	e := newTestEnv(testCustomers(), bigSpenderSegment())

	var mu sync.Mutex
	held := map[string]bool{}
	e.svc.UseLaunchLock(func(key string) distlock.Lock {
		return &memLock{mu: &mu, held: held, key: key}
	})

	// Simulate another launch holding the per-segment lock.
	blocker := &memLock{mu: &mu, held: held, key: "launch:segment:seg-1"}
	if ok, _ := blocker.TryAcquire(context.Background()); !ok {
		t.Fatal("setup: could not pre-acquire lock")
	}

	_, err := e.svc.Launch(context.Background(), "ops@xencrm.io", campaign.LaunchInput{
		Name:            "Second launch",
		SegmentID:       "seg-1",
		MessageTemplate: "Hi {{name}}",
	})
	if !errors.Is(err, campaign.ErrLaunchInProgress) {
		t.Fatalf("expected ErrLaunchInProgress, got %v", err)
	}
	if len(e.logs.all()) != 0 {
		t.Fatal("blocked launch must not queue messages")
	}

	// After the holder releases, the launch goes through and the lock frees.
	blocker.Release(context.Background())
	if _, err := e.svc.Launch(context.Background(), "ops@xencrm.io", campaign.LaunchInput{
		Name:            "Retry launch",
		SegmentID:       "seg-1",
		MessageTemplate: "Hi {{name}}",
	}); err != nil {
		t.Fatalf("launch after release: %v", err)
	}
	if held["launch:segment:seg-1"] {
		t.Fatal("lock not released after a successful launch")
	}
}
