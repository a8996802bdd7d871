package stats

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agency/backoffice/internal/domain/crm"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockStatsRepository is a mock implementation of policy.StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) CountTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountInstancesForTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountActiveInstancesForTemplates(ctx context.Context, filter policy.TemplateFilter, now time.Time) (int64, error) {
	args := m.Called(ctx, filter, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountDistinctClientsForTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) TopProviders(ctx context.Context, filter policy.TemplateFilter, limit int) ([]policy.ProviderBreakdown, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.ProviderBreakdown), args.Error(1)
}

func (m *MockStatsRepository) TypeBreakdown(ctx context.Context, filter policy.TemplateFilter) ([]policy.TypeBreakdown, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.TypeBreakdown), args.Error(1)
}

func (m *MockStatsRepository) CountInstances(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountInForceInstances(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountInstancesCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountInstancesExpiringBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) SumPremium(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockStatsRepository) SumCommission(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockStatsRepository) SumCommissionCreatedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockStatsRepository) GetTemplateDetail(ctx context.Context, templateID uuid.UUID, now time.Time) (*policy.TemplateDetailAggregate, error) {
	args := m.Called(ctx, templateID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*policy.TemplateDetailAggregate), args.Error(1)
}

func (m *MockStatsRepository) FindSoonestExpiring(ctx context.Context, now time.Time, limit int) ([]policy.ExpiringInstanceRow, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.ExpiringInstanceRow), args.Error(1)
}

func (m *MockStatsRepository) TopTemplatesByInstanceCount(ctx context.Context, limit int) ([]policy.TemplateVolumeRow, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.TemplateVolumeRow), args.Error(1)
}

func (m *MockStatsRepository) CountVeteranClients(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) CountRetainedClients(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	args := m.Called(ctx, cutoff, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsRepository) ProviderPerformance(ctx context.Context, now time.Time) ([]policy.ProviderPerformanceRow, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.ProviderPerformanceRow), args.Error(1)
}

func (m *MockStatsRepository) TypePerformance(ctx context.Context, recentSince time.Time) ([]policy.TypePerformanceRow, error) {
	args := m.Called(ctx, recentSince)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]policy.TypePerformanceRow), args.Error(1)
}

var _ policy.StatsRepository = (*MockStatsRepository)(nil)

// MockLeadRepository is a mock implementation of crm.LeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Lead, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]crm.Lead), args.Error(1)
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *crm.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLeadRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLeadRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

var _ crm.LeadRepository = (*MockLeadRepository)(nil)

// MockClientRepository is a mock implementation of crm.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Client, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]crm.Client), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, client *crm.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClientRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

var _ crm.ClientRepository = (*MockClientRepository)(nil)

// =============================================================================
// Fake Cache
// =============================================================================

// fakeStatsCache stores JSON-encoded values in memory and counts hits and
// misses, mirroring how the real cache round-trips values
type fakeStatsCache struct {
	entries map[string][]byte
	hits    int
	misses  int
	sets    int
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{entries: make(map[string][]byte)}
}

func (c *fakeStatsCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		c.misses++
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeStatsCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.sets++
	c.entries[key] = raw
	return nil
}

func (c *fakeStatsCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

var _ StatsCache = (*fakeStatsCache)(nil)
