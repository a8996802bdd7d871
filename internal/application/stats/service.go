package stats

import (
	"context"
	"time"

	"github.com/agency/backoffice/internal/domain/crm"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatsService computes read-only derived views over policy and CRM data
// for dashboards and detail pages. Every public method absorbs data-access
// faults: failed terms resolve to zero with a warning log, and no method
// ever returns an error. Activity is derived from expiry-date comparison
// uniformly; the stored instance status is treated as a cached projection.
type StatsService struct {
	stats   policy.StatsRepository
	leads   crm.LeadRepository
	clients crm.ClientRepository
	cache   StatsCache
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a StatsService
type Option func(*StatsService)

// WithClock overrides the reference clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(s *StatsService) {
		s.now = now
	}
}

// NewStatsService creates a statistics service. cache may be nil, in which
// case every call recomputes.
func NewStatsService(
	statsRepo policy.StatsRepository,
	leadRepo crm.LeadRepository,
	clientRepo crm.ClientRepository,
	cache StatsCache,
	logger *zap.Logger,
	opts ...Option,
) *StatsService {
	s := &StatsService{
		stats:   statsRepo,
		leads:   leadRepo,
		clients: clientRepo,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// absorbCount runs a count query, resolving failures to zero
func (s *StatsService) absorbCount(ctx context.Context, term string, query func(context.Context) (int64, error)) int64 {
	v, err := query(ctx)
	if err != nil {
		s.logger.Warn("stats term failed, defaulting to zero",
			zap.String("term", term),
			zap.Error(err),
		)
		return 0
	}
	return v
}

// absorbSum runs an aggregate sum query, resolving failures to zero
func (s *StatsService) absorbSum(ctx context.Context, term string, query func(context.Context) (decimal.Decimal, error)) decimal.Decimal {
	v, err := query(ctx)
	if err != nil {
		s.logger.Warn("stats term failed, defaulting to zero",
			zap.String("term", term),
			zap.Error(err),
		)
		return decimal.Zero
	}
	return v
}

// monthStart returns midnight on the first day of t's calendar month
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
