package stats

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Trailing windows for the approximation metrics. The renewal and growth
// rates are deliberate creation-count proxies, not true cohort tracking;
// dashboards depend on these exact formulas.
const (
	retentionYears   = 1
	renewalMonths    = 6
	growthWindowDays = 90
	topTemplateLimit = 10
)

// GetSystemLevelMetrics returns the agency-wide financial, retention and
// growth summary
func (s *StatsService) GetSystemLevelMetrics(ctx context.Context) SystemLevelMetrics {
	now := s.now()
	retentionCutoff := now.AddDate(-retentionYears, 0, 0)
	renewalStart := now.AddDate(0, -renewalMonths, 0)
	curStart := monthStart(now)
	prevStart := curStart.AddDate(0, -1, 0)

	var (
		totalRevenue, totalCommission  decimal.Decimal
		instanceCount                  int64
		veteranClients, retained       int64
		expiringTrailing, newTrailing  int64
		createdThisMonth, createdPrior int64
		topTemplates                   []TemplateVolume
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totalRevenue = s.absorbSum(gctx, "total revenue", s.stats.SumPremium)
		return nil
	})
	g.Go(func() error {
		totalCommission = s.absorbSum(gctx, "total commission", s.stats.SumCommission)
		return nil
	})
	g.Go(func() error {
		instanceCount = s.absorbCount(gctx, "instance count", s.stats.CountInstances)
		return nil
	})
	g.Go(func() error {
		veteranClients = s.absorbCount(gctx, "veteran clients", func(ctx context.Context) (int64, error) {
			return s.stats.CountVeteranClients(ctx, retentionCutoff)
		})
		return nil
	})
	g.Go(func() error {
		retained = s.absorbCount(gctx, "retained clients", func(ctx context.Context) (int64, error) {
			return s.stats.CountRetainedClients(ctx, retentionCutoff, now)
		})
		return nil
	})
	g.Go(func() error {
		expiringTrailing = s.absorbCount(gctx, "expiring trailing window", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesExpiringBetween(ctx, renewalStart, now)
		})
		return nil
	})
	g.Go(func() error {
		newTrailing = s.absorbCount(gctx, "created trailing window", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesCreatedBetween(ctx, renewalStart, now)
		})
		return nil
	})
	g.Go(func() error {
		createdThisMonth = s.absorbCount(gctx, "created this month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesCreatedBetween(ctx, curStart, now)
		})
		return nil
	})
	g.Go(func() error {
		createdPrior = s.absorbCount(gctx, "created last month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesCreatedBetween(ctx, prevStart, curStart)
		})
		return nil
	})
	g.Go(func() error {
		rows, err := s.stats.TopTemplatesByInstanceCount(gctx, topTemplateLimit)
		if err != nil {
			s.logger.Warn("stats term failed, defaulting to empty",
				zap.String("term", "top templates"), zap.Error(err))
			return nil
		}
		topTemplates = make([]TemplateVolume, len(rows))
		for i, row := range rows {
			topTemplates[i] = TemplateVolume{
				TemplateID:    row.TemplateID.String(),
				PolicyNumber:  row.PolicyNumber,
				Provider:      row.Provider,
				InstanceCount: row.InstanceCount,
				TotalRevenue:  toFloat64(row.TotalRevenue),
				AverageValue:  safeDiv(toFloat64(row.TotalRevenue), float64(row.InstanceCount)),
			}
		}
		return nil
	})
	_ = g.Wait()

	if topTemplates == nil {
		topTemplates = []TemplateVolume{}
	}
	return SystemLevelMetrics{
		TotalRevenue:         toFloat64(totalRevenue),
		TotalCommission:      toFloat64(totalCommission),
		AverageInstanceValue: safeDiv(toFloat64(totalRevenue), float64(instanceCount)),
		ClientRetentionRate:  ratioPercent(float64(retained), float64(veteranClients)),
		PolicyRenewalRate:    ratioPercent(float64(expiringTrailing), float64(newTrailing)),
		MonthlyGrowthRate:    percentChange(float64(createdThisMonth), float64(createdPrior)),
		TopTemplates:         topTemplates,
	}
}

// GetProviderPerformanceMetrics returns per-provider aggregates ordered
// by total revenue, highest first
func (s *StatsService) GetProviderPerformanceMetrics(ctx context.Context) []ProviderPerformanceMetrics {
	now := s.now()
	rows, err := s.stats.ProviderPerformance(ctx, now)
	if err != nil {
		s.logger.Warn("provider performance failed, returning empty", zap.Error(err))
		return []ProviderPerformanceMetrics{}
	}

	metrics := make([]ProviderPerformanceMetrics, len(rows))
	for i, row := range rows {
		revenue := toFloat64(row.TotalRevenue)
		expired := row.InstanceCount - row.ActiveInstances
		metrics[i] = ProviderPerformanceMetrics{
			Provider:             row.Provider,
			TemplateCount:        row.TemplateCount,
			InstanceCount:        row.InstanceCount,
			TotalRevenue:         revenue,
			AverageInstanceValue: safeDiv(revenue, float64(row.InstanceCount)),
			ActiveRatio:          ratioPercent(float64(row.ActiveInstances), float64(row.InstanceCount)),
			ExpiryRate:           ratioPercent(float64(expired), float64(row.InstanceCount)),
		}
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].TotalRevenue > metrics[j].TotalRevenue
	})
	return metrics
}

// GetPolicyTypePerformanceMetrics returns per-type aggregates ranked by
// instance count. The growth rate is the naive trailing-window share:
// instances created inside the window divided by all instances of the type.
func (s *StatsService) GetPolicyTypePerformanceMetrics(ctx context.Context) []PolicyTypePerformanceMetrics {
	recentSince := s.now().AddDate(0, 0, -growthWindowDays)
	rows, err := s.stats.TypePerformance(ctx, recentSince)
	if err != nil {
		s.logger.Warn("type performance failed, returning empty", zap.Error(err))
		return []PolicyTypePerformanceMetrics{}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].InstanceCount > rows[j].InstanceCount
	})

	metrics := make([]PolicyTypePerformanceMetrics, len(rows))
	for i, row := range rows {
		revenue := toFloat64(row.TotalRevenue)
		metrics[i] = PolicyTypePerformanceMetrics{
			PolicyType:           string(row.Type),
			TemplateCount:        row.TemplateCount,
			InstanceCount:        row.InstanceCount,
			TotalRevenue:         revenue,
			AverageInstanceValue: safeDiv(revenue, float64(row.InstanceCount)),
			PopularityRank:       i + 1,
			GrowthRate:           ratioPercent(float64(row.RecentInstances), float64(row.InstanceCount)),
		}
	}
	return metrics
}
