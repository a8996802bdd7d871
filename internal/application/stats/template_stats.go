package stats

import (
	"context"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// topProviderLimit bounds the provider breakdown on the template list page
const topProviderLimit = 5

// CalculatePolicyTemplateStats summarizes the template catalog. The
// unfiltered query is memoized under the default cache key; any filter
// bypasses the cache entirely.
func (s *StatsService) CalculatePolicyTemplateStats(ctx context.Context, filter policy.TemplateFilter) PolicyTemplateStats {
	cacheable := filter.IsZero() && s.cache != nil
	if cacheable {
		var cached PolicyTemplateStats
		hit, err := s.cache.Get(ctx, TemplateStatsKey, &cached)
		if err != nil {
			s.logger.Warn("template stats cache read failed", zap.Error(err))
		} else if hit {
			return cached
		}
	}

	now := s.now()

	var (
		totalTemplates, totalInstances   int64
		activeInstances, distinctClients int64
		topProviders                     []policy.ProviderBreakdown
		typeBreakdown                    []policy.TypeBreakdown
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totalTemplates = s.absorbCount(gctx, "total templates", func(ctx context.Context) (int64, error) {
			return s.stats.CountTemplates(ctx, filter)
		})
		return nil
	})
	g.Go(func() error {
		totalInstances = s.absorbCount(gctx, "total instances", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesForTemplates(ctx, filter)
		})
		return nil
	})
	g.Go(func() error {
		activeInstances = s.absorbCount(gctx, "active instances", func(ctx context.Context) (int64, error) {
			return s.stats.CountActiveInstancesForTemplates(ctx, filter, now)
		})
		return nil
	})
	g.Go(func() error {
		distinctClients = s.absorbCount(gctx, "distinct clients", func(ctx context.Context) (int64, error) {
			return s.stats.CountDistinctClientsForTemplates(ctx, filter)
		})
		return nil
	})
	g.Go(func() error {
		rows, err := s.stats.TopProviders(gctx, filter, topProviderLimit)
		if err != nil {
			s.logger.Warn("stats term failed, defaulting to empty",
				zap.String("term", "top providers"), zap.Error(err))
			return nil
		}
		topProviders = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.stats.TypeBreakdown(gctx, filter)
		if err != nil {
			s.logger.Warn("stats term failed, defaulting to empty",
				zap.String("term", "type breakdown"), zap.Error(err))
			return nil
		}
		typeBreakdown = rows
		return nil
	})
	_ = g.Wait()

	result := PolicyTemplateStats{
		TotalTemplates:  totalTemplates,
		TotalInstances:  totalInstances,
		ActiveInstances: activeInstances,
		DistinctClients: distinctClients,
		TopProviders:    toProviderCounts(topProviders),
		TypeBreakdown:   toTypeCounts(typeBreakdown),
	}

	if cacheable {
		if err := s.cache.Set(ctx, TemplateStatsKey, result); err != nil {
			s.logger.Warn("template stats cache write failed", zap.Error(err))
		}
	}
	return result
}

// CalculatePolicyDetailStats summarizes one template for its detail page,
// memoized per template id
func (s *StatsService) CalculatePolicyDetailStats(ctx context.Context, templateID uuid.UUID) PolicyDetailStats {
	key := DetailStatsKey(templateID)
	if s.cache != nil {
		var cached PolicyDetailStats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("detail stats cache read failed",
				zap.String("template_id", templateID.String()), zap.Error(err))
		} else if hit {
			return cached
		}
	}

	detail, err := s.stats.GetTemplateDetail(ctx, templateID, s.now())
	if err != nil {
		s.logger.Warn("template detail stats failed, returning zeros",
			zap.String("template_id", templateID.String()),
			zap.Error(err),
		)
		return PolicyDetailStats{TemplateID: templateID.String()}
	}

	result := PolicyDetailStats{
		TemplateID:        templateID.String(),
		ClientCount:       detail.ClientCount,
		ActiveInstances:   detail.ActiveInstances,
		ExpiredInstances:  detail.ExpiredInstances,
		TotalPremium:      toFloat64(detail.TotalPremium),
		AveragePremium:    toFloat64(detail.AveragePremium),
		TotalCommission:   toFloat64(detail.TotalCommission),
		ExpiringThisMonth: detail.ExpiringThisMonth,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("detail stats cache write failed",
				zap.String("template_id", templateID.String()), zap.Error(err))
		}
	}
	return result
}

func toProviderCounts(rows []policy.ProviderBreakdown) []ProviderCount {
	counts := make([]ProviderCount, len(rows))
	for i, row := range rows {
		counts[i] = ProviderCount{
			Provider:      row.Provider,
			TemplateCount: row.TemplateCount,
			InstanceCount: row.InstanceCount,
		}
	}
	return counts
}

func toTypeCounts(rows []policy.TypeBreakdown) []TypeCount {
	counts := make([]TypeCount, len(rows))
	for i, row := range rows {
		counts[i] = TypeCount{
			PolicyType:    string(row.Type),
			TemplateCount: row.TemplateCount,
			InstanceCount: row.InstanceCount,
		}
	}
	return counts
}
