package stats

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CalculateDashboardStats returns the landing-page totals and their
// month-over-month deltas. Sub-queries fan out concurrently and are
// individually fault-absorbed, so a partial outage degrades terms to
// zero instead of failing the page.
func (s *StatsService) CalculateDashboardStats(ctx context.Context) DashboardStats {
	now := s.now()
	curStart := monthStart(now)
	prevStart := curStart.AddDate(0, -1, 0)

	var (
		totalLeads, totalClients, activePolicies int64
		curLeads, prevLeads                      int64
		curClients, prevClients                  int64
		curPolicies, prevPolicies                int64
		curCommission, prevCommission            decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totalLeads = s.absorbCount(gctx, "total leads", s.leads.Count)
		return nil
	})
	g.Go(func() error {
		totalClients = s.absorbCount(gctx, "total clients", s.clients.Count)
		return nil
	})
	g.Go(func() error {
		activePolicies = s.absorbCount(gctx, "active policies", func(ctx context.Context) (int64, error) {
			return s.stats.CountInForceInstances(ctx, now)
		})
		return nil
	})
	g.Go(func() error {
		curLeads = s.absorbCount(gctx, "leads this month", func(ctx context.Context) (int64, error) {
			return s.leads.CountCreatedBetween(ctx, curStart, now)
		})
		return nil
	})
	g.Go(func() error {
		prevLeads = s.absorbCount(gctx, "leads last month", func(ctx context.Context) (int64, error) {
			return s.leads.CountCreatedBetween(ctx, prevStart, curStart)
		})
		return nil
	})
	g.Go(func() error {
		curClients = s.absorbCount(gctx, "clients this month", func(ctx context.Context) (int64, error) {
			return s.clients.CountCreatedBetween(ctx, curStart, now)
		})
		return nil
	})
	g.Go(func() error {
		prevClients = s.absorbCount(gctx, "clients last month", func(ctx context.Context) (int64, error) {
			return s.clients.CountCreatedBetween(ctx, prevStart, curStart)
		})
		return nil
	})
	g.Go(func() error {
		curPolicies = s.absorbCount(gctx, "policies this month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesCreatedBetween(ctx, curStart, now)
		})
		return nil
	})
	g.Go(func() error {
		prevPolicies = s.absorbCount(gctx, "policies last month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesCreatedBetween(ctx, prevStart, curStart)
		})
		return nil
	})
	g.Go(func() error {
		curCommission = s.absorbSum(gctx, "commission this month", func(ctx context.Context) (decimal.Decimal, error) {
			return s.stats.SumCommissionCreatedBetween(ctx, curStart, now)
		})
		return nil
	})
	g.Go(func() error {
		prevCommission = s.absorbSum(gctx, "commission last month", func(ctx context.Context) (decimal.Decimal, error) {
			return s.stats.SumCommissionCreatedBetween(ctx, prevStart, curStart)
		})
		return nil
	})
	_ = g.Wait()

	return DashboardStats{
		TotalLeads:        totalLeads,
		TotalClients:      totalClients,
		ActivePolicies:    activePolicies,
		MonthlyCommission: toFloat64(curCommission),
		LeadsChange:       percentChange(float64(curLeads), float64(prevLeads)),
		ClientsChange:     percentChange(float64(curClients), float64(prevClients)),
		PoliciesChange:    percentChange(float64(curPolicies), float64(prevPolicies)),
		CommissionChange:  percentChange(toFloat64(curCommission), toFloat64(prevCommission)),
	}
}
