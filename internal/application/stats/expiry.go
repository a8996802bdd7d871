package stats

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Expiry bucket windows
const (
	expiryWeekDays      = 7
	expiryMonthDays     = 30
	expiryNextMonthDays = 60
	upcomingLimit       = 20
)

// GetExpiryTrackingStats buckets instances by proximity to expiry and
// lists the soonest-expiring ones for the renewals work queue
func (s *StatsService) GetExpiryTrackingStats(ctx context.Context) ExpiryTrackingStats {
	now := s.now()
	weekEnd := now.AddDate(0, 0, expiryWeekDays)
	monthEnd := now.AddDate(0, 0, expiryMonthDays)
	nextMonthEnd := now.AddDate(0, 0, expiryNextMonthDays)
	lastMonthStart := now.AddDate(0, 0, -expiryMonthDays)

	var (
		thisWeek, thisMonth    int64
		nextMonth, expiredLast int64
		upcoming               []ExpiringInstance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		thisWeek = s.absorbCount(gctx, "expiring this week", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesExpiringBetween(ctx, now, weekEnd)
		})
		return nil
	})
	g.Go(func() error {
		thisMonth = s.absorbCount(gctx, "expiring this month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesExpiringBetween(ctx, now, monthEnd)
		})
		return nil
	})
	g.Go(func() error {
		nextMonth = s.absorbCount(gctx, "expiring next month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesExpiringBetween(ctx, monthEnd, nextMonthEnd)
		})
		return nil
	})
	g.Go(func() error {
		expiredLast = s.absorbCount(gctx, "expired last month", func(ctx context.Context) (int64, error) {
			return s.stats.CountInstancesExpiringBetween(ctx, lastMonthStart, now)
		})
		return nil
	})
	g.Go(func() error {
		rows, err := s.stats.FindSoonestExpiring(gctx, now, upcomingLimit)
		if err != nil {
			s.logger.Warn("stats term failed, defaulting to empty",
				zap.String("term", "soonest expiring"), zap.Error(err))
			return nil
		}
		upcoming = make([]ExpiringInstance, len(rows))
		for i, row := range rows {
			upcoming[i] = ExpiringInstance{
				InstanceID:      row.InstanceID.String(),
				ClientName:      row.ClientName,
				PolicyNumber:    row.PolicyNumber,
				ExpiryDate:      row.ExpiryDate,
				DaysUntilExpiry: daysUntil(now, row.ExpiryDate),
			}
		}
		return nil
	})
	_ = g.Wait()

	if upcoming == nil {
		upcoming = []ExpiringInstance{}
	}
	return ExpiryTrackingStats{
		ExpiringThisWeek:  thisWeek,
		ExpiringThisMonth: thisMonth,
		ExpiringNextMonth: nextMonth,
		ExpiredLastMonth:  expiredLast,
		Upcoming:          upcoming,
	}
}

// daysUntil computes whole days from now to expiry via ceiling division
// over the millisecond difference; negative once expiry has passed
func daysUntil(now, expiry time.Time) int {
	const dayMillis = 24 * 60 * 60 * 1000
	diff := expiry.UnixMilli() - now.UnixMilli()
	if diff >= 0 {
		return int((diff + dayMillis - 1) / dayMillis)
	}
	return int(-((-diff + dayMillis - 1) / dayMillis))
}
