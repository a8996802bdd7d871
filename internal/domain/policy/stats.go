package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Read models for the statistics layer. These are CQRS-style projections
// computed on demand and never persisted.

// ProviderBreakdown counts templates and instances per provider
type ProviderBreakdown struct {
	Provider      string
	TemplateCount int64
	InstanceCount int64
}

// TypeBreakdown counts templates and instances per policy type
type TypeBreakdown struct {
	Type          PolicyType
	TemplateCount int64
	InstanceCount int64
}

// TemplateDetailAggregate holds the per-template totals backing the
// template detail page
type TemplateDetailAggregate struct {
	TemplateID        uuid.UUID
	ClientCount       int64
	ActiveInstances   int64
	ExpiredInstances  int64
	TotalPremium      decimal.Decimal
	AveragePremium    decimal.Decimal
	TotalCommission   decimal.Decimal
	ExpiringThisMonth int64
}

// ExpiringInstanceRow is one soonest-expiring instance with the joined
// client and template identity needed for reminder-style listings
type ExpiringInstanceRow struct {
	InstanceID   uuid.UUID
	ClientName   string
	PolicyNumber string
	ExpiryDate   time.Time
}

// TemplateVolumeRow ranks a template by instance count with its revenue
type TemplateVolumeRow struct {
	TemplateID    uuid.UUID
	PolicyNumber  string
	Provider      string
	InstanceCount int64
	TotalRevenue  decimal.Decimal
}

// ProviderPerformanceRow holds the per-provider aggregate counts; the
// derived ratios are computed by the statistics service
type ProviderPerformanceRow struct {
	Provider        string
	TemplateCount   int64
	InstanceCount   int64
	TotalRevenue    decimal.Decimal
	ActiveInstances int64
}

// TypePerformanceRow holds the per-type aggregate counts. RecentInstances
// counts instances created inside the trailing growth window.
type TypePerformanceRow struct {
	Type            PolicyType
	TemplateCount   int64
	InstanceCount   int64
	TotalRevenue    decimal.Decimal
	RecentInstances int64
}

// StatsRepository is the aggregate query surface the statistics service
// reads from. All time comparisons take the reference clock explicitly so
// the service stays a pure function of data plus clock.
type StatsRepository interface {
	// Template-level counts
	CountTemplates(ctx context.Context, filter TemplateFilter) (int64, error)
	CountInstancesForTemplates(ctx context.Context, filter TemplateFilter) (int64, error)
	CountActiveInstancesForTemplates(ctx context.Context, filter TemplateFilter, now time.Time) (int64, error)
	CountDistinctClientsForTemplates(ctx context.Context, filter TemplateFilter) (int64, error)
	TopProviders(ctx context.Context, filter TemplateFilter, limit int) ([]ProviderBreakdown, error)
	TypeBreakdown(ctx context.Context, filter TemplateFilter) ([]TypeBreakdown, error)

	// Instance-level counts and sums
	CountInstances(ctx context.Context) (int64, error)
	CountInForceInstances(ctx context.Context, now time.Time) (int64, error)
	CountInstancesCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountInstancesExpiringBetween(ctx context.Context, from, to time.Time) (int64, error)
	SumPremium(ctx context.Context) (decimal.Decimal, error)
	SumCommission(ctx context.Context) (decimal.Decimal, error)
	SumCommissionCreatedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)

	// Detail and listing projections
	GetTemplateDetail(ctx context.Context, templateID uuid.UUID, now time.Time) (*TemplateDetailAggregate, error)
	FindSoonestExpiring(ctx context.Context, now time.Time, limit int) ([]ExpiringInstanceRow, error)
	TopTemplatesByInstanceCount(ctx context.Context, limit int) ([]TemplateVolumeRow, error)

	// Retention cohort: clients whose earliest instance predates the
	// cutoff, and the subset of those still holding an in-force instance
	CountVeteranClients(ctx context.Context, cutoff time.Time) (int64, error)
	CountRetainedClients(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)

	// Performance groupings
	ProviderPerformance(ctx context.Context, now time.Time) ([]ProviderPerformanceRow, error)
	TypePerformance(ctx context.Context, recentSince time.Time) ([]TypePerformanceRow, error)
}
