package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStatsRepository implements StatsRepository using GORM. All
// aggregates are computed in SQL; the statistics service combines them
// into the dashboard projections.
type GormStatsRepository struct {
	db *gorm.DB
}

// NewGormStatsRepository creates a new GormStatsRepository
func NewGormStatsRepository(db *gorm.DB) *GormStatsRepository {
	return &GormStatsRepository{db: db}
}

// CountTemplates counts templates matching the filter
func (r *GormStatsRepository) CountTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	var count int64
	query := applyTemplateFilter(r.db.WithContext(ctx).Model(&models.PolicyTemplateModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountInstancesForTemplates counts instances whose template matches the filter
func (r *GormStatsRepository) CountInstancesForTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	var count int64
	query := applyTemplateFilter(r.instancesJoined(ctx), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountActiveInstancesForTemplates counts in-force instances whose
// template matches the filter. Activity is derived from the coverage
// window, not the stored status.
func (r *GormStatsRepository) CountActiveInstancesForTemplates(ctx context.Context, filter policy.TemplateFilter, now time.Time) (int64, error) {
	var count int64
	query := applyTemplateFilter(r.instancesJoined(ctx), filter).
		Where("policy_instances.start_date <= ? AND policy_instances.expiry_date > ?", now, now)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountDistinctClientsForTemplates counts distinct clients holding an
// instance of a template matching the filter
func (r *GormStatsRepository) CountDistinctClientsForTemplates(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	var count int64
	query := applyTemplateFilter(r.instancesJoined(ctx), filter).
		Distinct("policy_instances.client_id")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TopProviders returns providers ranked by instance count
func (r *GormStatsRepository) TopProviders(ctx context.Context, filter policy.TemplateFilter, limit int) ([]policy.ProviderBreakdown, error) {
	type providerResult struct {
		Provider      string
		TemplateCount int64
		InstanceCount int64
	}

	var results []providerResult
	query := applyTemplateFilter(r.templatesWithInstances(ctx), filter).
		Select(`
			policy_templates.provider,
			COUNT(DISTINCT policy_templates.id) as template_count,
			COUNT(policy_instances.id) as instance_count
		`).
		Group("policy_templates.provider").
		Order("instance_count DESC, policy_templates.provider ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	breakdown := make([]policy.ProviderBreakdown, len(results))
	for i, row := range results {
		breakdown[i] = policy.ProviderBreakdown{
			Provider:      row.Provider,
			TemplateCount: row.TemplateCount,
			InstanceCount: row.InstanceCount,
		}
	}
	return breakdown, nil
}

// TypeBreakdown returns template and instance counts grouped by policy type
func (r *GormStatsRepository) TypeBreakdown(ctx context.Context, filter policy.TemplateFilter) ([]policy.TypeBreakdown, error) {
	type typeResult struct {
		Type          string
		TemplateCount int64
		InstanceCount int64
	}

	var results []typeResult
	query := applyTemplateFilter(r.templatesWithInstances(ctx), filter).
		Select(`
			policy_templates.type,
			COUNT(DISTINCT policy_templates.id) as template_count,
			COUNT(policy_instances.id) as instance_count
		`).
		Group("policy_templates.type").
		Order("instance_count DESC, policy_templates.type ASC")

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	breakdown := make([]policy.TypeBreakdown, len(results))
	for i, row := range results {
		breakdown[i] = policy.TypeBreakdown{
			Type:          policy.PolicyType(row.Type),
			TemplateCount: row.TemplateCount,
			InstanceCount: row.InstanceCount,
		}
	}
	return breakdown, nil
}

// CountInstances counts all instances
func (r *GormStatsRepository) CountInstances(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountInForceInstances counts instances whose coverage window contains now
func (r *GormStatsRepository) CountInForceInstances(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Where("start_date <= ? AND expiry_date > ?", now, now).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountInstancesCreatedBetween counts instances created in [from, to)
func (r *GormStatsRepository) CountInstancesCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountInstancesExpiringBetween counts instances expiring in (from, to]
func (r *GormStatsRepository) CountInstancesExpiringBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Where("expiry_date > ? AND expiry_date <= ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumPremium sums the premium across all instances
func (r *GormStatsRepository) SumPremium(ctx context.Context) (decimal.Decimal, error) {
	return r.sumInstanceColumn(ctx, "premium", nil)
}

// SumCommission sums the commission across all instances
func (r *GormStatsRepository) SumCommission(ctx context.Context) (decimal.Decimal, error) {
	return r.sumInstanceColumn(ctx, "commission", nil)
}

// SumCommissionCreatedBetween sums the commission of instances created in [from, to)
func (r *GormStatsRepository) SumCommissionCreatedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	window := func(query *gorm.DB) *gorm.DB {
		return query.Where("created_at >= ? AND created_at < ?", from, to)
	}
	return r.sumInstanceColumn(ctx, "commission", window)
}

// GetTemplateDetail computes the per-template aggregate backing the
// template detail page. Returns shared.ErrNotFound when the template
// does not exist.
func (r *GormStatsRepository) GetTemplateDetail(ctx context.Context, templateID uuid.UUID, now time.Time) (*policy.TemplateDetailAggregate, error) {
	var templateModel models.PolicyTemplateModel
	if err := r.db.WithContext(ctx).First(&templateModel, "id = ?", templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	type detailResult struct {
		ClientCount       int64
		ActiveInstances   int64
		ExpiredInstances  int64
		TotalPremium      decimal.Decimal
		TotalCommission   decimal.Decimal
		ExpiringThisMonth int64
		InstanceCount     int64
	}

	monthEnd := now.AddDate(0, 1, 0)

	var result detailResult
	err := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Select(`
			COUNT(DISTINCT client_id) as client_count,
			COALESCE(SUM(CASE WHEN start_date <= ? AND expiry_date > ? THEN 1 ELSE 0 END), 0) as active_instances,
			COALESCE(SUM(CASE WHEN expiry_date <= ? THEN 1 ELSE 0 END), 0) as expired_instances,
			COALESCE(SUM(premium), 0) as total_premium,
			COALESCE(SUM(commission), 0) as total_commission,
			COALESCE(SUM(CASE WHEN expiry_date > ? AND expiry_date <= ? THEN 1 ELSE 0 END), 0) as expiring_this_month,
			COUNT(id) as instance_count
		`, now, now, now, now, monthEnd).
		Where("template_id = ?", templateID).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	averagePremium := decimal.Zero
	if result.InstanceCount > 0 {
		averagePremium = result.TotalPremium.
			Div(decimal.NewFromInt(result.InstanceCount)).
			Round(2)
	}

	return &policy.TemplateDetailAggregate{
		TemplateID:        templateID,
		ClientCount:       result.ClientCount,
		ActiveInstances:   result.ActiveInstances,
		ExpiredInstances:  result.ExpiredInstances,
		TotalPremium:      result.TotalPremium,
		AveragePremium:    averagePremium,
		TotalCommission:   result.TotalCommission,
		ExpiringThisMonth: result.ExpiringThisMonth,
	}, nil
}

// FindSoonestExpiring returns the soonest-expiring in-force instances
// joined with client and template identity
func (r *GormStatsRepository) FindSoonestExpiring(ctx context.Context, now time.Time, limit int) ([]policy.ExpiringInstanceRow, error) {
	type expiringResult struct {
		InstanceID   uuid.UUID
		ClientName   string
		PolicyNumber string
		ExpiryDate   time.Time
	}

	var results []expiringResult
	query := r.db.WithContext(ctx).
		Table("policy_instances").
		Select(`
			policy_instances.id as instance_id,
			COALESCE(clients.first_name || ' ' || clients.last_name, '') as client_name,
			policy_templates.policy_number,
			policy_instances.expiry_date
		`).
		Joins("JOIN policy_templates ON policy_templates.id = policy_instances.template_id").
		Joins("LEFT JOIN clients ON clients.id = policy_instances.client_id").
		Where("policy_instances.expiry_date > ?", now).
		Order("policy_instances.expiry_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	rows := make([]policy.ExpiringInstanceRow, len(results))
	for i, row := range results {
		rows[i] = policy.ExpiringInstanceRow{
			InstanceID:   row.InstanceID,
			ClientName:   row.ClientName,
			PolicyNumber: row.PolicyNumber,
			ExpiryDate:   row.ExpiryDate,
		}
	}
	return rows, nil
}

// TopTemplatesByInstanceCount ranks templates by how many instances they have
func (r *GormStatsRepository) TopTemplatesByInstanceCount(ctx context.Context, limit int) ([]policy.TemplateVolumeRow, error) {
	type volumeResult struct {
		TemplateID    uuid.UUID
		PolicyNumber  string
		Provider      string
		InstanceCount int64
		TotalRevenue  decimal.Decimal
	}

	var results []volumeResult
	query := r.db.WithContext(ctx).
		Table("policy_instances").
		Select(`
			policy_templates.id as template_id,
			policy_templates.policy_number,
			policy_templates.provider,
			COUNT(policy_instances.id) as instance_count,
			COALESCE(SUM(policy_instances.premium), 0) as total_revenue
		`).
		Joins("JOIN policy_templates ON policy_templates.id = policy_instances.template_id").
		Group("policy_templates.id, policy_templates.policy_number, policy_templates.provider").
		Order("instance_count DESC, policy_templates.policy_number ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	rows := make([]policy.TemplateVolumeRow, len(results))
	for i, row := range results {
		rows[i] = policy.TemplateVolumeRow{
			TemplateID:    row.TemplateID,
			PolicyNumber:  row.PolicyNumber,
			Provider:      row.Provider,
			InstanceCount: row.InstanceCount,
			TotalRevenue:  row.TotalRevenue,
		}
	}
	return rows, nil
}

// CountVeteranClients counts clients whose earliest instance predates the cutoff
func (r *GormStatsRepository) CountVeteranClients(ctx context.Context, cutoff time.Time) (int64, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Select("client_id").
		Group("client_id").
		Having("MIN(created_at) < ?", cutoff)

	var count int64
	if err := r.db.WithContext(ctx).
		Table("(?) as veterans", sub).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRetainedClients counts veteran clients still holding an in-force instance
func (r *GormStatsRepository) CountRetainedClients(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	sub := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Select("client_id").
		Group("client_id").
		Having("MIN(created_at) < ?", cutoff).
		Having("SUM(CASE WHEN start_date <= ? AND expiry_date > ? THEN 1 ELSE 0 END) > 0", now, now)

	var count int64
	if err := r.db.WithContext(ctx).
		Table("(?) as retained", sub).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ProviderPerformance returns per-provider aggregates ordered by revenue
func (r *GormStatsRepository) ProviderPerformance(ctx context.Context, now time.Time) ([]policy.ProviderPerformanceRow, error) {
	type performanceResult struct {
		Provider        string
		TemplateCount   int64
		InstanceCount   int64
		TotalRevenue    decimal.Decimal
		ActiveInstances int64
	}

	var results []performanceResult
	err := r.templatesWithInstances(ctx).
		Select(`
			policy_templates.provider,
			COUNT(DISTINCT policy_templates.id) as template_count,
			COUNT(policy_instances.id) as instance_count,
			COALESCE(SUM(policy_instances.premium), 0) as total_revenue,
			COALESCE(SUM(CASE WHEN policy_instances.start_date <= ? AND policy_instances.expiry_date > ? THEN 1 ELSE 0 END), 0) as active_instances
		`, now, now).
		Group("policy_templates.provider").
		Order("total_revenue DESC, policy_templates.provider ASC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	rows := make([]policy.ProviderPerformanceRow, len(results))
	for i, row := range results {
		rows[i] = policy.ProviderPerformanceRow{
			Provider:        row.Provider,
			TemplateCount:   row.TemplateCount,
			InstanceCount:   row.InstanceCount,
			TotalRevenue:    row.TotalRevenue,
			ActiveInstances: row.ActiveInstances,
		}
	}
	return rows, nil
}

// TypePerformance returns per-type aggregates ordered by revenue.
// RecentInstances counts instances created at or after recentSince.
func (r *GormStatsRepository) TypePerformance(ctx context.Context, recentSince time.Time) ([]policy.TypePerformanceRow, error) {
	type performanceResult struct {
		Type            string
		TemplateCount   int64
		InstanceCount   int64
		TotalRevenue    decimal.Decimal
		RecentInstances int64
	}

	var results []performanceResult
	err := r.templatesWithInstances(ctx).
		Select(`
			policy_templates.type,
			COUNT(DISTINCT policy_templates.id) as template_count,
			COUNT(policy_instances.id) as instance_count,
			COALESCE(SUM(policy_instances.premium), 0) as total_revenue,
			COALESCE(SUM(CASE WHEN policy_instances.created_at >= ? THEN 1 ELSE 0 END), 0) as recent_instances
		`, recentSince).
		Group("policy_templates.type").
		Order("total_revenue DESC, policy_templates.type ASC").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	rows := make([]policy.TypePerformanceRow, len(results))
	for i, row := range results {
		rows[i] = policy.TypePerformanceRow{
			Type:            policy.PolicyType(row.Type),
			TemplateCount:   row.TemplateCount,
			InstanceCount:   row.InstanceCount,
			TotalRevenue:    row.TotalRevenue,
			RecentInstances: row.RecentInstances,
		}
	}
	return rows, nil
}

// instancesJoined starts an instance query joined with templates so the
// template filter can constrain it
func (r *GormStatsRepository) instancesJoined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Joins("JOIN policy_templates ON policy_templates.id = policy_instances.template_id")
}

// templatesWithInstances starts a template query left-joined with
// instances for grouped breakdowns
func (r *GormStatsRepository) templatesWithInstances(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("policy_templates").
		Joins("LEFT JOIN policy_instances ON policy_instances.template_id = policy_templates.id")
}

func (r *GormStatsRepository) sumInstanceColumn(ctx context.Context, column string, scope func(*gorm.DB) *gorm.DB) (decimal.Decimal, error) {
	type sumResult struct {
		Total decimal.Decimal
	}

	query := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Select("COALESCE(SUM(" + column + "), 0) as total")
	if scope != nil {
		query = scope(query)
	}

	var result sumResult
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// Ensure GormStatsRepository implements StatsRepository
var _ policy.StatsRepository = (*GormStatsRepository)(nil)
