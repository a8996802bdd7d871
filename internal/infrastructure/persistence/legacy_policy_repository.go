package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLegacyPolicyRepository implements LegacyPolicyRepository using GORM
type GormLegacyPolicyRepository struct {
	db *gorm.DB
}

// NewGormLegacyPolicyRepository creates a new GormLegacyPolicyRepository
func NewGormLegacyPolicyRepository(db *gorm.DB) *GormLegacyPolicyRepository {
	return &GormLegacyPolicyRepository{db: db}
}

// FindByID finds a legacy policy by its ID
func (r *GormLegacyPolicyRepository) FindByID(ctx context.Context, id uuid.UUID) (*policy.LegacyPolicy, error) {
	var model models.LegacyPolicyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByClient finds all legacy policies held by a client
func (r *GormLegacyPolicyRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]policy.LegacyPolicy, error) {
	var legacyModels []models.LegacyPolicyModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("expiry_date ASC").
		Find(&legacyModels).Error; err != nil {
		return nil, err
	}
	return toDomainLegacy(legacyModels), nil
}

// FindAll finds legacy policies matching the listing options along with
// the total count before pagination
func (r *GormLegacyPolicyRepository) FindAll(ctx context.Context, opts policy.ListOptions) ([]policy.LegacyPolicy, int64, error) {
	query := applyLegacyListOptions(r.db.WithContext(ctx).Model(&models.LegacyPolicyModel{}), opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var legacyModels []models.LegacyPolicyModel
	if err := query.
		Order("created_at DESC").
		Offset(opts.Offset()).
		Limit(opts.PageLimit()).
		Find(&legacyModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainLegacy(legacyModels), total, nil
}

// Save creates or updates a legacy policy
func (r *GormLegacyPolicyRepository) Save(ctx context.Context, legacy *policy.LegacyPolicy) error {
	model := models.LegacyPolicyModelFromDomain(legacy)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a legacy policy
func (r *GormLegacyPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LegacyPolicyModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts the remaining legacy policies
func (r *GormLegacyPolicyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LegacyPolicyModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainLegacy(legacyModels []models.LegacyPolicyModel) []policy.LegacyPolicy {
	policies := make([]policy.LegacyPolicy, len(legacyModels))
	for i, model := range legacyModels {
		policies[i] = *model.ToDomain()
	}
	return policies
}

// applyLegacyListOptions applies the listing options without pagination
func applyLegacyListOptions(query *gorm.DB, opts policy.ListOptions) *gorm.DB {
	if opts.Search != "" {
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where(
			"LOWER(policy_number) LIKE ? OR LOWER(provider) LIKE ?",
			pattern, pattern,
		)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}
	if opts.Type != nil {
		query = query.Where("type = ?", *opts.Type)
	}
	if opts.Provider != "" {
		query = query.Where("provider = ?", opts.Provider)
	}
	return query
}

// Ensure GormLegacyPolicyRepository implements LegacyPolicyRepository
var _ policy.LegacyPolicyRepository = (*GormLegacyPolicyRepository)(nil)
