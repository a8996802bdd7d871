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

// GormTemplateRepository implements TemplateRepository using GORM
type GormTemplateRepository struct {
	db *gorm.DB
}

// NewGormTemplateRepository creates a new GormTemplateRepository
func NewGormTemplateRepository(db *gorm.DB) *GormTemplateRepository {
	return &GormTemplateRepository{db: db}
}

// FindByID finds a template by its ID
func (r *GormTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*policy.PolicyTemplate, error) {
	var model models.PolicyTemplateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPolicyNumber finds a template by its unique policy number
func (r *GormTemplateRepository) FindByPolicyNumber(ctx context.Context, policyNumber string) (*policy.PolicyTemplate, error) {
	var model models.PolicyTemplateModel
	if err := r.db.WithContext(ctx).
		Where("policy_number = ?", strings.TrimSpace(policyNumber)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all templates matching the filter
func (r *GormTemplateRepository) FindAll(ctx context.Context, filter policy.TemplateFilter) ([]policy.PolicyTemplate, error) {
	var templateModels []models.PolicyTemplateModel
	query := applyTemplateFilter(r.db.WithContext(ctx).Model(&models.PolicyTemplateModel{}), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") || filter.OrderDir == "" {
		orderDir = "DESC"
	}
	query = query.Order(orderBy + " " + orderDir)

	if err := query.Find(&templateModels).Error; err != nil {
		return nil, err
	}

	templates := make([]policy.PolicyTemplate, len(templateModels))
	for i, model := range templateModels {
		templates[i] = *model.ToDomain()
	}
	return templates, nil
}

// Save creates or updates a template
func (r *GormTemplateRepository) Save(ctx context.Context, template *policy.PolicyTemplate) error {
	model := models.PolicyTemplateModelFromDomain(template)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a template and cascades removal of its instances
func (r *GormTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.PolicyInstanceModel{}, "template_id = ?", id).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.PolicyTemplateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts templates matching the filter
func (r *GormTemplateRepository) Count(ctx context.Context, filter policy.TemplateFilter) (int64, error) {
	var count int64
	query := applyTemplateFilter(r.db.WithContext(ctx).Model(&models.PolicyTemplateModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyTemplateFilter applies the template filter without pagination.
// Shared with the stats repository, which counts over the same scope.
func applyTemplateFilter(query *gorm.DB, filter policy.TemplateFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(policy_templates.policy_number) LIKE ? OR LOWER(policy_templates.provider) LIKE ? OR LOWER(policy_templates.type) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if len(filter.Types) > 0 {
		query = query.Where("policy_templates.type IN ?", filter.Types)
	}
	if len(filter.Providers) > 0 {
		query = query.Where("policy_templates.provider IN ?", filter.Providers)
	}
	if filter.HasInstances != nil {
		sub := "EXISTS (SELECT 1 FROM policy_instances WHERE policy_instances.template_id = policy_templates.id)"
		if *filter.HasInstances {
			query = query.Where(sub)
		} else {
			query = query.Where("NOT " + sub)
		}
	}
	return query
}

// Ensure GormTemplateRepository implements TemplateRepository
var _ policy.TemplateRepository = (*GormTemplateRepository)(nil)
