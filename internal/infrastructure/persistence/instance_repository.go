package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInstanceRepository implements InstanceRepository using GORM
type GormInstanceRepository struct {
	db *gorm.DB
}

// NewGormInstanceRepository creates a new GormInstanceRepository
func NewGormInstanceRepository(db *gorm.DB) *GormInstanceRepository {
	return &GormInstanceRepository{db: db}
}

// FindByID finds an instance by its ID
func (r *GormInstanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*policy.PolicyInstance, error) {
	var model models.PolicyInstanceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDWithTemplate finds an instance joined with its template
func (r *GormInstanceRepository) FindByIDWithTemplate(ctx context.Context, id uuid.UUID) (*policy.InstanceWithTemplate, error) {
	var model models.PolicyInstanceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	var templateModel models.PolicyTemplateModel
	if err := r.db.WithContext(ctx).First(&templateModel, "id = ?", model.TemplateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	return &policy.InstanceWithTemplate{
		Instance: *model.ToDomain(),
		Template: *templateModel.ToDomain(),
	}, nil
}

// FindByClient finds all instances held by a client, soonest expiry first
func (r *GormInstanceRepository) FindByClient(ctx context.Context, clientID uuid.UUID) ([]policy.InstanceWithTemplate, error) {
	var instanceModels []models.PolicyInstanceModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("expiry_date ASC").
		Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	return r.joinTemplates(ctx, instanceModels)
}

// FindAll finds instances matching the listing options along with the
// total count before pagination
func (r *GormInstanceRepository) FindAll(ctx context.Context, opts policy.ListOptions) ([]policy.InstanceWithTemplate, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PolicyInstanceModel{}).
		Joins("JOIN policy_templates ON policy_templates.id = policy_instances.template_id")
	query = applyInstanceListOptions(query, opts)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var instanceModels []models.PolicyInstanceModel
	if err := query.
		Select("policy_instances.*").
		Order("policy_instances.created_at DESC").
		Offset(opts.Offset()).
		Limit(opts.PageLimit()).
		Find(&instanceModels).Error; err != nil {
		return nil, 0, err
	}

	pairs, err := r.joinTemplates(ctx, instanceModels)
	if err != nil {
		return nil, 0, err
	}
	return pairs, total, nil
}

// FindExpiredWithStatusActive finds instances whose coverage has lapsed
// but whose stored status still reads ACTIVE
func (r *GormInstanceRepository) FindExpiredWithStatusActive(ctx context.Context, limit int) ([]policy.PolicyInstance, error) {
	var instanceModels []models.PolicyInstanceModel
	query := r.db.WithContext(ctx).
		Where("status = ? AND expiry_date <= ?", policy.InstanceStatusActive, time.Now()).
		Order("expiry_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&instanceModels).Error; err != nil {
		return nil, err
	}

	instances := make([]policy.PolicyInstance, len(instanceModels))
	for i, model := range instanceModels {
		instances[i] = *model.ToDomain()
	}
	return instances, nil
}

// FindExpiringWithin finds in-force instances expiring within the given
// number of days, soonest first
func (r *GormInstanceRepository) FindExpiringWithin(ctx context.Context, days int, limit int) ([]policy.InstanceWithTemplate, error) {
	now := time.Now()
	until := now.AddDate(0, 0, days)

	var instanceModels []models.PolicyInstanceModel
	query := r.db.WithContext(ctx).
		Where("expiry_date > ? AND expiry_date <= ?", now, until).
		Order("expiry_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&instanceModels).Error; err != nil {
		return nil, err
	}
	return r.joinTemplates(ctx, instanceModels)
}

// Save creates or updates an instance
func (r *GormInstanceRepository) Save(ctx context.Context, instance *policy.PolicyInstance) error {
	model := models.PolicyInstanceModelFromDomain(instance)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes an instance
func (r *GormInstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PolicyInstanceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// joinTemplates pairs the given instance rows with their templates,
// fetched in a single IN query
func (r *GormInstanceRepository) joinTemplates(ctx context.Context, instanceModels []models.PolicyInstanceModel) ([]policy.InstanceWithTemplate, error) {
	if len(instanceModels) == 0 {
		return []policy.InstanceWithTemplate{}, nil
	}

	templateIDs := make([]uuid.UUID, 0, len(instanceModels))
	seen := make(map[uuid.UUID]struct{}, len(instanceModels))
	for _, model := range instanceModels {
		if _, ok := seen[model.TemplateID]; !ok {
			seen[model.TemplateID] = struct{}{}
			templateIDs = append(templateIDs, model.TemplateID)
		}
	}

	var templateModels []models.PolicyTemplateModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", templateIDs).
		Find(&templateModels).Error; err != nil {
		return nil, err
	}

	templates := make(map[uuid.UUID]policy.PolicyTemplate, len(templateModels))
	for _, model := range templateModels {
		templates[model.ID] = *model.ToDomain()
	}

	pairs := make([]policy.InstanceWithTemplate, 0, len(instanceModels))
	for _, model := range instanceModels {
		template, ok := templates[model.TemplateID]
		if !ok {
			// Orphaned instance rows are skipped rather than failing
			// the whole listing.
			continue
		}
		pairs = append(pairs, policy.InstanceWithTemplate{
			Instance: *model.ToDomain(),
			Template: template,
		})
	}
	return pairs, nil
}

// applyInstanceListOptions applies the listing options without pagination.
// The query must already join policy_templates.
func applyInstanceListOptions(query *gorm.DB, opts policy.ListOptions) *gorm.DB {
	if opts.Search != "" {
		pattern := "%" + strings.ToLower(opts.Search) + "%"
		query = query.Where(
			"LOWER(policy_templates.policy_number) LIKE ? OR LOWER(policy_templates.provider) LIKE ?",
			pattern, pattern,
		)
	}
	if opts.Status != nil {
		query = query.Where("policy_instances.status = ?", *opts.Status)
	}
	if opts.Type != nil {
		query = query.Where("policy_templates.type = ?", *opts.Type)
	}
	if opts.Provider != "" {
		query = query.Where("policy_templates.provider = ?", opts.Provider)
	}
	return query
}

// Ensure GormInstanceRepository implements InstanceRepository
var _ policy.InstanceRepository = (*GormInstanceRepository)(nil)
