package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agency/backoffice/internal/domain/crm"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLeadRepository implements LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// FindByID finds a lead by its ID
func (r *GormLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Lead, error) {
	var model models.LeadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all leads matching the filter
func (r *GormLeadRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Lead, error) {
	var leadModels []models.LeadModel
	query := r.db.WithContext(ctx).Model(&models.LeadModel{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(source) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	query = query.Order(orderClause(filter, "created_at DESC"))

	if err := query.Find(&leadModels).Error; err != nil {
		return nil, err
	}

	leads := make([]crm.Lead, len(leadModels))
	for i, model := range leadModels {
		leads[i] = *model.ToDomain()
	}
	return leads, nil
}

// Save creates or updates a lead
func (r *GormLeadRepository) Save(ctx context.Context, lead *crm.Lead) error {
	model := models.LeadModelFromDomain(lead)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a lead
func (r *GormLeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LeadModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts all leads
func (r *GormLeadRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LeadModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountCreatedBetween counts leads created in [from, to)
func (r *GormLeadRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LeadModel{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormLeadRepository implements LeadRepository
var _ crm.LeadRepository = (*GormLeadRepository)(nil)
