package persistence

import (
	"context"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements the audit repository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Record appends an audit entry
func (r *GormAuditRepository) Record(ctx context.Context, entry *audit.Entry) error {
	model := models.AuditLogModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity finds the audit trail for an entity, newest first
func (r *GormAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) ([]audit.Entry, error) {
	var logModels []models.AuditLogModel
	query := r.db.WithContext(ctx).
		Model(&models.AuditLogModel{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	if err := query.Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]audit.Entry, len(logModels))
	for i, model := range logModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditRepository implements the audit repository
var _ audit.Repository = (*GormAuditRepository)(nil)
