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

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*crm.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all clients matching the filter
func (r *GormClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]crm.Client, error) {
	var clientModels []models.ClientModel
	query := r.db.WithContext(ctx).Model(&models.ClientModel{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}
	query = query.Order(orderClause(filter, "last_name ASC, first_name ASC"))

	if err := query.Find(&clientModels).Error; err != nil {
		return nil, err
	}

	clients := make([]crm.Client, len(clientModels))
	for i, model := range clientModels {
		clients[i] = *model.ToDomain()
	}
	return clients, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *crm.Client) error {
	model := models.ClientModelFromDomain(client)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a client
func (r *GormClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ClientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts all clients
func (r *GormClientRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountCreatedBetween counts clients created in [from, to)
func (r *GormClientRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ClientModel{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// orderClause builds the ORDER BY clause from the filter, falling back
// to the given default
func orderClause(filter shared.Filter, fallback string) string {
	if filter.OrderBy == "" {
		return fallback
	}
	dir := "ASC"
	if strings.EqualFold(filter.OrderDir, "desc") {
		dir = "DESC"
	}
	return filter.OrderBy + " " + dir
}

// Ensure GormClientRepository implements ClientRepository
var _ crm.ClientRepository = (*GormClientRepository)(nil)
