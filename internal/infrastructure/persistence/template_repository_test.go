package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/agency/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTemplateTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.PolicyTemplateModel{},
		&models.PolicyInstanceModel{},
	)
	require.NoError(t, err)
	return db
}

func TestGormTemplateRepository_CRUD(t *testing.T) {
	db := setupTemplateTestDB(t)
	repo := NewGormTemplateRepository(db)
	ctx := context.Background()

	template, err := policy.NewPolicyTemplate("AUTO-42", policy.PolicyTypeAuto, "Clal", "comprehensive")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, template))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, template.ID)
		require.NoError(t, err)
		assert.Equal(t, "AUTO-42", found.PolicyNumber)
		assert.Equal(t, policy.PolicyTypeAuto, found.Type)
		assert.Equal(t, "comprehensive", found.Description)
	})

	t.Run("finds by policy number", func(t *testing.T) {
		found, err := repo.FindByPolicyNumber(ctx, "AUTO-42")
		require.NoError(t, err)
		assert.Equal(t, template.ID, found.ID)

		_, err = repo.FindByPolicyNumber(ctx, "NOPE-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save updates in place", func(t *testing.T) {
		template.Description = "third party"
		require.NoError(t, repo.Save(ctx, template))

		found, err := repo.FindByID(ctx, template.ID)
		require.NoError(t, err)
		assert.Equal(t, "third party", found.Description)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormTemplateRepository_FindAll(t *testing.T) {
	db := setupTemplateTestDB(t)
	repo := NewGormTemplateRepository(db)
	instances := NewGormInstanceRepository(db)
	ctx := context.Background()

	seed := []struct {
		number   string
		kind     policy.PolicyType
		provider string
	}{
		{"AUTO-1", policy.PolicyTypeAuto, "Clal"},
		{"AUTO-2", policy.PolicyTypeAuto, "Phoenix"},
		{"LIFE-1", policy.PolicyTypeLife, "Clal"},
	}
	byNumber := make(map[string]*policy.PolicyTemplate)
	for _, s := range seed {
		template, err := policy.NewPolicyTemplate(s.number, s.kind, s.provider, "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, template))
		byNumber[s.number] = template
	}

	now := time.Now()
	instance, err := policy.NewPolicyInstance(
		byNumber["AUTO-1"].ID, uuid.New(),
		decimal.NewFromInt(900), decimal.NewFromInt(90),
		now, now.AddDate(1, 0, 0),
	)
	require.NoError(t, err)
	require.NoError(t, instances.Save(ctx, instance))

	t.Run("search matches number case-insensitively", func(t *testing.T) {
		found, err := repo.FindAll(ctx, policy.TemplateFilter{Filter: shared.Filter{Search: "auto"}})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("filters by type and provider", func(t *testing.T) {
		found, err := repo.FindAll(ctx, policy.TemplateFilter{
			Types:     []policy.PolicyType{policy.PolicyTypeAuto},
			Providers: []string{"Clal"},
		})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "AUTO-1", found[0].PolicyNumber)
	})

	t.Run("filters by instance presence", func(t *testing.T) {
		has := true
		found, err := repo.FindAll(ctx, policy.TemplateFilter{HasInstances: &has})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "AUTO-1", found[0].PolicyNumber)
	})

	t.Run("count matches the same scope", func(t *testing.T) {
		count, err := repo.Count(ctx, policy.TemplateFilter{Providers: []string{"Clal"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("delete cascades to instances", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, byNumber["AUTO-1"].ID))

		_, err := repo.FindByID(ctx, byNumber["AUTO-1"].ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = instances.FindByID(ctx, instance.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, byNumber["AUTO-1"].ID), shared.ErrNotFound)
	})
}
