package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agency/backoffice/internal/application/stats"
	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates legacy rows on read and re-queries", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true, MigrateOnRead: true})
		clientID := uuid.New()
		f.seedLegacy(clientID, "AUTO-001", 1200)
		f.seedLegacy(clientID, "AUTO-002", 900)

		result, err := f.service.GetClientPolicies(ctx, clientID)
		require.NoError(t, err)
		require.Len(t, result, 2)
		for _, p := range result {
			assert.True(t, p.IsFromTemplate)
			require.NotNil(t, p.TemplateID)
		}

		legacyLeft, err := f.legacy.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), legacyLeft)
		assert.Len(t, f.instances.byID, 2)
		assert.Equal(t, 2, f.audits.countByAction(audit.ActionMigrate))
		assert.True(t, f.cache.contains(stats.TemplateStatsKey))

		// repeat read returns the same records without another migration
		again, err := f.service.GetClientPolicies(ctx, clientID)
		require.NoError(t, err)
		assert.Len(t, again, 2)
		assert.Equal(t, 2, f.audits.countByAction(audit.ActionMigrate))
	})

	t.Run("migration preserves ids, amounts and timestamps", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true, MigrateOnRead: true})
		clientID := uuid.New()
		row := f.seedLegacy(clientID, "HOME-010", 2400)

		result, err := f.service.GetClientPolicies(ctx, clientID)
		require.NoError(t, err)
		require.Len(t, result, 1)

		migrated, ok := f.instances.byID[row.ID]
		require.True(t, ok, "instance keeps the legacy row id")
		assert.True(t, migrated.Premium.Equal(row.Premium))
		assert.True(t, migrated.Commission.Equal(row.Commission))
		assert.Equal(t, row.CreatedAt, migrated.CreatedAt)
		assert.Equal(t, row.StartDate, migrated.StartDate)
		assert.Equal(t, row.ExpiryDate, migrated.ExpiryDate)

		tpl, err := f.templates.FindByPolicyNumber(ctx, "HOME-010")
		require.NoError(t, err)
		assert.Equal(t, row.Type, tpl.Type)
		assert.Equal(t, row.Provider, tpl.Provider)
	})

	t.Run("fallback without migration keeps legacy rows and tags them", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true, MigrateOnRead: false})
		clientID := uuid.New()
		f.seedLegacy(clientID, "LIFE-003", 500)

		result, err := f.service.GetClientPolicies(ctx, clientID)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.False(t, result[0].IsFromTemplate)
		assert.Nil(t, result[0].TemplateID)

		legacyLeft, err := f.legacy.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), legacyLeft)
	})

	t.Run("no fallback returns empty when normalized has nothing", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})
		clientID := uuid.New()
		f.seedLegacy(clientID, "AUTO-009", 700)

		result, err := f.service.GetClientPolicies(ctx, clientID)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestCreatePolicy(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := start.AddDate(1, 0, 0)

	input := func(clientID uuid.UUID, number string) CreatePolicyInput {
		return CreatePolicyInput{
			ClientID:     clientID.String(),
			PolicyNumber: number,
			PolicyType:   "auto",
			Provider:     "Clal",
			Description:  "third party",
			Premium:      1500,
			Commission:   150,
			StartDate:    start,
			ExpiryDate:   expiry,
		}
	}

	t.Run("legacy mode writes only the flat table", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: false, AllowFallback: true})
		created, err := f.service.CreatePolicy(ctx, input(uuid.New(), "AUTO-100"))
		require.NoError(t, err)
		assert.False(t, created.IsFromTemplate)
		assert.Nil(t, created.TemplateID)

		legacyCount, err := f.legacy.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), legacyCount)
		assert.Empty(t, f.instances.byID)
		assert.Empty(t, f.templates.byID)
		assert.Equal(t, 1, f.audits.countByAction(audit.ActionCreate))
	})

	t.Run("normalized mode finds or creates the template", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})

		first, err := f.service.CreatePolicy(ctx, input(uuid.New(), "AUTO-200"))
		require.NoError(t, err)
		second, err := f.service.CreatePolicy(ctx, input(uuid.New(), "AUTO-200"))
		require.NoError(t, err)

		assert.True(t, first.IsFromTemplate)
		assert.True(t, second.IsFromTemplate)
		require.NotNil(t, first.TemplateID)
		require.NotNil(t, second.TemplateID)
		assert.Equal(t, *first.TemplateID, *second.TemplateID)
		assert.Len(t, f.templates.byID, 1)
		assert.Len(t, f.instances.byID, 2)
		assert.Equal(t, "AUTO", first.PolicyType)
		assert.True(t, f.cache.contains(stats.TemplateStatsKey))
		assert.True(t, f.cache.containsPrefix("stats:template_detail:"))
	})

	t.Run("rejects an inverted coverage window", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})
		bad := input(uuid.New(), "AUTO-300")
		bad.ExpiryDate = bad.StartDate.AddDate(0, 0, -1)

		_, err := f.service.CreatePolicy(ctx, bad)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestUpdatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("updates a normalized instance", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})
		created, err := f.service.CreatePolicy(ctx, CreatePolicyInput{
			ClientID:     uuid.New().String(),
			PolicyNumber: "HEALTH-001",
			PolicyType:   "HEALTH",
			Provider:     "Maccabi",
			Premium:      800,
			Commission:   80,
			StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		id := uuid.MustParse(created.ID)

		newPremium := 950.0
		updated, err := f.service.UpdatePolicy(ctx, id, UpdatePolicyInput{Premium: &newPremium})
		require.NoError(t, err)
		assert.Equal(t, 950.0, updated.Premium)
		assert.Equal(t, 80.0, updated.Commission)
		assert.True(t, updated.IsFromTemplate)
		assert.Equal(t, 1, f.audits.countByAction(audit.ActionUpdate))
	})

	t.Run("falls back to the legacy table", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true})
		row := f.seedLegacy(uuid.New(), "AUTO-400", 600)

		status := string(policy.InstanceStatusExpired)
		updated, err := f.service.UpdatePolicy(ctx, row.ID, UpdatePolicyInput{Status: &status})
		require.NoError(t, err)
		assert.False(t, updated.IsFromTemplate)
		assert.Equal(t, "EXPIRED", updated.Status)

		stored, err := f.legacy.FindByID(ctx, row.ID)
		require.NoError(t, err)
		assert.Equal(t, policy.InstanceStatusExpired, stored.Status)
	})

	t.Run("missing id without fallback is a typed not-found", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})
		_, err := f.service.UpdatePolicy(ctx, uuid.New(), UpdatePolicyInput{})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestDeletePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes a normalized instance and invalidates its detail key", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true})
		created, err := f.service.CreatePolicy(ctx, CreatePolicyInput{
			ClientID:     uuid.New().String(),
			PolicyNumber: "BUSINESS-001",
			PolicyType:   "BUSINESS",
			Provider:     "Phoenix",
			Premium:      5000,
			Commission:   400,
			StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		id := uuid.MustParse(created.ID)

		require.NoError(t, f.service.DeletePolicy(ctx, id))
		assert.Empty(t, f.instances.byID)
		assert.Equal(t, 1, f.audits.countByAction(audit.ActionDelete))
		assert.True(t, f.cache.contains(stats.DetailStatsKey(uuid.MustParse(*created.TemplateID))))
	})

	t.Run("deletes a legacy row via fallback", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true})
		row := f.seedLegacy(uuid.New(), "AUTO-500", 300)

		require.NoError(t, f.service.DeletePolicy(ctx, row.ID))
		count, err := f.legacy.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("missing id is a typed not-found", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true})
		err := f.service.DeletePolicy(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGetAllPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("merges both sources with summed totals", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: true, AllowFallback: true})
		_, err := f.service.CreatePolicy(ctx, CreatePolicyInput{
			ClientID:     uuid.New().String(),
			PolicyNumber: "LIFE-100",
			PolicyType:   "LIFE",
			Provider:     "Migdal",
			Premium:      2000,
			Commission:   200,
			StartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		f.seedLegacy(uuid.New(), "LIFE-101", 1000)
		f.seedLegacy(uuid.New(), "LIFE-102", 1100)

		page, err := f.service.GetAllPolicies(ctx, policy.ListOptions{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Policies, 3)
		assert.True(t, page.Policies[0].IsFromTemplate, "normalized rows come first")
		assert.Equal(t, 10, page.Limit)
	})

	t.Run("legacy-only mode skips the normalized source", func(t *testing.T) {
		f := newFixture(Config{UseTemplateSystem: false})
		f.seedLegacy(uuid.New(), "AUTO-700", 400)

		page, err := f.service.GetAllPolicies(ctx, policy.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		assert.False(t, page.Policies[0].IsFromTemplate)
	})
}

func TestGetSystemStatus(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		mode string
	}{
		{
			name: "hybrid with migration",
			cfg:  Config{UseTemplateSystem: true, AllowFallback: true, MigrateOnRead: true},
			mode: "hybrid: normalized reads with legacy fallback, migrating legacy rows on read",
		},
		{
			name: "hybrid without migration",
			cfg:  Config{UseTemplateSystem: true, AllowFallback: true},
			mode: "hybrid: normalized reads with legacy fallback",
		},
		{
			name: "template only",
			cfg:  Config{UseTemplateSystem: true},
			mode: "template-only: all reads and writes use the normalized tables",
		},
		{
			name: "legacy only",
			cfg:  Config{},
			mode: "legacy-only: all reads and writes use the flat policy table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.cfg)
			status := f.service.GetSystemStatus()
			assert.Equal(t, tt.cfg.UseTemplateSystem, status.UseTemplateSystem)
			assert.Equal(t, tt.cfg.AllowFallback, status.AllowFallback)
			assert.Equal(t, tt.cfg.MigrateOnRead, status.MigrateOnRead)
			assert.Equal(t, tt.mode, status.Mode)
		})
	}
}
