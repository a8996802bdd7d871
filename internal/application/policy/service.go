package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agency/backoffice/internal/application/stats"
	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	auditActor     = "compatibility-shim"
	entityInstance = "policy_instance"
	entityLegacy   = "policy"
)

// Config selects how the shim resolves the two coexisting policy
// representations
type Config struct {
	// UseTemplateSystem routes reads and writes through the normalized
	// template+instance tables
	UseTemplateSystem bool
	// AllowFallback consults the legacy flat table when the normalized
	// query returns nothing
	AllowFallback bool
	// MigrateOnRead converts legacy rows found via fallback into
	// template+instance rows and deletes the originals
	MigrateOnRead bool
}

// describe renders the operating mode for status reporting
func (c Config) describe() string {
	switch {
	case c.UseTemplateSystem && c.AllowFallback && c.MigrateOnRead:
		return "hybrid: normalized reads with legacy fallback, migrating legacy rows on read"
	case c.UseTemplateSystem && c.AllowFallback:
		return "hybrid: normalized reads with legacy fallback"
	case c.UseTemplateSystem:
		return "template-only: all reads and writes use the normalized tables"
	default:
		return "legacy-only: all reads and writes use the flat policy table"
	}
}

// PolicyCompatibilityService presents one unified policy surface while the
// legacy flat table and the normalized template+instance tables coexist.
// Unlike the statistics service it fails loudly: data-access errors are
// logged and returned, and missing rows surface as shared.ErrNotFound
// wrapped with the id. Successful writes invalidate the stats cache keys
// they may have staled.
type PolicyCompatibilityService struct {
	instances policy.InstanceRepository
	legacy    policy.LegacyPolicyRepository
	tx        TransactionScope
	cache     stats.StatsCache
	logger    *zap.Logger
	cfg       Config
}

// NewPolicyCompatibilityService creates the compatibility shim. cache may
// be nil when no stats cache is configured.
func NewPolicyCompatibilityService(
	instances policy.InstanceRepository,
	legacy policy.LegacyPolicyRepository,
	tx TransactionScope,
	cache stats.StatsCache,
	logger *zap.Logger,
	cfg Config,
) *PolicyCompatibilityService {
	return &PolicyCompatibilityService{
		instances: instances,
		legacy:    legacy,
		tx:        tx,
		cache:     cache,
		logger:    logger,
		cfg:       cfg,
	}
}

// legacyEnabled reports whether the legacy table is consulted at all
func (s *PolicyCompatibilityService) legacyEnabled() bool {
	return s.cfg.AllowFallback || !s.cfg.UseTemplateSystem
}

// GetClientPolicies returns every policy held by a client. Normalized
// instances win when present; otherwise the legacy table is consulted per
// the fallback configuration, and with MigrateOnRead the legacy rows are
// converted in place before re-querying.
func (s *PolicyCompatibilityService) GetClientPolicies(ctx context.Context, clientID uuid.UUID) ([]UnifiedPolicyData, error) {
	if s.cfg.UseTemplateSystem {
		pairs, err := s.instances.FindByClient(ctx, clientID)
		if err != nil {
			s.logger.Error("client policy query failed",
				zap.String("client_id", clientID.String()), zap.Error(err))
			return nil, err
		}
		if len(pairs) > 0 {
			return unifyPairs(pairs), nil
		}
		if !s.cfg.AllowFallback {
			return []UnifiedPolicyData{}, nil
		}
	}

	rows, err := s.legacy.FindByClient(ctx, clientID)
	if err != nil {
		s.logger.Error("legacy client policy query failed",
			zap.String("client_id", clientID.String()), zap.Error(err))
		return nil, err
	}
	if len(rows) == 0 {
		return []UnifiedPolicyData{}, nil
	}

	if s.cfg.UseTemplateSystem && s.cfg.MigrateOnRead {
		templateIDs, err := s.migrateClientLegacy(ctx, clientID, rows)
		if err != nil {
			s.logger.Error("legacy migration failed",
				zap.String("client_id", clientID.String()), zap.Error(err))
			return nil, err
		}
		s.invalidateStats(ctx, templateIDs...)

		pairs, err := s.instances.FindByClient(ctx, clientID)
		if err != nil {
			s.logger.Error("post-migration policy query failed",
				zap.String("client_id", clientID.String()), zap.Error(err))
			return nil, err
		}
		return unifyPairs(pairs), nil
	}

	out := make([]UnifiedPolicyData, len(rows))
	for i := range rows {
		out[i] = toUnifiedData(policy.UnifyLegacy(&rows[i]))
	}
	return out, nil
}

// migrateClientLegacy converts a client's legacy rows into normalized
// template+instance rows inside a single transaction. For each row the
// template is found or created by policy number, the instance keeps the
// legacy id, amounts, dates and timestamps, and the legacy row is deleted.
func (s *PolicyCompatibilityService) migrateClientLegacy(ctx context.Context, clientID uuid.UUID, rows []policy.LegacyPolicy) ([]uuid.UUID, error) {
	templateIDs := make([]uuid.UUID, 0, len(rows))
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		for i := range rows {
			row := &rows[i]
			tpl, err := findOrCreateTemplate(ctx, repos, row.PolicyNumber, row.Type, row.Provider, row.Description)
			if err != nil {
				return err
			}
			instance := &policy.PolicyInstance{
				BaseEntity: shared.BaseEntity{
					ID:        row.ID,
					CreatedAt: row.CreatedAt,
					UpdatedAt: row.UpdatedAt,
				},
				TemplateID: tpl.ID,
				ClientID:   row.ClientID,
				Premium:    row.Premium,
				Commission: row.Commission,
				Status:     row.Status,
				StartDate:  row.StartDate,
				ExpiryDate: row.ExpiryDate,
			}
			if err := repos.Instances().Save(ctx, instance); err != nil {
				return err
			}
			if err := repos.Legacy().Delete(ctx, row.ID); err != nil {
				return err
			}
			entry := audit.NewEntry(auditActor, audit.ActionMigrate, entityInstance, row.ID,
				fmt.Sprintf("migrated legacy policy %s to template %s", row.PolicyNumber, tpl.ID))
			if err := repos.Audit().Record(ctx, entry); err != nil {
				return err
			}
			templateIDs = append(templateIDs, tpl.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("migrated legacy policies",
		zap.String("client_id", clientID.String()),
		zap.Int("count", len(rows)),
	)
	return templateIDs, nil
}

// GetAllPolicies lists policies across both representations with
// pagination, search and status/type/provider filters. When both sources
// are consulted the normalized rows come first and the totals are summed;
// page boundaries therefore do not follow one consistent ordering across
// sources.
func (s *PolicyCompatibilityService) GetAllPolicies(ctx context.Context, opts policy.ListOptions) (*PolicyPage, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	result := &PolicyPage{
		Policies: []UnifiedPolicyData{},
		Page:     page,
		Limit:    opts.PageLimit(),
	}

	if s.cfg.UseTemplateSystem {
		pairs, count, err := s.instances.FindAll(ctx, opts)
		if err != nil {
			s.logger.Error("policy listing failed", zap.Error(err))
			return nil, err
		}
		result.Policies = append(result.Policies, unifyPairs(pairs)...)
		result.Total += count
	}

	if s.legacyEnabled() {
		rows, count, err := s.legacy.FindAll(ctx, opts)
		if err != nil {
			s.logger.Error("legacy policy listing failed", zap.Error(err))
			return nil, err
		}
		for i := range rows {
			result.Policies = append(result.Policies, toUnifiedData(policy.UnifyLegacy(&rows[i])))
		}
		result.Total += count
	}

	return result, nil
}

// CreatePolicy writes through the normalized system when enabled, finding
// or creating the template by policy number, otherwise straight into the
// legacy table
func (s *PolicyCompatibilityService) CreatePolicy(ctx context.Context, input CreatePolicyInput) (*UnifiedPolicyData, error) {
	clientID, err := uuid.Parse(input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client id %q", shared.ErrInvalidInput, input.ClientID)
	}
	policyType, err := policy.ParsePolicyType(input.PolicyType)
	if err != nil {
		return nil, err
	}
	if !input.StartDate.Before(input.ExpiryDate) {
		return nil, fmt.Errorf("%w: start date must precede expiry date", shared.ErrInvalidInput)
	}
	premium := decimal.NewFromFloat(input.Premium)
	commission := decimal.NewFromFloat(input.Commission)

	var (
		result     UnifiedPolicyData
		templateID uuid.UUID
	)
	if s.cfg.UseTemplateSystem {
		err = s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
			tpl, err := findOrCreateTemplate(ctx, repos, input.PolicyNumber, policyType, input.Provider, input.Description)
			if err != nil {
				return err
			}
			instance, err := policy.NewPolicyInstance(tpl.ID, clientID, premium, commission, input.StartDate, input.ExpiryDate)
			if err != nil {
				return err
			}
			if err := repos.Instances().Save(ctx, instance); err != nil {
				return err
			}
			entry := audit.NewEntry(auditActor, audit.ActionCreate, entityInstance, instance.ID,
				fmt.Sprintf("created instance of %s for client %s", tpl.PolicyNumber, clientID))
			if err := repos.Audit().Record(ctx, entry); err != nil {
				return err
			}
			templateID = tpl.ID
			result = toUnifiedData(policy.UnifyInstance(instance, tpl))
			return nil
		})
	} else {
		err = s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
			row := &policy.LegacyPolicy{
				BaseEntity:   shared.NewBaseEntity(),
				PolicyNumber: strings.TrimSpace(input.PolicyNumber),
				Type:         policyType,
				Provider:     strings.TrimSpace(input.Provider),
				Description:  input.Description,
				ClientID:     clientID,
				Premium:      premium,
				Commission:   commission,
				Status:       policy.InstanceStatusActive,
				StartDate:    input.StartDate,
				ExpiryDate:   input.ExpiryDate,
			}
			if err := repos.Legacy().Save(ctx, row); err != nil {
				return err
			}
			entry := audit.NewEntry(auditActor, audit.ActionCreate, entityLegacy, row.ID,
				fmt.Sprintf("created legacy policy %s for client %s", row.PolicyNumber, clientID))
			if err := repos.Audit().Record(ctx, entry); err != nil {
				return err
			}
			result = toUnifiedData(policy.UnifyLegacy(row))
			return nil
		})
	}
	if err != nil {
		s.logger.Error("create policy failed", zap.Error(err))
		return nil, err
	}

	if templateID != uuid.Nil {
		s.invalidateStats(ctx, templateID)
	} else {
		s.invalidateStats(ctx)
	}
	return &result, nil
}

// UpdatePolicy applies a partial update, probing the normalized table by
// id first and falling back to the legacy table when allowed
func (s *PolicyCompatibilityService) UpdatePolicy(ctx context.Context, id uuid.UUID, input UpdatePolicyInput) (*UnifiedPolicyData, error) {
	var (
		result     UnifiedPolicyData
		templateID uuid.UUID
	)
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		if s.cfg.UseTemplateSystem {
			pair, err := repos.Instances().FindByIDWithTemplate(ctx, id)
			switch {
			case err == nil:
				applyToInstance(&pair.Instance, input)
				pair.Instance.Touch()
				if err := repos.Instances().Save(ctx, &pair.Instance); err != nil {
					return err
				}
				entry := audit.NewEntry(auditActor, audit.ActionUpdate, entityInstance, id, "")
				if err := repos.Audit().Record(ctx, entry); err != nil {
					return err
				}
				templateID = pair.Template.ID
				result = toUnifiedData(policy.UnifyInstance(&pair.Instance, &pair.Template))
				return nil
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}
		}
		if !s.legacyEnabled() {
			return fmt.Errorf("policy %s: %w", id, shared.ErrNotFound)
		}

		row, err := repos.Legacy().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("policy %s: %w", id, shared.ErrNotFound)
			}
			return err
		}
		applyToLegacy(row, input)
		row.Touch()
		if err := repos.Legacy().Save(ctx, row); err != nil {
			return err
		}
		entry := audit.NewEntry(auditActor, audit.ActionUpdate, entityLegacy, id, "")
		if err := repos.Audit().Record(ctx, entry); err != nil {
			return err
		}
		result = toUnifiedData(policy.UnifyLegacy(row))
		return nil
	})
	if err != nil {
		s.logger.Error("update policy failed",
			zap.String("policy_id", id.String()), zap.Error(err))
		return nil, err
	}

	if templateID != uuid.Nil {
		s.invalidateStats(ctx, templateID)
	} else {
		s.invalidateStats(ctx)
	}
	return &result, nil
}

// DeletePolicy removes a policy, probing the normalized table by id first
// and falling back to the legacy table when allowed
func (s *PolicyCompatibilityService) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	var templateID uuid.UUID
	err := s.tx.Execute(ctx, func(repos TransactionalRepositories) error {
		if s.cfg.UseTemplateSystem {
			instance, err := repos.Instances().FindByID(ctx, id)
			switch {
			case err == nil:
				if err := repos.Instances().Delete(ctx, id); err != nil {
					return err
				}
				entry := audit.NewEntry(auditActor, audit.ActionDelete, entityInstance, id, "")
				if err := repos.Audit().Record(ctx, entry); err != nil {
					return err
				}
				templateID = instance.TemplateID
				return nil
			case !errors.Is(err, shared.ErrNotFound):
				return err
			}
		}
		if !s.legacyEnabled() {
			return fmt.Errorf("policy %s: %w", id, shared.ErrNotFound)
		}

		if _, err := repos.Legacy().FindByID(ctx, id); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("policy %s: %w", id, shared.ErrNotFound)
			}
			return err
		}
		if err := repos.Legacy().Delete(ctx, id); err != nil {
			return err
		}
		entry := audit.NewEntry(auditActor, audit.ActionDelete, entityLegacy, id, "")
		return repos.Audit().Record(ctx, entry)
	})
	if err != nil {
		s.logger.Error("delete policy failed",
			zap.String("policy_id", id.String()), zap.Error(err))
		return err
	}

	if templateID != uuid.Nil {
		s.invalidateStats(ctx, templateID)
	} else {
		s.invalidateStats(ctx)
	}
	return nil
}

// GetSystemStatus reports the active configuration and operating mode
func (s *PolicyCompatibilityService) GetSystemStatus() SystemStatus {
	return SystemStatus{
		UseTemplateSystem: s.cfg.UseTemplateSystem,
		AllowFallback:     s.cfg.AllowFallback,
		MigrateOnRead:     s.cfg.MigrateOnRead,
		Mode:              s.cfg.describe(),
	}
}

// invalidateStats drops the default template stats key plus the detail
// keys of any templates touched by a write
func (s *PolicyCompatibilityService) invalidateStats(ctx context.Context, templateIDs ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(templateIDs)+1)
	keys = append(keys, stats.TemplateStatsKey)
	for _, id := range templateIDs {
		keys = append(keys, stats.DetailStatsKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// findOrCreateTemplate resolves the catalog template for a policy number,
// creating it when absent
func findOrCreateTemplate(ctx context.Context, repos TransactionalRepositories, policyNumber string, policyType policy.PolicyType, provider, description string) (*policy.PolicyTemplate, error) {
	tpl, err := repos.Templates().FindByPolicyNumber(ctx, strings.TrimSpace(policyNumber))
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	tpl, err = policy.NewPolicyTemplate(policyNumber, policyType, provider, description)
	if err != nil {
		return nil, err
	}
	if err := repos.Templates().Save(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func unifyPairs(pairs []policy.InstanceWithTemplate) []UnifiedPolicyData {
	out := make([]UnifiedPolicyData, len(pairs))
	for i := range pairs {
		out[i] = toUnifiedData(policy.UnifyInstance(&pairs[i].Instance, &pairs[i].Template))
	}
	return out
}

func applyToInstance(instance *policy.PolicyInstance, input UpdatePolicyInput) {
	if input.Premium != nil {
		instance.Premium = decimal.NewFromFloat(*input.Premium)
	}
	if input.Commission != nil {
		instance.Commission = decimal.NewFromFloat(*input.Commission)
	}
	if input.StartDate != nil {
		instance.StartDate = *input.StartDate
	}
	if input.ExpiryDate != nil {
		instance.ExpiryDate = *input.ExpiryDate
	}
	if input.Status != nil {
		instance.Status = policy.InstanceStatus(*input.Status)
	}
}

func applyToLegacy(row *policy.LegacyPolicy, input UpdatePolicyInput) {
	if input.Premium != nil {
		row.Premium = decimal.NewFromFloat(*input.Premium)
	}
	if input.Commission != nil {
		row.Commission = decimal.NewFromFloat(*input.Commission)
	}
	if input.StartDate != nil {
		row.StartDate = *input.StartDate
	}
	if input.ExpiryDate != nil {
		row.ExpiryDate = *input.ExpiryDate
	}
	if input.Status != nil {
		row.Status = policy.InstanceStatus(*input.Status)
	}
}
