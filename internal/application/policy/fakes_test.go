package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// In-memory fakes backing the shim tests. Migrate-on-read moves rows
// between tables, so the tests need real state rather than canned mocks.

type fakeTemplateRepo struct {
	byID map[uuid.UUID]*policy.PolicyTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{byID: make(map[uuid.UUID]*policy.PolicyTemplate)}
}

func (r *fakeTemplateRepo) FindByID(_ context.Context, id uuid.UUID) (*policy.PolicyTemplate, error) {
	tpl, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, shared.ErrNotFound)
	}
	copied := *tpl
	return &copied, nil
}

func (r *fakeTemplateRepo) FindByPolicyNumber(_ context.Context, policyNumber string) (*policy.PolicyTemplate, error) {
	for _, tpl := range r.byID {
		if tpl.PolicyNumber == policyNumber {
			copied := *tpl
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("template %s: %w", policyNumber, shared.ErrNotFound)
}

func (r *fakeTemplateRepo) FindAll(_ context.Context, _ policy.TemplateFilter) ([]policy.PolicyTemplate, error) {
	out := make([]policy.PolicyTemplate, 0, len(r.byID))
	for _, tpl := range r.byID {
		out = append(out, *tpl)
	}
	return out, nil
}

func (r *fakeTemplateRepo) Save(_ context.Context, template *policy.PolicyTemplate) error {
	copied := *template
	r.byID[template.ID] = &copied
	return nil
}

func (r *fakeTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeTemplateRepo) Count(_ context.Context, _ policy.TemplateFilter) (int64, error) {
	return int64(len(r.byID)), nil
}

var _ policy.TemplateRepository = (*fakeTemplateRepo)(nil)

type fakeInstanceRepo struct {
	byID      map[uuid.UUID]*policy.PolicyInstance
	templates *fakeTemplateRepo
}

func newFakeInstanceRepo(templates *fakeTemplateRepo) *fakeInstanceRepo {
	return &fakeInstanceRepo{
		byID:      make(map[uuid.UUID]*policy.PolicyInstance),
		templates: templates,
	}
}

func (r *fakeInstanceRepo) join(instance *policy.PolicyInstance) (*policy.InstanceWithTemplate, error) {
	tpl, ok := r.templates.byID[instance.TemplateID]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", instance.TemplateID, shared.ErrNotFound)
	}
	return &policy.InstanceWithTemplate{Instance: *instance, Template: *tpl}, nil
}

func (r *fakeInstanceRepo) FindByID(_ context.Context, id uuid.UUID) (*policy.PolicyInstance, error) {
	instance, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, shared.ErrNotFound)
	}
	copied := *instance
	return &copied, nil
}

func (r *fakeInstanceRepo) FindByIDWithTemplate(ctx context.Context, id uuid.UUID) (*policy.InstanceWithTemplate, error) {
	instance, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.join(instance)
}

func (r *fakeInstanceRepo) FindByClient(_ context.Context, clientID uuid.UUID) ([]policy.InstanceWithTemplate, error) {
	var out []policy.InstanceWithTemplate
	for _, instance := range r.byID {
		if instance.ClientID != clientID {
			continue
		}
		pair, err := r.join(instance)
		if err != nil {
			return nil, err
		}
		out = append(out, *pair)
	}
	return out, nil
}

func (r *fakeInstanceRepo) FindAll(_ context.Context, _ policy.ListOptions) ([]policy.InstanceWithTemplate, int64, error) {
	var out []policy.InstanceWithTemplate
	for _, instance := range r.byID {
		pair, err := r.join(instance)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pair)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInstanceRepo) FindExpiredWithStatusActive(_ context.Context, limit int) ([]policy.PolicyInstance, error) {
	now := time.Now()
	var out []policy.PolicyInstance
	for _, instance := range r.byID {
		if instance.Status == policy.InstanceStatusActive && instance.ExpiredAt(now) {
			out = append(out, *instance)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeInstanceRepo) FindExpiringWithin(_ context.Context, _ int, _ int) ([]policy.InstanceWithTemplate, error) {
	return nil, nil
}

func (r *fakeInstanceRepo) Save(_ context.Context, instance *policy.PolicyInstance) error {
	copied := *instance
	r.byID[instance.ID] = &copied
	return nil
}

func (r *fakeInstanceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

var _ policy.InstanceRepository = (*fakeInstanceRepo)(nil)

type fakeLegacyRepo struct {
	byID map[uuid.UUID]*policy.LegacyPolicy
}

func newFakeLegacyRepo() *fakeLegacyRepo {
	return &fakeLegacyRepo{byID: make(map[uuid.UUID]*policy.LegacyPolicy)}
}

func (r *fakeLegacyRepo) FindByID(_ context.Context, id uuid.UUID) (*policy.LegacyPolicy, error) {
	row, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, shared.ErrNotFound)
	}
	copied := *row
	return &copied, nil
}

func (r *fakeLegacyRepo) FindByClient(_ context.Context, clientID uuid.UUID) ([]policy.LegacyPolicy, error) {
	var out []policy.LegacyPolicy
	for _, row := range r.byID {
		if row.ClientID == clientID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeLegacyRepo) FindAll(_ context.Context, _ policy.ListOptions) ([]policy.LegacyPolicy, int64, error) {
	out := make([]policy.LegacyPolicy, 0, len(r.byID))
	for _, row := range r.byID {
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLegacyRepo) Save(_ context.Context, legacy *policy.LegacyPolicy) error {
	copied := *legacy
	r.byID[legacy.ID] = &copied
	return nil
}

func (r *fakeLegacyRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeLegacyRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.byID)), nil
}

var _ policy.LegacyPolicyRepository = (*fakeLegacyRepo)(nil)

type fakeAuditRepo struct {
	entries []audit.Entry
}

func (r *fakeAuditRepo) Record(_ context.Context, entry *audit.Entry) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) FindByEntity(_ context.Context, entityType string, entityID uuid.UUID, _ shared.Filter) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, entry := range r.entries {
		if entry.EntityType == entityType && entry.EntityID == entityID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) countByAction(action audit.Action) int {
	n := 0
	for _, entry := range r.entries {
		if entry.Action == action {
			n++
		}
	}
	return n
}

var _ audit.Repository = (*fakeAuditRepo)(nil)

// recordingCache captures invalidated keys
type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (c *recordingCache) Set(_ context.Context, _ string, _ any) error {
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

func (c *recordingCache) contains(key string) bool {
	for _, k := range c.invalidated {
		if k == key {
			return true
		}
	}
	return false
}

func (c *recordingCache) containsPrefix(prefix string) bool {
	for _, k := range c.invalidated {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// fixture wires a shim over fresh fakes
type fixture struct {
	templates *fakeTemplateRepo
	instances *fakeInstanceRepo
	legacy    *fakeLegacyRepo
	audits    *fakeAuditRepo
	cache     *recordingCache
	service   *PolicyCompatibilityService
}

func newFixture(cfg Config) *fixture {
	templates := newFakeTemplateRepo()
	instances := newFakeInstanceRepo(templates)
	legacy := newFakeLegacyRepo()
	audits := &fakeAuditRepo{}
	cache := &recordingCache{}
	scope := NewNoOpTransactionScope(templates, instances, legacy, audits)
	service := NewPolicyCompatibilityService(instances, legacy, scope, cache, zap.NewNop(), cfg)
	return &fixture{
		templates: templates,
		instances: instances,
		legacy:    legacy,
		audits:    audits,
		cache:     cache,
		service:   service,
	}
}

func (f *fixture) seedLegacy(clientID uuid.UUID, policyNumber string, premium float64) *policy.LegacyPolicy {
	row := &policy.LegacyPolicy{
		BaseEntity:   shared.NewBaseEntity(),
		PolicyNumber: policyNumber,
		Type:         policy.PolicyTypeAuto,
		Provider:     "Harel",
		Description:  "comprehensive coverage",
		ClientID:     clientID,
		Premium:      decimal.NewFromFloat(premium),
		Commission:   decimal.NewFromFloat(premium / 10),
		Status:       policy.InstanceStatusActive,
		StartDate:    time.Now().AddDate(0, -1, 0),
		ExpiryDate:   time.Now().AddDate(1, 0, 0),
	}
	if err := f.legacy.Save(context.Background(), row); err != nil {
		panic(err)
	}
	return row
}
