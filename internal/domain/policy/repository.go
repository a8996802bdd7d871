package policy

import (
	"context"

	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// TemplateFilter narrows template-level queries. Search matches a
// substring of policy number, provider or policy type.
type TemplateFilter struct {
	shared.Filter
	Types        []PolicyType
	Providers    []string
	HasInstances *bool
}

// IsZero reports whether the filter constrains nothing, which makes the
// corresponding stats query eligible for the default cache key
func (f TemplateFilter) IsZero() bool {
	return f.Search == "" && len(f.Types) == 0 && len(f.Providers) == 0 && f.HasInstances == nil
}

// ListOptions narrows unified policy listings across both representations
type ListOptions struct {
	Page     int
	Limit    int
	Search   string
	Status   *InstanceStatus
	Type     *PolicyType
	Provider string
}

// Offset returns the row offset for the requested page
func (o ListOptions) Offset() int {
	page := o.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * o.PageLimit()
}

// PageLimit returns the page size, applying the default when unset
func (o ListOptions) PageLimit() int {
	if o.Limit <= 0 {
		return 20
	}
	return o.Limit
}

// InstanceWithTemplate pairs an instance with its catalog template for
// call sites that need the joined view
type InstanceWithTemplate struct {
	Instance PolicyInstance
	Template PolicyTemplate
}

// TemplateRepository persists policy templates
type TemplateRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PolicyTemplate, error)
	FindByPolicyNumber(ctx context.Context, policyNumber string) (*PolicyTemplate, error)
	FindAll(ctx context.Context, filter TemplateFilter) ([]PolicyTemplate, error)
	Save(ctx context.Context, template *PolicyTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter TemplateFilter) (int64, error)
}

// InstanceRepository persists policy instances
type InstanceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PolicyInstance, error)
	FindByIDWithTemplate(ctx context.Context, id uuid.UUID) (*InstanceWithTemplate, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]InstanceWithTemplate, error)
	FindAll(ctx context.Context, opts ListOptions) ([]InstanceWithTemplate, int64, error)
	FindExpiredWithStatusActive(ctx context.Context, limit int) ([]PolicyInstance, error)
	FindExpiringWithin(ctx context.Context, days int, limit int) ([]InstanceWithTemplate, error)
	Save(ctx context.Context, instance *PolicyInstance) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LegacyPolicyRepository persists the flat pre-migration policy rows
type LegacyPolicyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*LegacyPolicy, error)
	FindByClient(ctx context.Context, clientID uuid.UUID) ([]LegacyPolicy, error)
	FindAll(ctx context.Context, opts ListOptions) ([]LegacyPolicy, int64, error)
	Save(ctx context.Context, legacy *LegacyPolicy) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}
