package policy

import (
	"context"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/policy"
)

// TransactionScope provides transactional access to the policy repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Migrate-on-read depends on this: a legacy row must never
// be deleted unless its normalized replacement was written.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the policy repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
type TransactionalRepositories interface {
	// Templates returns the template repository scoped to the current transaction
	Templates() policy.TemplateRepository
	// Instances returns the instance repository scoped to the current transaction
	Instances() policy.InstanceRepository
	// Legacy returns the legacy policy repository scoped to the current transaction
	Legacy() policy.LegacyPolicyRepository
	// Audit returns the audit log repository scoped to the current transaction
	Audit() audit.Repository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	templates policy.TemplateRepository
	instances policy.InstanceRepository
	legacy    policy.LegacyPolicyRepository
	audit     audit.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	templates policy.TemplateRepository,
	instances policy.InstanceRepository,
	legacy policy.LegacyPolicyRepository,
	auditRepo audit.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		templates: templates,
		instances: instances,
		legacy:    legacy,
		audit:     auditRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Templates returns the template repository.
func (s *NoOpTransactionScope) Templates() policy.TemplateRepository {
	return s.templates
}

// Instances returns the instance repository.
func (s *NoOpTransactionScope) Instances() policy.InstanceRepository {
	return s.instances
}

// Legacy returns the legacy policy repository.
func (s *NoOpTransactionScope) Legacy() policy.LegacyPolicyRepository {
	return s.legacy
}

// Audit returns the audit log repository.
func (s *NoOpTransactionScope) Audit() audit.Repository {
	return s.audit
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
