package persistence

import (
	"context"

	apppolicy "github.com/agency/backoffice/internal/application/policy"
	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/agency/backoffice/internal/domain/policy"
	"gorm.io/gorm"
)

// GormTransactionScope implements the policy TransactionScope using GORM
// transactions. Migrate-on-read runs inside it so a legacy row is only
// deleted when its normalized replacement committed.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppolicy.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to the policy
// repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Templates returns the template repository scoped to the current transaction
func (r *gormTransactionalRepositories) Templates() policy.TemplateRepository {
	return NewGormTemplateRepository(r.tx)
}

// Instances returns the instance repository scoped to the current transaction
func (r *gormTransactionalRepositories) Instances() policy.InstanceRepository {
	return NewGormInstanceRepository(r.tx)
}

// Legacy returns the legacy policy repository scoped to the current transaction
func (r *gormTransactionalRepositories) Legacy() policy.LegacyPolicyRepository {
	return NewGormLegacyPolicyRepository(r.tx)
}

// Audit returns the audit log repository scoped to the current transaction
func (r *gormTransactionalRepositories) Audit() audit.Repository {
	return NewGormAuditRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apppolicy.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apppolicy.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
