package models

import (
	"time"

	"github.com/agency/backoffice/internal/domain/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyTemplateModel is the GORM model for policy templates
type PolicyTemplateModel struct {
	BaseModel
	PolicyNumber string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Type         string `gorm:"type:varchar(20);not null;index"`
	Provider     string `gorm:"type:varchar(255);not null;index"`
	Description  string `gorm:"type:text"`
}

// TableName returns the table name for PolicyTemplateModel
func (PolicyTemplateModel) TableName() string {
	return "policy_templates"
}

// ToDomain converts PolicyTemplateModel to domain PolicyTemplate
func (m *PolicyTemplateModel) ToDomain() *policy.PolicyTemplate {
	return &policy.PolicyTemplate{
		BaseEntity:   m.BaseModel.ToDomain(),
		PolicyNumber: m.PolicyNumber,
		Type:         policy.PolicyType(m.Type),
		Provider:     m.Provider,
		Description:  m.Description,
	}
}

// PolicyTemplateModelFromDomain creates a PolicyTemplateModel from domain PolicyTemplate
func PolicyTemplateModelFromDomain(t *policy.PolicyTemplate) *PolicyTemplateModel {
	model := &PolicyTemplateModel{
		PolicyNumber: t.PolicyNumber,
		Type:         string(t.Type),
		Provider:     t.Provider,
		Description:  t.Description,
	}
	model.FromDomainBaseEntity(t.BaseEntity)
	return model
}

// PolicyInstanceModel is the GORM model for policy instances
type PolicyInstanceModel struct {
	BaseModel
	TemplateID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClientID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Premium    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Commission decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status     string          `gorm:"type:varchar(20);not null;index"`
	StartDate  time.Time       `gorm:"not null"`
	ExpiryDate time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for PolicyInstanceModel
func (PolicyInstanceModel) TableName() string {
	return "policy_instances"
}

// ToDomain converts PolicyInstanceModel to domain PolicyInstance
func (m *PolicyInstanceModel) ToDomain() *policy.PolicyInstance {
	return &policy.PolicyInstance{
		BaseEntity: m.BaseModel.ToDomain(),
		TemplateID: m.TemplateID,
		ClientID:   m.ClientID,
		Premium:    m.Premium,
		Commission: m.Commission,
		Status:     policy.InstanceStatus(m.Status),
		StartDate:  m.StartDate,
		ExpiryDate: m.ExpiryDate,
	}
}

// PolicyInstanceModelFromDomain creates a PolicyInstanceModel from domain PolicyInstance
func PolicyInstanceModelFromDomain(i *policy.PolicyInstance) *PolicyInstanceModel {
	model := &PolicyInstanceModel{
		TemplateID: i.TemplateID,
		ClientID:   i.ClientID,
		Premium:    i.Premium,
		Commission: i.Commission,
		Status:     string(i.Status),
		StartDate:  i.StartDate,
		ExpiryDate: i.ExpiryDate,
	}
	model.FromDomainBaseEntity(i.BaseEntity)
	return model
}

// LegacyPolicyModel is the GORM model for the flat pre-migration policy
// table. Rows are deleted as migrate-on-read moves them into the
// normalized tables.
type LegacyPolicyModel struct {
	BaseModel
	PolicyNumber string          `gorm:"type:varchar(100);not null;index"`
	Type         string          `gorm:"type:varchar(20);not null;index"`
	Provider     string          `gorm:"type:varchar(255);not null"`
	Description  string          `gorm:"type:text"`
	ClientID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Premium      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Commission   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status       string          `gorm:"type:varchar(20);not null;index"`
	StartDate    time.Time       `gorm:"not null"`
	ExpiryDate   time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for LegacyPolicyModel
func (LegacyPolicyModel) TableName() string {
	return "policies"
}

// ToDomain converts LegacyPolicyModel to domain LegacyPolicy
func (m *LegacyPolicyModel) ToDomain() *policy.LegacyPolicy {
	return &policy.LegacyPolicy{
		BaseEntity:   m.BaseModel.ToDomain(),
		PolicyNumber: m.PolicyNumber,
		Type:         policy.PolicyType(m.Type),
		Provider:     m.Provider,
		Description:  m.Description,
		ClientID:     m.ClientID,
		Premium:      m.Premium,
		Commission:   m.Commission,
		Status:       policy.InstanceStatus(m.Status),
		StartDate:    m.StartDate,
		ExpiryDate:   m.ExpiryDate,
	}
}

// LegacyPolicyModelFromDomain creates a LegacyPolicyModel from domain LegacyPolicy
func LegacyPolicyModelFromDomain(p *policy.LegacyPolicy) *LegacyPolicyModel {
	model := &LegacyPolicyModel{
		PolicyNumber: p.PolicyNumber,
		Type:         string(p.Type),
		Provider:     p.Provider,
		Description:  p.Description,
		ClientID:     p.ClientID,
		Premium:      p.Premium,
		Commission:   p.Commission,
		Status:       string(p.Status),
		StartDate:    p.StartDate,
		ExpiryDate:   p.ExpiryDate,
	}
	model.FromDomainBaseEntity(p.BaseEntity)
	return model
}
