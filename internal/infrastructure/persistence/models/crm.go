package models

import (
	"time"

	"github.com/agency/backoffice/internal/domain/crm"
)

// ClientModel is the GORM model for clients
type ClientModel struct {
	BaseModel
	FirstName string `gorm:"type:varchar(100);not null"`
	LastName  string `gorm:"type:varchar(100);not null"`
	Email     string `gorm:"type:varchar(255);index"`
	Phone     string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for ClientModel
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts ClientModel to domain Client
func (m *ClientModel) ToDomain() *crm.Client {
	return &crm.Client{
		BaseEntity: m.BaseModel.ToDomain(),
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Email:      m.Email,
		Phone:      m.Phone,
	}
}

// ClientModelFromDomain creates a ClientModel from domain Client
func ClientModelFromDomain(c *crm.Client) *ClientModel {
	model := &ClientModel{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
	model.FromDomainBaseEntity(c.BaseEntity)
	return model
}

// LeadModel is the GORM model for leads
type LeadModel struct {
	BaseModel
	FirstName   string     `gorm:"type:varchar(100);not null"`
	LastName    string     `gorm:"type:varchar(100);not null"`
	Email       string     `gorm:"type:varchar(255)"`
	Phone       string     `gorm:"type:varchar(50)"`
	Source      string     `gorm:"type:varchar(100)"`
	Status      string     `gorm:"type:varchar(20);not null;index"`
	ConvertedAt *time.Time `gorm:""`
}

// TableName returns the table name for LeadModel
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts LeadModel to domain Lead
func (m *LeadModel) ToDomain() *crm.Lead {
	return &crm.Lead{
		BaseEntity:  m.BaseModel.ToDomain(),
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Email:       m.Email,
		Phone:       m.Phone,
		Source:      m.Source,
		Status:      crm.LeadStatus(m.Status),
		ConvertedAt: m.ConvertedAt,
	}
}

// LeadModelFromDomain creates a LeadModel from domain Lead
func LeadModelFromDomain(l *crm.Lead) *LeadModel {
	model := &LeadModel{
		FirstName:   l.FirstName,
		LastName:    l.LastName,
		Email:       l.Email,
		Phone:       l.Phone,
		Source:      l.Source,
		Status:      string(l.Status),
		ConvertedAt: l.ConvertedAt,
	}
	model.FromDomainBaseEntity(l.BaseEntity)
	return model
}
