package models

import (
	"time"

	"github.com/agency/backoffice/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is the GORM model for audit log entries. Entries are
// append-only and never updated.
type AuditLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Actor      string    `gorm:"type:varchar(100);not null"`
	Action     string    `gorm:"type:varchar(20);not null;index"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity"`
	Detail     string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for AuditLogModel
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts AuditLogModel to a domain audit entry
func (m *AuditLogModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		ID:         m.ID,
		Actor:      m.Actor,
		Action:     audit.Action(m.Action),
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Detail:     m.Detail,
		CreatedAt:  m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates an AuditLogModel from a domain audit entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:         e.ID,
		Actor:      e.Actor,
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
}
