package audit

import (
	"context"
	"time"

	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Action identifies what happened to an entity
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionMigrate Action = "MIGRATE"
	ActionRemind  Action = "REMIND"
)

// Entry is one immutable audit log record
type Entry struct {
	ID         uuid.UUID
	Actor      string
	Action     Action
	EntityType string
	EntityID   uuid.UUID
	Detail     string
	CreatedAt  time.Time
}

// NewEntry creates an audit entry stamped with the current time
func NewEntry(actor string, action Action, entityType string, entityID uuid.UUID, detail string) *Entry {
	return &Entry{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now(),
	}
}

// Repository persists audit entries. Entries are append-only.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, filter shared.Filter) ([]Entry, error)
}
