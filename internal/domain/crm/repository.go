package crm

import (
	"context"
	"time"

	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ClientRepository persists clients
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Client, error)
	Save(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// LeadRepository persists leads
type LeadRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Lead, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Lead, error)
	Save(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}
