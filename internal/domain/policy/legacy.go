package policy

import (
	"time"

	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LegacyPolicy is the flat pre-migration policy row: a merged
// template+instance scoped to a single client. It coexists with the
// normalized representation until migration completes.
type LegacyPolicy struct {
	shared.BaseEntity
	PolicyNumber string
	Type         PolicyType
	Provider     string
	Description  string
	ClientID     uuid.UUID
	Premium      decimal.Decimal
	Commission   decimal.Decimal
	Status       InstanceStatus
	StartDate    time.Time
	ExpiryDate   time.Time
}
