package policy

import (
	"fmt"
	"time"

	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstanceStatus is the stored lifecycle state of a policy instance.
// It is a cached projection maintained by the expiry sweep; derived
// activity checks compare ExpiryDate against the clock instead.
type InstanceStatus string

const (
	InstanceStatusActive  InstanceStatus = "ACTIVE"
	InstanceStatusExpired InstanceStatus = "EXPIRED"
)

// PolicyInstance is a client's concrete subscription to a template
type PolicyInstance struct {
	shared.BaseEntity
	TemplateID uuid.UUID
	ClientID   uuid.UUID
	Premium    decimal.Decimal
	Commission decimal.Decimal
	Status     InstanceStatus
	StartDate  time.Time
	ExpiryDate time.Time
}

// NewPolicyInstance creates a validated policy instance
func NewPolicyInstance(templateID, clientID uuid.UUID, premium, commission decimal.Decimal, startDate, expiryDate time.Time) (*PolicyInstance, error) {
	if templateID == uuid.Nil {
		return nil, fmt.Errorf("%w: template id is required", shared.ErrInvalidInput)
	}
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("%w: client id is required", shared.ErrInvalidInput)
	}
	if premium.IsNegative() {
		return nil, fmt.Errorf("%w: premium cannot be negative", shared.ErrInvalidInput)
	}
	if commission.IsNegative() {
		return nil, fmt.Errorf("%w: commission cannot be negative", shared.ErrInvalidInput)
	}
	if !startDate.Before(expiryDate) {
		return nil, fmt.Errorf("%w: start date must precede expiry date", shared.ErrInvalidInput)
	}
	return &PolicyInstance{
		BaseEntity: shared.NewBaseEntity(),
		TemplateID: templateID,
		ClientID:   clientID,
		Premium:    premium,
		Commission: commission,
		Status:     InstanceStatusActive,
		StartDate:  startDate,
		ExpiryDate: expiryDate,
	}, nil
}

// ActiveAt reports whether the instance is in force at the given time,
// derived from its coverage window rather than the stored status
func (i *PolicyInstance) ActiveAt(now time.Time) bool {
	return !i.StartDate.After(now) && i.ExpiryDate.After(now)
}

// ExpiredAt reports whether the coverage window has lapsed at the given time
func (i *PolicyInstance) ExpiredAt(now time.Time) bool {
	return !i.ExpiryDate.After(now)
}

// DaysUntilExpiry returns the number of days until the instance expires,
// using ceiling division over the millisecond difference. The result is
// negative for instances that have already expired.
func (i *PolicyInstance) DaysUntilExpiry(now time.Time) int {
	const dayMillis = 24 * 60 * 60 * 1000
	diff := i.ExpiryDate.UnixMilli() - now.UnixMilli()
	if diff >= 0 {
		return int((diff + dayMillis - 1) / dayMillis)
	}
	return int(-((-diff + dayMillis - 1) / dayMillis))
}

// MarkExpired transitions the stored status to EXPIRED
func (i *PolicyInstance) MarkExpired() {
	i.Status = InstanceStatusExpired
	i.Touch()
}
