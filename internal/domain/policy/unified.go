package policy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnifiedPolicy presents one policy record regardless of which storage
// representation it came from. IsFromTemplate tags the source: true for
// normalized template+instance rows, false for legacy flat rows.
type UnifiedPolicy struct {
	ID           uuid.UUID
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
	CreatedAt    time.Time
	UpdatedAt    time.Time

	IsFromTemplate bool
	TemplateID     *uuid.UUID
}

// UnifyInstance maps a normalized instance plus its template into the unified shape
func UnifyInstance(instance *PolicyInstance, template *PolicyTemplate) UnifiedPolicy {
	templateID := template.ID
	return UnifiedPolicy{
		ID:             instance.ID,
		PolicyNumber:   template.PolicyNumber,
		Type:           template.Type,
		Provider:       template.Provider,
		Description:    template.Description,
		ClientID:       instance.ClientID,
		Premium:        instance.Premium,
		Commission:     instance.Commission,
		Status:         instance.Status,
		StartDate:      instance.StartDate,
		ExpiryDate:     instance.ExpiryDate,
		CreatedAt:      instance.CreatedAt,
		UpdatedAt:      instance.UpdatedAt,
		IsFromTemplate: true,
		TemplateID:     &templateID,
	}
}

// UnifyLegacy maps a legacy flat row into the unified shape
func UnifyLegacy(legacy *LegacyPolicy) UnifiedPolicy {
	return UnifiedPolicy{
		ID:             legacy.ID,
		PolicyNumber:   legacy.PolicyNumber,
		Type:           legacy.Type,
		Provider:       legacy.Provider,
		Description:    legacy.Description,
		ClientID:       legacy.ClientID,
		Premium:        legacy.Premium,
		Commission:     legacy.Commission,
		Status:         legacy.Status,
		StartDate:      legacy.StartDate,
		ExpiryDate:     legacy.ExpiryDate,
		CreatedAt:      legacy.CreatedAt,
		UpdatedAt:      legacy.UpdatedAt,
		IsFromTemplate: false,
	}
}
