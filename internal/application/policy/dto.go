package policy

import (
	"time"

	"github.com/agency/backoffice/internal/domain/policy"
)

// UnifiedPolicyData is the external shape of one policy record regardless
// of its storage representation. Field names are part of the contract
// consumed by the UI and must not change.
type UnifiedPolicyData struct {
	ID             string    `json:"id"`
	PolicyNumber   string    `json:"policyNumber"`
	PolicyType     string    `json:"policyType"`
	Provider       string    `json:"provider"`
	Description    string    `json:"description"`
	ClientID       string    `json:"clientId"`
	Premium        float64   `json:"premium"`
	Commission     float64   `json:"commission"`
	Status         string    `json:"status"`
	StartDate      time.Time `json:"startDate"`
	ExpiryDate     time.Time `json:"expiryDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	IsFromTemplate bool      `json:"isFromTemplate"`
	TemplateID     *string   `json:"templateId,omitempty"`
}

// toUnifiedData maps the domain union into the external shape
func toUnifiedData(u policy.UnifiedPolicy) UnifiedPolicyData {
	premium, _ := u.Premium.Float64()
	commission, _ := u.Commission.Float64()
	data := UnifiedPolicyData{
		ID:             u.ID.String(),
		PolicyNumber:   u.PolicyNumber,
		PolicyType:     string(u.Type),
		Provider:       u.Provider,
		Description:    u.Description,
		ClientID:       u.ClientID.String(),
		Premium:        premium,
		Commission:     commission,
		Status:         string(u.Status),
		StartDate:      u.StartDate,
		ExpiryDate:     u.ExpiryDate,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		IsFromTemplate: u.IsFromTemplate,
	}
	if u.TemplateID != nil {
		id := u.TemplateID.String()
		data.TemplateID = &id
	}
	return data
}

// PolicyPage is one page of unified policy records. When both storage
// representations are consulted the total is the sum of both counts.
type PolicyPage struct {
	Policies []UnifiedPolicyData `json:"policies"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	Limit    int                 `json:"limit"`
}

// CreatePolicyInput carries the fields for creating a policy through the
// unified surface
type CreatePolicyInput struct {
	ClientID     string    `json:"clientId" binding:"required,uuid"`
	PolicyNumber string    `json:"policyNumber" binding:"required"`
	PolicyType   string    `json:"policyType" binding:"required"`
	Provider     string    `json:"provider" binding:"required"`
	Description  string    `json:"description"`
	Premium      float64   `json:"premium" binding:"gte=0"`
	Commission   float64   `json:"commission" binding:"gte=0"`
	StartDate    time.Time `json:"startDate" binding:"required"`
	ExpiryDate   time.Time `json:"expiryDate" binding:"required"`
}

// UpdatePolicyInput carries a partial update; nil fields are left unchanged
type UpdatePolicyInput struct {
	Premium    *float64   `json:"premium" binding:"omitempty,gte=0"`
	Commission *float64   `json:"commission" binding:"omitempty,gte=0"`
	StartDate  *time.Time `json:"startDate"`
	ExpiryDate *time.Time `json:"expiryDate"`
	Status     *string    `json:"status" binding:"omitempty,oneof=ACTIVE EXPIRED"`
}

// SystemStatus reports the active compatibility configuration and a
// human-readable description of the operating mode
type SystemStatus struct {
	UseTemplateSystem bool   `json:"useTemplateSystem"`
	AllowFallback     bool   `json:"allowFallback"`
	MigrateOnRead     bool   `json:"migrateOnRead"`
	Mode              string `json:"mode"`
}
