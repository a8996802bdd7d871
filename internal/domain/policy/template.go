package policy

import (
	"fmt"
	"strings"

	"github.com/agency/backoffice/internal/domain/shared"
)

// PolicyType classifies the line of business a template belongs to
type PolicyType string

const (
	PolicyTypeLife     PolicyType = "LIFE"
	PolicyTypeHealth   PolicyType = "HEALTH"
	PolicyTypeAuto     PolicyType = "AUTO"
	PolicyTypeHome     PolicyType = "HOME"
	PolicyTypeBusiness PolicyType = "BUSINESS"
)

// AllPolicyTypes returns every supported policy type
func AllPolicyTypes() []PolicyType {
	return []PolicyType{
		PolicyTypeLife,
		PolicyTypeHealth,
		PolicyTypeAuto,
		PolicyTypeHome,
		PolicyTypeBusiness,
	}
}

// IsValid reports whether the policy type is one of the supported values
func (t PolicyType) IsValid() bool {
	switch t {
	case PolicyTypeLife, PolicyTypeHealth, PolicyTypeAuto, PolicyTypeHome, PolicyTypeBusiness:
		return true
	}
	return false
}

// ParsePolicyType converts a string into a PolicyType, case-insensitively
func ParsePolicyType(s string) (PolicyType, error) {
	t := PolicyType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown policy type %q", shared.ErrInvalidInput, s)
	}
	return t, nil
}

// PolicyTemplate is a catalog entry describing a product an agency sells.
// Its identity (number, type, provider) is immutable once instances
// reference it; deleting a template cascades removal of its instances.
type PolicyTemplate struct {
	shared.BaseEntity
	PolicyNumber string
	Type         PolicyType
	Provider     string
	Description  string
}

// NewPolicyTemplate creates a validated policy template
func NewPolicyTemplate(policyNumber string, policyType PolicyType, provider, description string) (*PolicyTemplate, error) {
	policyNumber = strings.TrimSpace(policyNumber)
	provider = strings.TrimSpace(provider)
	if policyNumber == "" {
		return nil, fmt.Errorf("%w: policy number is required", shared.ErrInvalidInput)
	}
	if !policyType.IsValid() {
		return nil, fmt.Errorf("%w: unknown policy type %q", shared.ErrInvalidInput, policyType)
	}
	if provider == "" {
		return nil, fmt.Errorf("%w: provider is required", shared.ErrInvalidInput)
	}
	return &PolicyTemplate{
		BaseEntity:   shared.NewBaseEntity(),
		PolicyNumber: policyNumber,
		Type:         policyType,
		Provider:     provider,
		Description:  description,
	}, nil
}
