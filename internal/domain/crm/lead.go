package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/agency/backoffice/internal/domain/shared"
)

// LeadStatus tracks a prospect through the sales funnel
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusConverted LeadStatus = "CONVERTED"
	LeadStatusLost      LeadStatus = "LOST"
)

// IsValid reports whether the status is one of the supported values
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost:
		return true
	}
	return false
}

// Lead is a prospect that may convert into a client
type Lead struct {
	shared.BaseEntity
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Source      string
	Status      LeadStatus
	ConvertedAt *time.Time
}

// NewLead creates a validated lead in the NEW state
func NewLead(firstName, lastName, email, phone, source string) (*Lead, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return nil, fmt.Errorf("%w: lead name is required", shared.ErrInvalidInput)
	}
	return &Lead{
		BaseEntity: shared.NewBaseEntity(),
		FirstName:  firstName,
		LastName:   lastName,
		Email:      strings.TrimSpace(email),
		Phone:      strings.TrimSpace(phone),
		Source:     strings.TrimSpace(source),
		Status:     LeadStatusNew,
	}, nil
}

// Convert marks the lead as converted to a client
func (l *Lead) Convert() error {
	if l.Status == LeadStatusConverted {
		return fmt.Errorf("%w: lead already converted", shared.ErrInvalidState)
	}
	now := time.Now()
	l.Status = LeadStatusConverted
	l.ConvertedAt = &now
	l.Touch()
	return nil
}
