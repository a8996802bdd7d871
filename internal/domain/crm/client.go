package crm

import (
	"fmt"
	"strings"

	"github.com/agency/backoffice/internal/domain/shared"
)

// Client is an insured customer referenced by both policy representations.
// The statistics and compatibility layers read clients but never mutate them.
type Client struct {
	shared.BaseEntity
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// NewClient creates a validated client
func NewClient(firstName, lastName, email, phone string) (*Client, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return nil, fmt.Errorf("%w: client name is required", shared.ErrInvalidInput)
	}
	return &Client{
		BaseEntity: shared.NewBaseEntity(),
		FirstName:  firstName,
		LastName:   lastName,
		Email:      strings.TrimSpace(email),
		Phone:      strings.TrimSpace(phone),
	}, nil
}

// FullName returns the display name used in listings and reminders
func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
