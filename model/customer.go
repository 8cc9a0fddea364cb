package model

import (
	"time"

	"github.com/google/uuid"
)

// ChannelIdentity is the identity a message arrives with: the channel name
// plus whichever of phone/email the channel natively carries.
type ChannelIdentity struct {
	Channel     string `json:"channel"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Key returns the identity value used for customer lookup: phone when
// present, otherwise email.
func (ci ChannelIdentity) Key() string {
	if ci.Phone != "" {
		return ci.Phone
	}
	return ci.Email
}

// Valid reports whether the identity carries at least one lookup key.
func (ci ChannelIdentity) Valid() bool {
	return ci.Phone != "" || ci.Email != ""
}

// Customer is the identity anchor. A customer is created on first contact
// and never deleted; newly discovered identities (an email typed into a
// phone-channel conversation) and the commerce-platform link are attached
// as they are observed.
type Customer struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CommerceID  string    `json:"commerce_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCustomer creates a customer from a first-contact identity
func NewCustomer(identity ChannelIdentity) *Customer {
	now := time.Now()
	return &Customer{
		ID:          uuid.NewString(),
		Phone:       identity.Phone,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OrderLookupsEnabled reports whether customer-data tools may run for this
// customer: true only when a verified commerce-platform id is linked.
func (c *Customer) OrderLookupsEnabled() bool {
	return c.CommerceID != ""
}
