package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationClosed ConversationStatus = "closed"
)

// Conversation is a bounded dialogue session. Conversation identity is a
// function of recent activity: at most one active conversation exists per
// (customer, channel) within the recency window, and a new one is created
// once the window elapses.
type Conversation struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	Channel      string             `json:"channel"`
	Status       ConversationStatus `json:"status"`
	LastActivity time.Time          `json:"last_activity"`
	CreatedAt    time.Time          `json:"created_at"`
}

// NewConversation creates an active conversation for a customer on a channel
func NewConversation(customerID, channel string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:           uuid.NewString(),
		CustomerID:   customerID,
		Channel:      channel,
		Status:       ConversationActive,
		LastActivity: now,
		CreatedAt:    now,
	}
}

// ActiveWithin reports whether the conversation counts as the active one for
// its (customer, channel) at the given moment.
func (c *Conversation) ActiveWithin(window time.Duration, now time.Time) bool {
	return c.Status == ConversationActive && now.Sub(c.LastActivity) <= window
}
