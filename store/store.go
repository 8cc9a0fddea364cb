// Package store is the durable persistence boundary: the append-only
// message log plus customer and conversation records. Implementations:
// in-memory (tests, development), SQL via sqlx (SQLite or Postgres), and
// MongoDB.
package store

import (
	"context"
	"errors"
	"time"

	"shopmate/model"
)

// ErrNotFound reports that a record does not exist
var ErrNotFound = errors.New("store: not found")

// Store is the only persistence surface the core uses. Messages are
// append-only and immutable once inserted; customers and conversations are
// owned by the identity resolver, which is the sole mutator.
type Store interface {
	// InsertMessage appends a message to its conversation's log.
	InsertMessage(ctx context.Context, msg *model.Message) error

	// RecentMessages returns up to limit most-recent messages of a
	// conversation, excluding role "system", in chronological order.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]*model.Message, error)

	// HasChannelMessageID reports whether a user message carrying this
	// channel-native id has already been persisted.
	HasChannelMessageID(ctx context.Context, channelMessageID string) (bool, error)

	// FindCustomerByIdentity looks a customer up by phone (preferred)
	// or email. Returns ErrNotFound when absent.
	FindCustomerByIdentity(ctx context.Context, identity model.ChannelIdentity) (*model.Customer, error)

	// GetCustomer loads a customer by id. Returns ErrNotFound when absent.
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)

	// InsertCustomer stores a newly created customer.
	InsertCustomer(ctx context.Context, customer *model.Customer) error

	// UpdateCustomer persists attribute changes on an existing customer.
	UpdateCustomer(ctx context.Context, customer *model.Customer) error

	// FindActiveConversation returns the most recently active
	// conversation for (customer, channel) with activity at or after
	// since. Returns ErrNotFound when none qualifies.
	FindActiveConversation(ctx context.Context, customerID, channel string, since time.Time) (*model.Conversation, error)

	// InsertConversation stores a newly created conversation.
	InsertConversation(ctx context.Context, conv *model.Conversation) error

	// TouchConversation advances a conversation's last-activity time.
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error

	// Close releases underlying resources.
	Close() error
}
