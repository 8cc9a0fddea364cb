package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopmate/model"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu            sync.RWMutex
	messages      map[string][]*model.Message // conversationID -> ordered log
	channelMsgIDs map[string]bool
	customers     map[string]*model.Customer
	conversations map[string]*model.Conversation
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:      make(map[string][]*model.Message),
		channelMsgIDs: make(map[string]bool),
		customers:     make(map[string]*model.Customer),
		conversations: make(map[string]*model.Conversation),
	}
}

// InsertMessage appends a message to its conversation's log
func (s *MemoryStore) InsertMessage(_ context.Context, msg *model.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &copied)
	if msg.Role == model.RoleUser && msg.Metadata.ChannelMessageID != "" {
		s.channelMsgIDs[msg.Metadata.ChannelMessageID] = true
	}
	return nil
}

// RecentMessages returns the trailing window of a conversation's log
func (s *MemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[conversationID]
	out := make([]*model.Message, 0, len(log))
	for _, msg := range log {
		if msg.Role == model.RoleSystem {
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// HasChannelMessageID reports whether this channel-native id was persisted
func (s *MemoryStore) HasChannelMessageID(_ context.Context, channelMessageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelMsgIDs[channelMessageID], nil
}

// FindCustomerByIdentity looks a customer up by phone or email
func (s *MemoryStore) FindCustomerByIdentity(_ context.Context, identity model.ChannelIdentity) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if identity.Phone != "" && c.Phone == identity.Phone {
			copied := *c
			return &copied, nil
		}
		if identity.Email != "" && c.Email == identity.Email {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetCustomer loads a customer by id
func (s *MemoryStore) GetCustomer(_ context.Context, id string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

// InsertCustomer stores a new customer
func (s *MemoryStore) InsertCustomer(_ context.Context, customer *model.Customer) error {
	if customer == nil {
		return fmt.Errorf("customer cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *customer
	s.customers[customer.ID] = &copied
	return nil
}

// UpdateCustomer persists attribute changes
func (s *MemoryStore) UpdateCustomer(_ context.Context, customer *model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[customer.ID]; !ok {
		return ErrNotFound
	}
	copied := *customer
	copied.UpdatedAt = time.Now()
	s.customers[customer.ID] = &copied
	return nil
}

// FindActiveConversation returns the freshest active conversation in window
func (s *MemoryStore) FindActiveConversation(_ context.Context, customerID, channel string, since time.Time) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Conversation
	for _, conv := range s.conversations {
		if conv.CustomerID != customerID || conv.Channel != channel {
			continue
		}
		if conv.Status != model.ConversationActive || conv.LastActivity.Before(since) {
			continue
		}
		if best == nil || conv.LastActivity.After(best.LastActivity) {
			best = conv
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	copied := *best
	return &copied, nil
}

// InsertConversation stores a new conversation
func (s *MemoryStore) InsertConversation(_ context.Context, conv *model.Conversation) error {
	if conv == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *conv
	s.conversations[conv.ID] = &copied
	return nil
}

// TouchConversation advances last-activity
func (s *MemoryStore) TouchConversation(_ context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.LastActivity = at
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
