package model

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToolCallRecord is one executed tool call, embedded in message metadata.
// It is transient bookkeeping, not an entity of its own.
type ToolCallRecord struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
	OK        bool   `json:"ok"`
}

// MessageMetadata carries the per-message bookkeeping that is not part of
// the conversational content.
type MessageMetadata struct {
	// ChannelMessageID is the channel-native id of the inbound message;
	// set on user messages and used by the dedup gate.
	ChannelMessageID string `json:"channel_message_id,omitempty"`

	// Provider is the LLM provider that produced an assistant message.
	Provider string `json:"provider,omitempty"`

	// ToolCalls is the ordered log of tool executions behind an
	// assistant message.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// ProductIDs are the catalog products referenced while producing the
	// reply, extracted for downstream analytics.
	ProductIDs []string `json:"product_ids,omitempty"`
}

// Message is one stored conversation turn. Messages are immutable once
// written; ordering within a conversation is by CreatedAt.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           string          `json:"role"`
	Content        string          `json:"content"`
	Metadata       MessageMetadata `json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewUserMessage creates a user message carrying its channel-native id
func NewUserMessage(conversationID, content, channelMessageID string) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleUser,
		Content:        content,
		Metadata:       MessageMetadata{ChannelMessageID: channelMessageID},
		CreatedAt:      time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with its tool-call log
// and the provider that produced it.
func NewAssistantMessage(conversationID, content string, meta MessageMetadata) *Message {
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           RoleAssistant,
		Content:        content,
		Metadata:       meta,
		CreatedAt:      time.Now(),
	}
}
