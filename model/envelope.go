package model

// InboundMessage is the channel-agnostic envelope produced by a transport
// adapter for one inbound customer message.
type InboundMessage struct {
	ChannelMessageID string          `json:"channel_message_id"`
	Channel          string          `json:"channel"`
	Identity         ChannelIdentity `json:"identity"`
	Text             string          `json:"text"`
}

// Reply is the outbound envelope returned to the channel adapter.
type Reply struct {
	Text     string           `json:"reply_text"`
	Provider string           `json:"provider_used"`
	ToolLog  []ToolCallRecord `json:"tool_calls"`
}
