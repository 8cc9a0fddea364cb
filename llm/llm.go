// Package llm defines the provider-agnostic chat-completion surface the
// orchestrator speaks, plus adapters for the concrete providers.
package llm

import "context"

// FixedFallbackReply is the static message returned when every provider in
// the chain has failed, or when the tool loop reaches its iteration ceiling
// without a final answer. It is a successful reply, never an error.
const FixedFallbackReply = "I'm sorry, I'm having trouble answering right now. Please try again in a moment, or contact our support team if it's urgent."

// Message represents a single chat message (provider-agnostic).
type Message struct {
	Role       string     // "system", "user", "assistant", "tool"
	Content    string     // text content
	ToolCallID string     // for tool result messages
	Name       string     // tool name on tool result messages
	ToolCalls  []ToolCall // for assistant messages requesting tool calls
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string // unique call ID
	Name      string // function name
	Arguments string // JSON-encoded arguments
}

// Tool describes a callable tool/function definition.
type Tool struct {
	Name        string         // function name
	Description string         // human-readable description
	Parameters  map[string]any // JSON Schema object describing the parameters
}

// Response represents an LLM completion response.
type Response struct {
	Content   string     // text content (empty when tool calls are present)
	ToolCalls []ToolCall // tool calls requested by the model
	Usage     Usage      // token usage statistics
}

// Usage holds token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the generic LLM provider interface. Model, temperature and
// token limits are fixed at construction so every provider in a fallback
// chain receives the identical message slice and tool set.
type Provider interface {
	// Name identifies the provider in logs and reply metadata.
	Name() string

	// ChatCompletion runs one completion over the full message context.
	ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

// ProviderFunc adapts a plain function into a named Provider.
// This follows the Go convention (like http.HandlerFunc) for convenience.
type ProviderFunc struct {
	ProviderName string
	Func         func(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}

// Name implements the Provider interface.
func (f ProviderFunc) Name() string { return f.ProviderName }

// ChatCompletion implements the Provider interface.
func (f ProviderFunc) ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	return f.Func(ctx, messages, tools)
}
