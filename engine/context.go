package engine

import (
	"context"
	_ "embed"
	"strings"

	"shopmate/config"
	"shopmate/llm"
	"shopmate/log"
	"shopmate/model"
	"shopmate/store"
)

//go:embed prompt.md
var basePrompt string

// ContextBuilder assembles the model context for one conversation turn:
// the composed system prompt, the trailing history window, and the inbound
// message. The context is built exactly once per turn; every provider in
// the fallback chain receives the identical slice.
type ContextBuilder struct {
	store         store.Store
	knowledge     string
	rules         config.ChannelRules
	historyWindow int
}

// NewContextBuilder creates a context builder. knowledge is the store
// information text injected into every system prompt; it may be empty.
func NewContextBuilder(s store.Store, knowledge string, rules config.ChannelRules, historyWindow int) *ContextBuilder {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	return &ContextBuilder{
		store:         s,
		knowledge:     knowledge,
		rules:         rules,
		historyWindow: historyWindow,
	}
}

// Build composes the message slice for a turn. A history read failure is
// not fatal: the turn proceeds with an empty history rather than no reply.
func (b *ContextBuilder) Build(ctx context.Context, conv *model.Conversation, customer *model.Customer, text string) []llm.Message {
	messages := []llm.Message{{
		Role:    model.RoleSystem,
		Content: b.systemPrompt(conv.Channel, customer),
	}}

	history, err := b.store.RecentMessages(ctx, conv.ID, b.historyWindow)
	if err != nil {
		log.Log.Warnf("[Engine] Failed to load history, continuing without | Conversation: %s | Error: %v", conv.ID, err)
		history = nil
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, llm.Message{
		Role:    model.RoleUser,
		Content: text,
	})
	return messages
}

// systemPrompt composes the per-turn system prompt: base behavior, store
// knowledge, channel formatting rules, and the capability line telling the
// model whether order lookups are possible for this customer.
func (b *ContextBuilder) systemPrompt(channel string, customer *model.Customer) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(basePrompt))

	if b.knowledge != "" {
		sb.WriteString("\n\n# Store information\n\n")
		sb.WriteString(strings.TrimSpace(b.knowledge))
	}

	if formatting := b.rules.ForChannel(channel); formatting != "" {
		sb.WriteString("\n\n# Channel formatting\n\n")
		sb.WriteString(formatting)
	}

	sb.WriteString("\n\n# Customer\n\n")
	if customer.DisplayName != "" {
		sb.WriteString("The customer's name is " + customer.DisplayName + ". ")
	}
	if customer.OrderLookupsEnabled() {
		sb.WriteString("The customer has a verified account; order and shipment lookups are available.")
	} else {
		sb.WriteString("The customer is not verified on this channel; order and shipment lookups by order id are NOT available yet. If they ask about an order, ask for the email address they ordered with, then call search_customer_orders with that email to verify them and list their orders.")
	}
	return sb.String()
}
