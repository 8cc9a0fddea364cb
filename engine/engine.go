// Package engine is the agent orchestrator: it turns one inbound customer
// message into exactly one reply, running the dedup gate, identity
// resolution, context assembly, the bounded tool loop, and the persistence
// log in order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopmate/analytics"
	"shopmate/identity"
	"shopmate/log"
	"shopmate/model"
	"shopmate/store"
	"shopmate/tools"
)

// ErrDuplicateMessage reports that an inbound message was already handled;
// the transport acknowledges it without a new reply.
var ErrDuplicateMessage = errors.New("engine: duplicate message")

// ErrInvalidInbound reports a malformed inbound envelope. Any other error
// from HandleMessage is an infrastructure failure.
var ErrInvalidInbound = errors.New("engine: invalid inbound message")

// Engine orchestrates one reply per inbound message
type Engine struct {
	store         store.Store
	resolver      *identity.Resolver
	registry      *tools.Registry
	chain         *Chain
	builder       *ContextBuilder
	analytics     *analytics.Recorder
	maxIterations int
}

// Options wires an Engine. Analytics may be nil.
type Options struct {
	Store         store.Store
	Resolver      *identity.Resolver
	Registry      *tools.Registry
	Chain         *Chain
	Builder       *ContextBuilder
	Analytics     *analytics.Recorder
	MaxIterations int
}

// New creates an engine
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("tool registry cannot be nil")
	}
	if opts.Chain == nil {
		return nil, fmt.Errorf("provider chain cannot be nil")
	}
	if opts.Builder == nil {
		return nil, fmt.Errorf("context builder cannot be nil")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 5
	}

	return &Engine{
		store:         opts.Store,
		resolver:      opts.Resolver,
		registry:      opts.Registry,
		chain:         opts.Chain,
		builder:       opts.Builder,
		analytics:     opts.Analytics,
		maxIterations: opts.MaxIterations,
	}, nil
}

// HandleMessage processes one inbound message end to end and returns the
// reply. It errors only on invalid input or when identity resolution
// itself fails; once a conversation is resolved, the turn always produces
// a reply, falling back to the fixed apology rather than failing.
func (e *Engine) HandleMessage(ctx context.Context, inbound *model.InboundMessage) (*model.Reply, error) {
	if inbound == nil {
		return nil, fmt.Errorf("%w: message cannot be nil", ErrInvalidInbound)
	}
	if strings.TrimSpace(inbound.Text) == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrInvalidInbound)
	}
	if !inbound.Identity.Valid() {
		return nil, fmt.Errorf("%w: no phone or email", ErrInvalidInbound)
	}

	if e.isDuplicate(ctx, inbound.ChannelMessageID) {
		log.Log.Infof("[Engine] Dropping duplicate message | ChannelMessageID: %s", inbound.ChannelMessageID)
		return nil, ErrDuplicateMessage
	}

	ident := inbound.Identity
	ident.Channel = inbound.Channel
	customer, conv, err := e.resolver.Resolve(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	// The context is assembled exactly once; the history window is read
	// before the inbound message is appended to the log.
	messages := e.builder.Build(ctx, conv, customer, inbound.Text)

	e.persist(ctx, model.NewUserMessage(conv.ID, inbound.Text, inbound.ChannelMessageID))

	caller := tools.Caller{
		CustomerID: customer.ID,
		CommerceID: customer.CommerceID,
		Email:      customer.Email,
	}
	outcome := e.runToolLoop(ctx, caller, messages, conv)

	e.persist(ctx, model.NewAssistantMessage(conv.ID, outcome.content, model.MessageMetadata{
		Provider:   outcome.provider,
		ToolCalls:  outcome.toolLog,
		ProductIDs: outcome.productIDs,
	}))
	if err := e.store.TouchConversation(ctx, conv.ID, time.Now()); err != nil {
		log.Log.Warnf("[Engine] Failed to touch conversation | ID: %s | Error: %v", conv.ID, err)
	}

	if outcome.provider == "static" {
		// The reply came from the terminal fallback: every real provider
		// failed or the loop hit its ceiling.
		e.analytics.Record(analytics.Event{
			Type:           analytics.EventProviderFail,
			ConversationID: conv.ID,
			CustomerID:     customer.ID,
			Channel:        conv.Channel,
			At:             time.Now(),
		})
	}
	e.analytics.Record(analytics.Event{
		Type:           analytics.EventMessageHandled,
		ConversationID: conv.ID,
		CustomerID:     customer.ID,
		Channel:        conv.Channel,
		Provider:       outcome.provider,
		OK:             true,
		ProductIDs:     outcome.productIDs,
		At:             time.Now(),
	})

	return &model.Reply{
		Text:     outcome.content,
		Provider: outcome.provider,
		ToolLog:  outcome.toolLog,
	}, nil
}

// persist writes a message to the log. Persistence failures are logged and
// swallowed: the reply has already been computed and losing a log row must
// not lose the reply.
func (e *Engine) persist(ctx context.Context, msg *model.Message) {
	if err := e.store.InsertMessage(ctx, msg); err != nil {
		log.Log.Errorf("[Engine] Failed to persist message | Conversation: %s | Role: %s | Error: %v", msg.ConversationID, msg.Role, err)
	}
}
