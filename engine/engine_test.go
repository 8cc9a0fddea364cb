package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopmate/cache"
	"shopmate/commerce"
	"shopmate/config"
	"shopmate/identity"
	"shopmate/llm"
	"shopmate/model"
	"shopmate/store"
	"shopmate/tools"
)

// scriptedProvider replays a fixed response sequence and records every
// message slice it was called with.
type scriptedProvider struct {
	name      string
	responses []*llm.Response
	err       error
	calls     [][]llm.Message
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) ChatCompletion(_ context.Context, messages []llm.Message, _ []llm.Tool) (*llm.Response, error) {
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	p.calls = append(p.calls, copied)

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &llm.Response{Content: "out of script"}, nil
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

// fakeAPI is a minimal commerce.API for engine tests
type fakeAPI struct {
	customers map[string]*commerce.CustomerRecord // email -> record
	orders    []commerce.Order
}

func (fakeAPI) SearchProducts(context.Context, string, int) ([]commerce.Product, error) {
	return []commerce.Product{{ID: "prod-1", Name: "Trail Shoe", InStock: true}}, nil
}
func (fakeAPI) GetProduct(context.Context, string) (*commerce.Product, error) {
	return &commerce.Product{ID: "prod-1", Name: "Trail Shoe", InStock: true}, nil
}
func (fakeAPI) GetOrder(context.Context, string) (*commerce.Order, error) {
	return nil, commerce.ErrNotFound
}
func (f fakeAPI) OrdersByCustomer(_ context.Context, customerID string, _ int) ([]commerce.Order, error) {
	var out []commerce.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}
func (fakeAPI) GetShipment(context.Context, string) (*commerce.Shipment, error) {
	return nil, commerce.ErrNotFound
}
func (f fakeAPI) GetCustomerByEmail(_ context.Context, email string) (*commerce.CustomerRecord, error) {
	if record, ok := f.customers[email]; ok {
		return record, nil
	}
	return nil, commerce.ErrNotFound
}

func newTestEngine(t *testing.T, st store.Store, providers ...llm.Provider) *Engine {
	return newTestEngineWithAPI(t, st, fakeAPI{}, providers...)
}

func newTestEngineWithAPI(t *testing.T, st store.Store, api commerce.API, providers ...llm.Provider) *Engine {
	t.Helper()

	reader := commerce.NewReader(api, cache.NewMemoryCache(time.Minute), time.Minute, time.Minute)
	resolver := identity.NewResolver(st, reader, 24*time.Hour)
	registry := tools.NewRegistry()
	tools.RegisterCatalogTools(registry, reader)
	tools.RegisterOrderTools(registry, reader, resolver)

	providers = append(providers, llm.NewStaticProvider(""))
	eng, err := New(Options{
		Store:         st,
		Resolver:      resolver,
		Registry:      registry,
		Chain:         NewChain(providers, 5*time.Second),
		Builder:       NewContextBuilder(st, "", config.DefaultChannelRules(), 20),
		MaxIterations: 5,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return eng
}

func inbound(text, msgID string) *model.InboundMessage {
	return &model.InboundMessage{
		ChannelMessageID: msgID,
		Channel:          "whatsapp",
		Identity:         model.ChannelIdentity{Channel: "whatsapp", Phone: "+4915112345678", DisplayName: "Alice"},
		Text:             text,
	}
}

func TestHandleMessageSimpleReply(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &scriptedProvider{name: "openai", responses: []*llm.Response{{Content: "Hi Alice!"}}}
	eng := newTestEngine(t, st, provider)

	reply, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "Hi Alice!" {
		t.Errorf("expected scripted reply, got %q", reply.Text)
	}
	if reply.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", reply.Provider)
	}
	if len(reply.ToolLog) != 0 {
		t.Errorf("expected no tool calls, got %d", len(reply.ToolLog))
	}
}

func TestHandleMessageWithToolCall(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &scriptedProvider{name: "openai", responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "search_products", Arguments: `{"query":"shoes"}`}}},
		{Content: "We have the Trail Shoe in stock."},
	}}
	eng := newTestEngine(t, st, provider)

	reply, err := eng.HandleMessage(context.Background(), inbound("got any shoes?", "wa-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "We have the Trail Shoe in stock." {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
	if len(reply.ToolLog) != 1 || reply.ToolLog[0].Name != "search_products" || !reply.ToolLog[0].OK {
		t.Errorf("unexpected tool log: %+v", reply.ToolLog)
	}

	// Both turn messages must be in the log.
	customer, err := st.FindCustomerByIdentity(context.Background(), model.ChannelIdentity{Phone: "+4915112345678"})
	if err != nil {
		t.Fatalf("customer not persisted: %v", err)
	}
	conv, err := st.FindActiveConversation(context.Background(), customer.ID, "whatsapp", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("conversation not persisted: %v", err)
	}
	msgs, err := st.RecentMessages(context.Background(), conv.ID, 10)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("expected user+assistant log, got %d messages", len(msgs))
	}
	if msgs[1].Metadata.Provider != "openai" || len(msgs[1].Metadata.ToolCalls) != 1 {
		t.Errorf("assistant metadata not recorded: %+v", msgs[1].Metadata)
	}
}

func TestDuplicateMessageDropped(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &scriptedProvider{name: "openai", responses: []*llm.Response{{Content: "first"}, {Content: "second"}}}
	eng := newTestEngine(t, st, provider)

	if _, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-dup")); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	_, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-dup"))
	if !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}
	if len(provider.calls) != 1 {
		t.Errorf("duplicate reached the provider, calls=%d", len(provider.calls))
	}
}

// dedupFailingStore errors on the dedup lookup only
type dedupFailingStore struct {
	*store.MemoryStore
}

func (s *dedupFailingStore) HasChannelMessageID(context.Context, string) (bool, error) {
	return false, fmt.Errorf("store down")
}

func TestDedupFailsOpen(t *testing.T) {
	st := &dedupFailingStore{MemoryStore: store.NewMemoryStore()}
	provider := &scriptedProvider{name: "openai", responses: []*llm.Response{{Content: "served anyway"}}}
	eng := newTestEngine(t, st, provider)

	reply, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-3"))
	if err != nil {
		t.Fatalf("expected the gate to fail open, got %v", err)
	}
	if reply.Text != "served anyway" {
		t.Errorf("unexpected reply: %q", reply.Text)
	}
}

func TestProviderFallback(t *testing.T) {
	st := store.NewMemoryStore()
	broken := &scriptedProvider{name: "openai", err: fmt.Errorf("rate limited")}
	backup := &scriptedProvider{name: "gemini", responses: []*llm.Response{{Content: "from backup"}}}
	eng := newTestEngine(t, st, broken, backup)

	reply, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "from backup" || reply.Provider != "gemini" {
		t.Errorf("expected backup reply, got %q from %q", reply.Text, reply.Provider)
	}
}

// Context parity: every provider in the chain must see the identical
// message slice for a given attempt.
func TestFallbackContextParity(t *testing.T) {
	st := store.NewMemoryStore()
	broken := &scriptedProvider{name: "openai", err: fmt.Errorf("boom")}
	backup := &scriptedProvider{name: "gemini", responses: []*llm.Response{{Content: "ok"}}}
	eng := newTestEngine(t, st, broken, backup)

	if _, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-5")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(broken.calls) != 1 || len(backup.calls) != 1 {
		t.Fatalf("expected one call each, got %d and %d", len(broken.calls), len(backup.calls))
	}
	a, b := broken.calls[0], backup.calls[0]
	if len(a) != len(b) {
		t.Fatalf("context length diverged: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Role != b[i].Role || a[i].Content != b[i].Content {
			t.Errorf("message %d diverged between providers", i)
		}
	}
}

func TestAllProvidersFailYieldsFixedReply(t *testing.T) {
	st := store.NewMemoryStore()
	broken1 := &scriptedProvider{name: "openai", err: fmt.Errorf("down")}
	broken2 := &scriptedProvider{name: "gemini", err: fmt.Errorf("down")}
	eng := newTestEngine(t, st, broken1, broken2)

	reply, err := eng.HandleMessage(context.Background(), inbound("hello", "wa-6"))
	if err != nil {
		t.Fatalf("a total provider outage must still produce a reply, got %v", err)
	}
	if reply.Text != llm.FixedFallbackReply {
		t.Errorf("expected the fixed fallback reply, got %q", reply.Text)
	}
	if reply.Provider != "static" {
		t.Errorf("expected provider static, got %q", reply.Provider)
	}
}

func TestToolLoopCeiling(t *testing.T) {
	st := store.NewMemoryStore()
	// Always requests another tool call, never a final answer.
	looping := &scriptedProvider{name: "openai", responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c", Name: "search_products", Arguments: `{"query":"shoes"}`}}},
	}}
	eng := newTestEngine(t, st, looping)

	reply, err := eng.HandleMessage(context.Background(), inbound("shoes", "wa-7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != llm.FixedFallbackReply {
		t.Errorf("expected the fixed fallback reply at the ceiling, got %q", reply.Text)
	}
	if len(looping.calls) != 5 {
		t.Errorf("expected exactly 5 completions, got %d", len(looping.calls))
	}
	if len(reply.ToolLog) != 5 {
		t.Errorf("expected 5 logged tool calls, got %d", len(reply.ToolLog))
	}
}

// A customer on a phone channel becomes verified by typing the email they
// ordered with: the model passes it to search_customer_orders, the commerce
// link is persisted, and the customer's orders come back.
func TestEmailTypedInChatVerifiesCustomer(t *testing.T) {
	st := store.NewMemoryStore()
	api := fakeAPI{
		customers: map[string]*commerce.CustomerRecord{
			"alice@example.com": {ID: "com-alice", Email: "alice@example.com"},
		},
		orders: []commerce.Order{{ID: "ord-1", CustomerID: "com-alice", Status: "shipped"}},
	}
	provider := &scriptedProvider{name: "openai", responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "search_customer_orders", Arguments: `{"email":"alice@example.com"}`}}},
		{Content: "Your order ord-1 has shipped."},
	}}
	eng := newTestEngineWithAPI(t, st, api, provider)

	reply, err := eng.HandleMessage(context.Background(), inbound("it's alice@example.com", "wa-8"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.ToolLog) != 1 || reply.ToolLog[0].Name != "search_customer_orders" || !reply.ToolLog[0].OK {
		t.Fatalf("expected a successful search_customer_orders call, got %+v", reply.ToolLog)
	}
	if reply.Text != "Your order ord-1 has shipped." {
		t.Errorf("unexpected reply: %q", reply.Text)
	}

	customer, err := st.FindCustomerByIdentity(context.Background(), model.ChannelIdentity{Phone: "+4915112345678"})
	if err != nil {
		t.Fatalf("customer not persisted: %v", err)
	}
	if customer.CommerceID != "com-alice" {
		t.Errorf("typed email did not link the customer, commerce id %q", customer.CommerceID)
	}
	if customer.Email != "alice@example.com" {
		t.Errorf("typed email not attached to the customer: %q", customer.Email)
	}
}

func TestRejectsInvalidInbound(t *testing.T) {
	st := store.NewMemoryStore()
	eng := newTestEngine(t, st, &scriptedProvider{name: "openai", responses: []*llm.Response{{Content: "x"}}})
	ctx := context.Background()

	if _, err := eng.HandleMessage(ctx, nil); !errors.Is(err, ErrInvalidInbound) {
		t.Errorf("expected ErrInvalidInbound for nil inbound, got %v", err)
	}
	if _, err := eng.HandleMessage(ctx, &model.InboundMessage{Channel: "whatsapp", Identity: model.ChannelIdentity{Phone: "+49"}, Text: "   "}); !errors.Is(err, ErrInvalidInbound) {
		t.Errorf("expected ErrInvalidInbound for blank text, got %v", err)
	}
	if _, err := eng.HandleMessage(ctx, &model.InboundMessage{Channel: "whatsapp", Text: "hi"}); !errors.Is(err, ErrInvalidInbound) {
		t.Errorf("expected ErrInvalidInbound for missing identity, got %v", err)
	}
}
