package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopmate/cache"
	"shopmate/commerce"
	"shopmate/config"
	"shopmate/engine"
	"shopmate/identity"
	"shopmate/llm"
	"shopmate/model"
	"shopmate/store"
	"shopmate/tools"
)

type stubAPI struct{}

func (stubAPI) SearchProducts(context.Context, string, int) ([]commerce.Product, error) {
	return nil, nil
}
func (stubAPI) GetProduct(context.Context, string) (*commerce.Product, error) {
	return nil, commerce.ErrNotFound
}
func (stubAPI) GetOrder(context.Context, string) (*commerce.Order, error) {
	return nil, commerce.ErrNotFound
}
func (stubAPI) OrdersByCustomer(context.Context, string, int) ([]commerce.Order, error) {
	return nil, nil
}
func (stubAPI) GetShipment(context.Context, string) (*commerce.Shipment, error) {
	return nil, commerce.ErrNotFound
}
func (stubAPI) GetCustomerByEmail(context.Context, string) (*commerce.CustomerRecord, error) {
	return nil, commerce.ErrNotFound
}

func newTestServer(t *testing.T) *Server {
	return newTestServerWithStore(t, store.NewMemoryStore())
}

func newTestServerWithStore(t *testing.T, st store.Store) *Server {
	t.Helper()

	reader := commerce.NewReader(stubAPI{}, cache.NewMemoryCache(time.Minute), time.Minute, time.Minute)
	resolver := identity.NewResolver(st, reader, 24*time.Hour)
	registry := tools.NewRegistry()
	tools.RegisterCatalogTools(registry, reader)
	tools.RegisterOrderTools(registry, reader, resolver)

	providers := []llm.Provider{
		llm.ProviderFunc{
			ProviderName: "scripted",
			Func: func(context.Context, []llm.Message, []llm.Tool) (*llm.Response, error) {
				return &llm.Response{Content: "hello there"}, nil
			},
		},
		llm.NewStaticProvider(""),
	}

	eng, err := engine.New(engine.Options{
		Store:         st,
		Resolver:      resolver,
		Registry:      registry,
		Chain:         engine.NewChain(providers, 5*time.Second),
		Builder:       engine.NewContextBuilder(st, "", config.DefaultChannelRules(), 20),
		MaxIterations: 5,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	cfg := &config.Config{Production: true}
	return NewServer(cfg, eng)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMessageEndpoint(t *testing.T) {
	s := newTestServer(t)
	body := `{"channel_message_id":"wa-1","channel":"whatsapp","identity":{"channel":"whatsapp","phone":"+49151"},"text":"hi"}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reply model.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("invalid reply body: %v", err)
	}
	if reply.Text != "hello there" || reply.Provider != "scripted" {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestMessageEndpointDuplicate(t *testing.T) {
	s := newTestServer(t)
	body := `{"channel_message_id":"wa-dup","channel":"whatsapp","identity":{"channel":"whatsapp","phone":"+49151"},"text":"hi"}`

	for i, wantDup := range []bool{false, true} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		s.http.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
		var out map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("delivery %d: invalid body: %v", i, err)
		}
		if _, isDup := out["duplicate"]; isDup != wantDup {
			t.Errorf("delivery %d: duplicate=%v, want %v", i, isDup, wantDup)
		}
	}
}

// failingIdentityStore errors on every customer lookup
type failingIdentityStore struct {
	*store.MemoryStore
}

func (s *failingIdentityStore) FindCustomerByIdentity(context.Context, model.ChannelIdentity) (*model.Customer, error) {
	return nil, fmt.Errorf("store down")
}

// A store outage behind the resolver must not leak to the channel as an
// error response: the customer gets the fixed apology with a 200.
func TestMessageEndpointInfraFailureYieldsApology(t *testing.T) {
	s := newTestServerWithStore(t, &failingIdentityStore{MemoryStore: store.NewMemoryStore()})
	body := `{"channel_message_id":"wa-9","channel":"whatsapp","identity":{"channel":"whatsapp","phone":"+49151"},"text":"hi"}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reply model.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("invalid reply body: %v", err)
	}
	if reply.Text != llm.FixedFallbackReply {
		t.Errorf("expected the fixed fallback reply, got %q", reply.Text)
	}
}

func TestMessageEndpointRejectsBadBody(t *testing.T) {
	s := newTestServer(t)

	// Malformed JSON and a well-formed envelope without any identity are
	// both client errors, not infrastructure failures.
	for _, body := range []string{`{broken`, `{"channel":"whatsapp","text":"hi"}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		s.http.Handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}
