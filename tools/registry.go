package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"shopmate/llm"
	"shopmate/log"
)

// Registry manages the mapping between tool names and their Go handlers.
// It must be populated at application startup with all available tools.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	specs    map[string]llm.Tool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		specs:    make(map[string]llm.Tool),
	}
}

// Register registers a handler under a tool spec
func (r *Registry) Register(spec llm.Tool, handler Handler) error {
	if spec.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil for tool: %s", spec.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[spec.Name]; exists {
		return fmt.Errorf("handler already registered for tool: %s", spec.Name)
	}
	r.handlers[spec.Name] = handler
	r.specs[spec.Name] = spec
	return nil
}

// MustRegister registers a handler and panics on error
func (r *Registry) MustRegister(spec llm.Tool, handler Handler) {
	if err := r.Register(spec, handler); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", spec.Name, err))
	}
}

// Specs returns the tool declarations advertised to the model. When the
// caller has no linked commerce account the order-id tools are withheld
// so the model cannot attempt them; search_customer_orders stays
// advertised as the verification path.
func (r *Registry) Specs(caller Caller) []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]llm.Tool, 0, len(r.specs))
	for name, spec := range r.specs {
		if requiresCommerceLink(name) && caller.CommerceID == "" {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// Dispatch executes a named tool call. Unknown names and handler misuse
// come back as structured failures; Dispatch itself never errors.
func (r *Registry) Dispatch(ctx context.Context, caller Caller, name string, arguments string) Result {
	r.mu.RLock()
	handler, exists := r.handlers[name]
	r.mu.RUnlock()

	if !exists {
		log.Log.Warnf("[Tools] Unknown tool requested | Tool: %s", name)
		return failure(ErrKindUnknownTool, "no tool named %q is available", name)
	}

	result := handler(ctx, caller, json.RawMessage(arguments))
	if result.OK {
		log.Log.Infof("[Tools] Tool call succeeded | Tool: %s", name)
	} else {
		log.Log.Infof("[Tools] Tool call failed | Tool: %s | Kind: %s | Message: %s", name, result.Error, result.Message)
	}
	return result
}

// requiresCommerceLink reports whether a tool is unusable without an
// already-verified commerce link. search_customer_orders is not listed:
// given the email the customer ordered with, it performs the
// verification itself.
func requiresCommerceLink(name string) bool {
	switch name {
	case "get_order_status", "get_order_details", "track_shipment":
		return true
	}
	return false
}
