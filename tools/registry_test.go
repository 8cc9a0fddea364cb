package tools

import (
	"context"
	"testing"
)

func TestDispatchUnknownTool(t *testing.T) {
	registry := newTestRegistry(orderFixture())

	result := registry.Dispatch(context.Background(), Caller{}, "delete_everything", `{}`)
	if result.OK {
		t.Fatal("expected failure for unknown tool")
	}
	if result.Error != ErrKindUnknownTool {
		t.Errorf("expected %s, got %s", ErrKindUnknownTool, result.Error)
	}
}

func TestSpecsWithheldWithoutCommerceLink(t *testing.T) {
	registry := newTestRegistry(orderFixture())

	linked := registry.Specs(Caller{CommerceID: "com-alice"})
	unlinked := registry.Specs(Caller{})

	if len(linked) != 7 {
		t.Fatalf("expected 7 tools for a linked caller, got %d", len(linked))
	}
	if len(unlinked) != 4 {
		t.Fatalf("expected the 3 catalog tools plus search_customer_orders for an unlinked caller, got %d", len(unlinked))
	}
	sawSearch := false
	for _, spec := range unlinked {
		if spec.Name == "search_customer_orders" {
			sawSearch = true
		}
		if requiresCommerceLink(spec.Name) {
			t.Errorf("order-id tool %s advertised to unlinked caller", spec.Name)
		}
	}
	// The verification path must stay advertised to unverified callers.
	if !sawSearch {
		t.Error("search_customer_orders withheld from unlinked caller")
	}
}

func TestResultJSONIsAlwaysValid(t *testing.T) {
	// A Data value that cannot be marshaled must still yield valid JSON.
	r := Result{OK: true, Data: map[string]any{"bad": func() {}}}
	out := r.JSON()
	if out == "" || out[0] != '{' {
		t.Errorf("expected a JSON object fallback, got %q", out)
	}
}

func TestCheckStockBySize(t *testing.T) {
	registry := newTestRegistry(orderFixture())
	ctx := context.Background()

	result := registry.Dispatch(ctx, Caller{}, "check_stock", `{"product_id":"prod-1","size":"42"}`)
	if !result.OK {
		t.Fatalf("expected success, got %s: %s", result.Error, result.Message)
	}
	data := result.Data.(map[string]any)
	if data["in_stock"] != true {
		t.Errorf("expected size 42 in stock, got %v", data["in_stock"])
	}

	result = registry.Dispatch(ctx, Caller{}, "check_stock", `{"product_id":"prod-1","size":"99"}`)
	if result.OK || result.Error != ErrKindNotFound {
		t.Errorf("expected not_found for missing size, got ok=%v error=%s", result.OK, result.Error)
	}
}
