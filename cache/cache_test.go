package cache

import (
	"context"
	"testing"
	"time"
)

func TestKeyNormalization(t *testing.T) {
	cases := []struct {
		op   string
		args []string
		want string
	}{
		{"get_order", []string{"ORD-1"}, "get_order|ord-1"},
		{"get_order", []string{"  ord-1 "}, "get_order|ord-1"},
		{"search_products", []string{"Red Shoes", "5"}, "search_products|red shoes|5"},
		{"health", nil, "health"},
	}
	for _, tc := range cases {
		if got := Key(tc.op, tc.args...); got != tc.want {
			t.Errorf("Key(%q, %v) = %q, want %q", tc.op, tc.args, got, tc.want)
		}
	}
}

func TestKeyEquivalentLookupsShareEntry(t *testing.T) {
	if Key("get_product", "SKU-9") != Key("get_product", " sku-9 ") {
		t.Error("equivalent lookups must derive the same key")
	}
	if Key("get_product", "a") == Key("get_order", "a") {
		t.Error("different operations must not collide")
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("expected hit with 'v', got %q ok=%v", got, ok)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("value served past its TTL")
	}
}
