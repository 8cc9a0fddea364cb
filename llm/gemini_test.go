package llm

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestToGeminiSchemaConversion(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search keywords",
			},
			"limit": map[string]any{
				"type": "integer",
			},
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"query"},
	}

	got := toGeminiSchema(schema)
	if got.Type != genai.TypeObject {
		t.Fatalf("expected object type, got %v", got.Type)
	}
	if len(got.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(got.Properties))
	}
	if got.Properties["query"].Type != genai.TypeString || got.Properties["query"].Description != "search keywords" {
		t.Errorf("query property mismatched: %+v", got.Properties["query"])
	}
	if got.Properties["limit"].Type != genai.TypeInteger {
		t.Errorf("limit property mismatched: %+v", got.Properties["limit"])
	}
	if got.Properties["tags"].Type != genai.TypeArray || got.Properties["tags"].Items.Type != genai.TypeString {
		t.Errorf("tags property mismatched: %+v", got.Properties["tags"])
	}
	if len(got.Required) != 1 || got.Required[0] != "query" {
		t.Errorf("required list mismatched: %v", got.Required)
	}
}

func TestToGeminiSchemaNil(t *testing.T) {
	if toGeminiSchema(nil) != nil {
		t.Error("nil schema must convert to nil")
	}
}

func TestToGeminiContentsRoles(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Name: "search_products", Arguments: `{"query":"shoes"}`}}},
		{Role: "tool", ToolCallID: "c1", Name: "search_products", Content: `{"ok":true}`},
		{Role: "assistant", Content: "found them"},
	}

	contents, system := toGeminiContents(messages)
	if system != "be helpful" {
		t.Errorf("system prompt not extracted: %q", system)
	}
	if len(contents) != 4 {
		t.Fatalf("expected 4 contents, got %d", len(contents))
	}

	if contents[0].Role != genai.RoleUser {
		t.Errorf("user message role mismatched: %s", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel || contents[1].Parts[0].FunctionCall == nil {
		t.Errorf("assistant tool request not mapped to a model function call")
	}
	if contents[1].Parts[0].FunctionCall.Args["query"] != "shoes" {
		t.Errorf("tool arguments not decoded: %v", contents[1].Parts[0].FunctionCall.Args)
	}
	if contents[2].Role != genai.RoleUser || contents[2].Parts[0].FunctionResponse == nil {
		t.Errorf("tool result not mapped to a function response")
	}
	if contents[3].Role != genai.RoleModel || contents[3].Parts[0].Text != "found them" {
		t.Errorf("final assistant text mismatched")
	}
}

func TestStaticProviderAlwaysAnswers(t *testing.T) {
	p := NewStaticProvider("")
	resp, err := p.ChatCompletion(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("static provider must never fail: %v", err)
	}
	if resp.Content != FixedFallbackReply {
		t.Errorf("expected the fixed fallback reply, got %q", resp.Content)
	}
}
