package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// GeminiProvider adapts the genai client to the Provider interface
type GeminiProvider struct {
	client *genai.Client
	config GeminiConfig
}

// NewGeminiProvider creates a Gemini-backed provider using the Gemini API
// backend (API key auth, not Vertex).
func NewGeminiProvider(ctx context.Context, config GeminiConfig) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key cannot be empty")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name identifies this provider in logs and reply metadata
func (p *GeminiProvider) Name() string { return "gemini" }

// ChatCompletion runs one completion over the full message context
func (p *GeminiProvider) ChatCompletion(ctx context.Context, messages []Message, tools []Tool) (*Response, error) {
	contents, systemPrompt := toGeminiContents(messages)

	temperature := p.config.Temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if p.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.config.MaxTokens)
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, "")
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{toGeminiTool(tools)}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("LLM request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	out := &Response{}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	var textParts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				args = []byte("{}")
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call-%d", len(out.ToolCalls))
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}
	out.Content = strings.Join(textParts, "\n")
	return out, nil
}

// toGeminiContents maps the provider-agnostic message slice to genai
// contents. System messages are folded into the system instruction; tool
// results travel as FunctionResponse parts in a user-role content.
func toGeminiContents(messages []Message) ([]*genai.Content, string) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			systemParts = append(systemParts, m.Content)
		case "assistant":
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]any{}
				}
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			if len(content.Parts) > 0 {
				contents = append(contents, content)
			}
		case "tool":
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       m.ToolCallID,
						Name:     m.Name,
						Response: map[string]any{"result": m.Content},
					},
				}},
			})
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(systemParts, "\n\n")
}

func toGeminiTool(tools []Tool) *genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  toGeminiSchema(tool.Parameters),
		})
	}
	return &genai.Tool{FunctionDeclarations: declarations}
}

// toGeminiSchema converts a JSON-Schema map into the genai schema type.
// Only the subset the tool declarations use is handled.
func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		switch t {
		case "object":
			out.Type = genai.TypeObject
		case "string":
			out.Type = genai.TypeString
		case "number":
			out.Type = genai.TypeNumber
		case "integer":
			out.Type = genai.TypeInteger
		case "boolean":
			out.Type = genai.TypeBoolean
		case "array":
			out.Type = genai.TypeArray
		}
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	if required, ok := schema["required"].([]string); ok {
		out.Required = required
	} else if rawRequired, ok := schema["required"].([]any); ok {
		for _, r := range rawRequired {
			if name, ok := r.(string); ok {
				out.Required = append(out.Required, name)
			}
		}
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	return out
}
