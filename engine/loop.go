package engine

import (
	"context"
	"encoding/json"
	"time"

	"shopmate/analytics"
	"shopmate/llm"
	"shopmate/log"
	"shopmate/model"
	"shopmate/tools"
)

// turnOutcome is the result of one orchestration turn
type turnOutcome struct {
	content    string
	provider   string
	toolLog    []model.ToolCallRecord
	productIDs []string
}

// runToolLoop drives the bounded completion/tool loop for one turn. Each
// iteration is one completion; tool calls extend the context and loop
// again. Hitting the iteration ceiling is not an error: the turn ends with
// the fixed fallback reply and whatever tool log accumulated.
func (e *Engine) runToolLoop(ctx context.Context, caller tools.Caller, messages []llm.Message, conv *model.Conversation) turnOutcome {
	specs := e.registry.Specs(caller)
	outcome := turnOutcome{provider: "static"}
	seenProducts := make(map[string]bool)

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		resp, provider := e.chain.Complete(ctx, messages, specs)
		outcome.provider = provider

		if len(resp.ToolCalls) == 0 {
			outcome.content = resp.Content
			if outcome.content == "" {
				outcome.content = llm.FixedFallbackReply
			}
			return outcome
		}

		// Echo the assistant's tool request into the context, then
		// execute each call and feed the structured result back.
		messages = append(messages, llm.Message{
			Role:      model.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			result := e.registry.Dispatch(ctx, caller, call.Name, call.Arguments)
			resultJSON := result.JSON()

			outcome.toolLog = append(outcome.toolLog, model.ToolCallRecord{
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    resultJSON,
				OK:        result.OK,
			})
			if id := productIDFromArgs(call.Arguments); id != "" && !seenProducts[id] {
				seenProducts[id] = true
				outcome.productIDs = append(outcome.productIDs, id)
			}

			e.analytics.Record(analytics.Event{
				Type:           analytics.EventToolCall,
				ConversationID: conv.ID,
				CustomerID:     conv.CustomerID,
				Channel:        conv.Channel,
				Provider:       provider,
				Tool:           call.Name,
				OK:             result.OK,
				At:             time.Now(),
			})

			messages = append(messages, llm.Message{
				Role:       model.RoleTool,
				Content:    resultJSON,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	log.Log.Warnf("[Engine] Tool loop reached iteration ceiling (%d) | Conversation: %s", e.maxIterations, conv.ID)
	outcome.content = llm.FixedFallbackReply
	return outcome
}

// productIDFromArgs extracts a product_id argument when present, for the
// analytics trail of which products a conversation touched.
func productIDFromArgs(arguments string) string {
	var args struct {
		ProductID string `json:"product_id"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return ""
	}
	return args.ProductID
}
