package engine

import (
	"context"
	"sync"
	"time"

	"shopmate/llm"
	"shopmate/log"
)

// providerCooldown is how long a failed provider is skipped before being
// retried.
const providerCooldown = 2 * time.Minute

// Chain is an ordered fallback chain of LLM providers with per-provider
// cooldowns: tried in order, first usable response wins. The terminal
// element is expected to be the static provider, which never fails, so
// Complete always produces a response.
type Chain struct {
	providers   []llm.Provider
	callTimeout time.Duration

	cooldownMu sync.Mutex
	cooldowns  map[string]time.Time
}

// NewChain creates a chain over the given providers in priority order
func NewChain(providers []llm.Provider, callTimeout time.Duration) *Chain {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Chain{
		providers:   providers,
		callTimeout: callTimeout,
		cooldowns:   make(map[string]time.Time),
	}
}

// Complete runs the chain over one context. Every provider receives the
// same messages and tools. Returns the first usable response and the name
// of the provider that produced it; when every provider fails the static
// fallback reply is synthesized so the caller always gets a response.
func (c *Chain) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, string) {
	for _, provider := range c.providers {
		name := provider.Name()

		c.cooldownMu.Lock()
		cooldownUntil, hasCooldown := c.cooldowns[name]
		inCooldown := hasCooldown && time.Now().Before(cooldownUntil)
		c.cooldownMu.Unlock()

		if inCooldown {
			log.Log.Infof("[Engine] Skipping provider %s (cooldown until %s)", name, cooldownUntil.Format(time.RFC3339))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		resp, err := provider.ChatCompletion(callCtx, messages, tools)
		cancel()

		if err == nil && resp != nil && (resp.Content != "" || len(resp.ToolCalls) > 0) {
			log.Log.Infof("[Engine] Provider %s succeeded | Response: %d chars | ToolCalls: %d | Tokens: prompt=%d completion=%d total=%d",
				name, len(resp.Content), len(resp.ToolCalls),
				resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
			return resp, name
		}

		// Failed or empty: set the cooldown and fall through to the next
		// provider with the unchanged context.
		c.cooldownMu.Lock()
		c.cooldowns[name] = time.Now().Add(providerCooldown)
		c.cooldownMu.Unlock()

		if err != nil {
			log.Log.Warnf("[Engine] Provider %s failed | Error: %v", name, err)
		} else {
			log.Log.Warnf("[Engine] Provider %s returned an empty response (content filter, max_tokens, or empty API response)", name)
		}
		log.Log.Warnf("[Engine] Provider %s disabled for %s", name, providerCooldown)
	}

	// Unreachable when the static provider terminates the chain; kept so a
	// misconfigured chain still yields a reply instead of a nil response.
	log.Log.Errorf("[Engine] All providers failed, returning fixed fallback")
	return &llm.Response{Content: llm.FixedFallbackReply}, "static"
}
