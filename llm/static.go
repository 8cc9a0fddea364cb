package llm

import "context"

// StaticProvider always answers with a fixed message and never fails. It is
// appended as the terminal element of every fallback chain so the
// orchestrator can guarantee a reply for any inbound message.
type StaticProvider struct {
	Reply string
}

// NewStaticProvider creates the terminal fallback provider. An empty reply
// defaults to FixedFallbackReply.
func NewStaticProvider(reply string) *StaticProvider {
	if reply == "" {
		reply = FixedFallbackReply
	}
	return &StaticProvider{Reply: reply}
}

// Name identifies this provider in logs and reply metadata
func (p *StaticProvider) Name() string { return "static" }

// ChatCompletion ignores its inputs and returns the fixed reply
func (p *StaticProvider) ChatCompletion(_ context.Context, _ []Message, _ []Tool) (*Response, error) {
	return &Response{Content: p.Reply}, nil
}

var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*GeminiProvider)(nil)
	_ Provider = (*StaticProvider)(nil)
)
