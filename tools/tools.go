// Package tools implements the dispatcher between model-requested tool
// calls and the commerce read layer. Every handler is total: it returns a
// structured Result for any input, never an error, so a bad tool call can
// never abort the conversation turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Caller carries the server-resolved identity a tool call executes as.
// It is derived from the persisted customer record, never from model
// output.
type Caller struct {
	CustomerID string // internal customer id
	CommerceID string // linked commerce-platform id; empty when unlinked
	Email      string
}

// Error kinds carried in Result.Error. The model sees these verbatim and
// phrases its reply around them.
const (
	ErrKindNotFound     = "not_found"
	ErrKindUnauthorized = "unauthorized"
	ErrKindUnavailable  = "unavailable"
	ErrKindInvalidArgs  = "invalid_arguments"
	ErrKindUnknownTool  = "unknown_tool"
)

// Result is the uniform outcome of a tool call, serialized as JSON into
// the tool-result message fed back to the model.
type Result struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON serializes the result for the model
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":"unavailable","message":"internal encoding failure"}`
	}
	return string(b)
}

func ok(data any) Result {
	return Result{OK: true, Data: data}
}

func failure(kind, format string, args ...any) Result {
	return Result{OK: false, Error: kind, Message: fmt.Sprintf(format, args...)}
}

// Handler executes one tool call. args is the raw JSON argument object as
// produced by the model; handlers decode it themselves.
type Handler func(ctx context.Context, caller Caller, args json.RawMessage) Result

// decodeArgs unmarshals model-produced arguments into a typed input
// struct, reporting whether decoding succeeded.
func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return json.Unmarshal(args, into)
}
