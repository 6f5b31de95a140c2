// Package provider wraps text-generation backends behind a single Chat
// contract and governs calls to them with timeouts, cancellation and
// concurrency limits.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

// Provider is a text-generation backend.
type Provider interface {
	Chat(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

// Priority hints whether a request is user-facing.
type Priority string

const (
	PriorityInteractive Priority = "interactive"
	PriorityBackground  Priority = "background"
)

// ModelRequest is the backend-neutral request. Zero-valued knobs mean
// "use the backend default".
type ModelRequest struct {
	Messages        []models.Message
	MaxOutputTokens int
	Temperature     *float64
	TopP            *float64
	Stop            []string
	Seed            *int64
	Tags            []string
	Priority        Priority
	RequireJSON     bool
}

// NewRequest builds a background request holding a single user message.
func NewRequest(prompt string) ModelRequest {
	return ModelRequest{
		Messages: []models.Message{models.UserMessage(prompt)},
		Priority: PriorityBackground,
	}
}

// WithSystem returns a copy of the request with a system message prepended.
func (r ModelRequest) WithSystem(system string) ModelRequest {
	msgs := make([]models.Message, 0, len(r.Messages)+1)
	msgs = append(msgs, models.SystemMessage(system))
	msgs = append(msgs, r.Messages...)
	r.Messages = msgs
	return r
}

// FinishReason explains why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// Usage reports token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Warning is a non-fatal note attached to a response.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ModelResponse is the backend-neutral response.
type ModelResponse struct {
	Content      string
	FinishReason FinishReason
	Usage        Usage
	ModelID      string
	Latency      time.Duration
	Warnings     []Warning
}

// splitSystem separates system messages, joined by blank lines, from the
// rest of the conversation. Backends with a dedicated system field use it.
func splitSystem(msgs []models.Message) (string, []models.Message) {
	var system []string
	rest := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
