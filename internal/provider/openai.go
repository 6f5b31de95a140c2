package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint,
// such as a local llama.cpp or Ollama server.
type OpenAIConfig struct {
	ID      string
	BaseURL string
	// APIKey falls back to OPENAI_API_KEY. Local servers usually need none.
	APIKey string
	Model  string
	// HTTPClient defaults to a client without its own timeout; the runner
	// bounds each call.
	HTTPClient *http.Client
}

// OpenAI is a Provider speaking the chat completions wire format.
type OpenAI struct {
	id       string
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// NewOpenAI validates cfg and creates the provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	id := cfg.ID
	if id == "" {
		id = "openai"
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("%s: base_url cannot be empty", id)
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("%s: base_url must be an http or https URL", id)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s: model cannot be empty", id)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &OpenAI{
		id:       id,
		endpoint: strings.TrimRight(base, "/") + "/chat/completions",
		apiKey:   apiKey,
		model:    cfg.Model,
		http:     client,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAI) Model() string { return o.model }

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	Stop           []string          `json:"stop,omitempty"`
	Seed           *int64            `json:"seed,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	Stream         bool              `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat implements Provider.
func (o *OpenAI) Chat(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	body := chatCompletionRequest{
		Model:       o.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Seed:        req.Seed,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.RequireJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return ModelResponse{}, o.newError(KindBadRequest).WithDetail("encode request: %v", err).WithCause(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(b))
	if err != nil {
		return ModelResponse{}, o.newError(KindInternal).WithCode("request_build").WithDetail("%v", err).WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	start := time.Now()
	resp, err := o.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ModelResponse{}, err
		}
		return ModelResponse{}, classifyTransport(err, o.id, o.model)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		pe := o.newError(kindForStatus(resp.StatusCode)).
			WithDetail("HTTP %d from %s: %s", resp.StatusCode, o.endpoint, strings.TrimSpace(string(raw)))
		if pe.Kind == KindRateLimited {
			pe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), "context_length_exceeded") {
			pe.Kind = KindContextTooLarge
			pe.UserMessage = defaultUserMessage(KindContextTooLarge)
		}
		return ModelResponse{}, pe
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ModelResponse{}, o.newError(KindBadRequest).
			WithMessage("The provider returned an unreadable response").
			WithDetail("decode response: %v", err).
			WithCause(err)
	}
	if len(out.Choices) == 0 {
		return ModelResponse{}, o.newError(KindBadRequest).
			WithMessage("The provider returned no choices")
	}

	choice := out.Choices[0]
	model := out.Model
	if model == "" {
		model = o.model
	}
	return ModelResponse{
		Content:      choice.Message.Content,
		FinishReason: openAIFinish(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		ModelID: model,
		Latency: time.Since(start),
	}, nil
}

func (o *OpenAI) newError(kind Kind) *ProviderError {
	return NewError(kind, o.id).WithModel(o.model)
}

func openAIFinish(reason string) FinishReason {
	switch reason {
	case "length":
		return FinishLength
	case "tool_calls", "function_call":
		return FinishToolCalls
	case "content_filter":
		return FinishContentFilter
	case "", "stop":
		return FinishStop
	default:
		return FinishReason(reason)
	}
}
