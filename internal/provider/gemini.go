package provider

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/Adr1an04/boomai/pkg/models"
)

// GeminiConfig configures a Gemini backend.
type GeminiConfig struct {
	ID     string
	Model  string
	APIKey string
}

// Gemini is a Provider backed by the Gemini API.
type Gemini struct {
	id    string
	cli   *genai.Client
	model string
}

// NewGemini creates a Gemini provider. The API key falls back to
// GEMINI_API_KEY, then to the client's own environment lookup.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	id := cfg.ID
	if id == "" {
		id = "gemini"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, NewError(KindAuthMissing, id).WithModel(model).WithDetail("%v", err).WithCause(err)
	}
	return &Gemini{id: id, cli: cli, model: model}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Chat implements Provider.
func (g *Gemini) Chat(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	system, rest := splitSystem(req.Messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}

	cfg := &genai.GenerateContentConfig{StopSequences: req.Stop}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		cfg.TopP = &p
	}
	if req.RequireJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return ModelResponse{}, g.mapError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ModelResponse{}, NewError(KindBadRequest, g.id).
			WithModel(g.model).
			WithMessage("The provider returned no candidates")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := ModelResponse{
		Content:      text.String(),
		FinishReason: geminiFinish(string(cand.FinishReason)),
		ModelID:      g.model,
		Latency:      time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func geminiFinish(reason string) FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return FinishContentFilter
	default:
		return FinishStop
	}
}

func (g *Gemini) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return NewError(kindForStatus(apiErr.Code), g.id).
			WithModel(g.model).
			WithDetail("HTTP %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message).
			WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return classifyTransport(err, g.id, g.model)
}
