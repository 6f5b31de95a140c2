// Package decompose splits compound goals into ordered steps and decides
// how each step is executed.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/pkg/models"
)

const (
	// DefaultMaxSteps caps a plan.
	DefaultMaxSteps = 8
	// DefaultCacheSize is the number of model plans kept.
	DefaultCacheSize = 128
	// maxInstructionChars is the length above which a model "instruction"
	// is treated as an answer.
	maxInstructionChars = 200
)

var answerMarkers = regexp.MustCompile(`(?i)(\bresult:|\banswer:|\bfinal answer\b|https?://|\bwww\.)`)

// Executor runs one model request. *provider.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, req provider.ModelRequest) (provider.ModelResponse, error)
}

// Source says where a plan came from.
type Source string

const (
	SourceTemplate  Source = "template"
	SourceModel     Source = "model"
	SourceCache     Source = "cache"
	SourceFallback  Source = "fallback_template"
	SourceWholeGoal Source = "whole_goal"
)

// Plan is an ordered list of step instructions.
type Plan struct {
	Instructions []string
	Source       Source
	// Template names the template used, if any.
	Template string
	// Dropped counts instructions cut by the step cap.
	Dropped int
}

// Steps classifies the plan's instructions. IDs start at 1 so that {step1}
// refers to the first step.
func (p Plan) Steps(r *ToolRegistry) []models.Step {
	steps := make([]models.Step, 0, len(p.Instructions))
	for i, text := range p.Instructions {
		s := r.ClassifyStep(text)
		s.ID = i + 1
		steps = append(steps, s)
	}
	return steps
}

// Decomposer breaks goals into steps: templates first, then the model, then
// fallbacks. It never fails; the worst case is the goal as a single step.
type Decomposer struct {
	exec      Executor
	templates []Template
	registry  *ToolRegistry
	cache     *lru.Cache[string, []string]
	maxSteps  int
}

// Option configures a Decomposer.
type Option func(*Decomposer)

// WithTemplates adds templates ahead of the built-in ones.
func WithTemplates(ts ...Template) Option {
	return func(d *Decomposer) {
		d.templates = append(append([]Template{}, ts...), d.templates...)
	}
}

// WithMaxSteps sets the step cap.
func WithMaxSteps(n int) Option {
	return func(d *Decomposer) {
		if n > 0 {
			d.maxSteps = n
		}
	}
}

// WithCacheSize sets the plan cache size. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(d *Decomposer) {
		d.cache = nil
		if n > 0 {
			c, err := lru.New[string, []string](n)
			if err == nil {
				d.cache = c
			}
		}
	}
}

// WithToolRegistry replaces the step classifier's tool registry.
func WithToolRegistry(r *ToolRegistry) Option {
	return func(d *Decomposer) {
		d.registry = r
	}
}

// New creates a Decomposer. exec may be nil, in which case only templates
// and fallbacks are used.
func New(exec Executor, opts ...Option) *Decomposer {
	d := &Decomposer{
		exec:      exec,
		templates: append([]Template{}, DefaultTemplates...),
		registry:  DefaultToolRegistry(),
		maxSteps:  DefaultMaxSteps,
	}
	WithCacheSize(DefaultCacheSize)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the tool registry used to classify steps.
func (d *Decomposer) Registry() *ToolRegistry { return d.registry }

// MaxSteps returns the step cap.
func (d *Decomposer) MaxSteps() int { return d.maxSteps }

// Decompose returns the plan for goal.
func (d *Decomposer) Decompose(ctx context.Context, goal string) Plan {
	goal = strings.TrimSpace(goal)
	key := cacheKey(goal)

	if name, steps, ok := matchTemplate(d.templates, goal, false); ok {
		log.Printf("[decompose] template %s matched", name)
		return d.capped(Plan{Instructions: steps, Source: SourceTemplate, Template: name})
	}

	if d.cache != nil {
		if steps, ok := d.cache.Get(key); ok {
			return d.capped(Plan{Instructions: append([]string{}, steps...), Source: SourceCache})
		}
	}

	if steps := d.fromModel(ctx, goal); len(steps) > 0 {
		if d.cache != nil {
			d.cache.Add(key, append([]string{}, steps...))
		}
		return d.capped(Plan{Instructions: steps, Source: SourceModel})
	}

	if name, steps, ok := matchTemplate(d.templates, goal, true); ok {
		log.Printf("[decompose] falling back to template %s", name)
		return d.capped(Plan{Instructions: steps, Source: SourceFallback, Template: name})
	}

	log.Printf("[decompose] no usable plan, treating goal as one step")
	return Plan{Instructions: []string{goal}, Source: SourceWholeGoal}
}

func (d *Decomposer) fromModel(ctx context.Context, goal string) []string {
	if d.exec == nil {
		return nil
	}

	req := provider.NewRequest(fmt.Sprintf(decompositionPrompt, goal, d.maxSteps))
	req.RequireJSON = true
	resp, err := d.exec.Execute(ctx, req)
	if err != nil {
		log.Printf("[decompose] model decomposition failed: %v", err)
		return nil
	}

	steps, err := ParseResponse(resp.Content)
	if err != nil {
		log.Printf("[decompose] parse decomposition response: %v", err)
		return nil
	}
	filtered := FilterInstructions(steps)
	if dropped := len(steps) - len(filtered); dropped > 0 {
		log.Printf("[decompose] dropped %d answer-like steps", dropped)
	}
	return filtered
}

func (d *Decomposer) capped(p Plan) Plan {
	if len(p.Instructions) > d.maxSteps {
		p.Dropped = len(p.Instructions) - d.maxSteps
		p.Instructions = p.Instructions[:d.maxSteps]
		log.Printf("[decompose] plan capped at %d steps, dropped %d", d.maxSteps, p.Dropped)
	}
	return p
}

func cacheKey(goal string) string {
	return strings.ToLower(strings.Join(strings.Fields(goal), " "))
}

// ParseResponse extracts the instruction array from a model reply. Text
// around the array, including markdown code fences, is ignored. Elements
// may be strings or objects with an "instruction", "step" or "text" field.
func ParseResponse(response string) ([]string, error) {
	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		responsePreview := response
		if len(responsePreview) > 200 {
			responsePreview = responsePreview[:200] + "... (truncated)"
		}
		return nil, fmt.Errorf("no valid JSON array found in response (got %d chars): %q", len(response), responsePreview)
	}
	jsonStr := response[jsonStart : jsonEnd+1]

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty step list returned")
	}

	steps := make([]string, 0, len(raw))
	for i, item := range raw {
		text, err := instructionText(item)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			steps = append(steps, text)
		}
	}
	return steps, nil
}

func instructionText(item json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s, nil
	}

	var obj struct {
		Instruction string `json:"instruction"`
		Step        string `json:"step"`
		Text        string `json:"text"`
	}
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", fmt.Errorf("neither string nor object: %w", err)
	}
	for _, v := range []string{obj.Instruction, obj.Step, obj.Text} {
		if v != "" {
			return v, nil
		}
	}
	return "", nil
}

// FilterInstructions drops entries that read like answers rather than
// actionable instructions: overly long text, "result:"/"answer:" markers
// and URLs.
func FilterInstructions(steps []string) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		if LooksLikeAnswer(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// LooksLikeAnswer reports whether an instruction is really an answer.
func LooksLikeAnswer(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxInstructionChars {
		return true
	}
	return answerMarkers.MatchString(s)
}
