package decompose

import (
	"regexp"
	"strings"

	"github.com/Adr1an04/boomai/pkg/models"
)

// Race budget for reasoning steps.
const (
	ReasoningRaceN = 5
	ReasoningRaceK = 2
)

// reasoningKeywords mark open-ended steps that benefit from a race even
// when they mention numbers.
var reasoningKeywords = regexp.MustCompile(`\b(pros|cons|lists?|concise|compare|contrast|explain|summary|summarize|advantages|disadvantages|greater than)\b`)

var (
	mathWords = regexp.MustCompile(`\b(add|sum|plus|subtract|minus|times|multiply|divide|calculate|compute)\b`)
	// residualMathWords is mathWords plus terms that only make sense once
	// the tool signatures have declined a step.
	residualMathWords = regexp.MustCompile(`\b(add|sum|plus|subtract|minus|times|multiply|divide|calculate|compute|power|sqrt)\b`)
)

// ToolSignature detects whether free text names a tool. Any pattern
// matching is enough unless Requires is set, in which case it must also
// hold. Kind is the step kind a match produces.
type ToolSignature struct {
	Tool     models.ToolKind
	Kind     models.StepKind
	Patterns []*regexp.Regexp
	Requires func(lower string) bool
}

// ToolRegistry is an ordered list of tool signatures.
type ToolRegistry struct {
	Signatures []ToolSignature
}

// DefaultToolRegistry knows the system clock and the calculator. A
// calculator match is a math step: it needs a digit and either an
// operator or a math word, so "compute the meaning of life" is not one.
func DefaultToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		Signatures: []ToolSignature{
			{
				Tool: models.ToolSystemTime,
				Kind: models.StepTool,
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`\bcurrent (system )?time\b`),
					regexp.MustCompile(`\bexact current time\b`),
					regexp.MustCompile(`\bwhat time is it\b`),
					regexp.MustCompile(`\bnow time\b`),
					regexp.MustCompile(`\bsystem time\b`),
				},
			},
			{
				Tool: models.ToolCalculator,
				Kind: models.StepMath,
				Patterns: []*regexp.Regexp{
					regexp.MustCompile(`[0-9][0-9+\-*/\s().]*[0-9]`),
					mathWords,
				},
				Requires: func(lower string) bool {
					return hasDigit(lower) && (hasOperator(lower) || mathWords.MatchString(lower))
				},
			},
		},
	}
}

// Match returns the first signature matching text.
func (r *ToolRegistry) Match(text string) (ToolSignature, bool) {
	lower := strings.ToLower(text)
	for _, sig := range r.Signatures {
		if !anyMatch(sig.Patterns, lower) {
			continue
		}
		if sig.Requires != nil && !sig.Requires(lower) {
			continue
		}
		return sig, true
	}
	return ToolSignature{}, false
}

// ClassifyStep classifies step text with r. The returned step has ID 0.
func (r *ToolRegistry) ClassifyStep(text string) models.Step {
	step := models.Step{Text: text, Kind: models.StepReasoning}
	lower := strings.ToLower(text)

	if reasoningKeywords.MatchString(lower) {
		return step
	}
	if sig, ok := r.Match(text); ok {
		step.Kind = sig.Kind
		step.Tool = sig.Tool
		return step
	}
	if LooksLikeMath(text) {
		step.Kind = models.StepMath
		step.Tool = models.ToolCalculator
	}
	return step
}

// ClassifyStep classifies step text with the default registry.
func ClassifyStep(text string) models.Step {
	return DefaultToolRegistry().ClassifyStep(text)
}

// LooksLikeMath reports whether text has a digit and either an arithmetic
// operator or a math word.
func LooksLikeMath(text string) bool {
	lower := strings.ToLower(text)
	return hasDigit(lower) && (hasOperator(lower) || residualMathWords.MatchString(lower))
}

// ResolveStrategy maps a step to how it is executed. A step carrying a tool
// always calls it.
func ResolveStrategy(step models.Step) models.ExecStrategy {
	if step.HasTool() {
		return models.ExecStrategy{Kind: models.StrategyToolCall, Tool: step.Tool}
	}
	switch step.Kind {
	case models.StepTool:
		return models.ExecStrategy{Kind: models.StrategySingleProbe}
	case models.StepMath:
		return models.ExecStrategy{Kind: models.StrategyToolCall, Tool: models.ToolCalculator}
	default:
		return models.ExecStrategy{Kind: models.StrategyMakerRace, N: ReasoningRaceN, K: ReasoningRaceK}
	}
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

func hasOperator(s string) bool {
	return strings.ContainsAny(s, "+-*/")
}
