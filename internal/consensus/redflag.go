package consensus

import (
	"strings"
	"unicode/utf8"
)

// DefaultRedFlagMaxChars approximates a 700 token budget at four
// characters per token.
const DefaultRedFlagMaxChars = 700 * 4

// ConfusionSignature is a set of phrases that, all present together, mark a
// candidate as a confusion loop. Matching is case-insensitive.
type ConfusionSignature struct {
	Name    string
	Phrases []string
}

// DefaultConfusionSignatures is the built-in signature table.
var DefaultConfusionSignatures = []ConfusionSignature{
	{Name: "apology_retry", Phrases: []string{"i apologize", "let me try again"}},
}

// RedFlagFilter rejects obviously degenerate candidates before they reach a
// vote. It says nothing about correctness.
type RedFlagFilter struct {
	MaxChars   int
	Signatures []ConfusionSignature
}

// NewRedFlagFilter creates a filter with the given character ceiling and
// the default signatures. maxChars <= 0 uses DefaultRedFlagMaxChars.
func NewRedFlagFilter(maxChars int) *RedFlagFilter {
	if maxChars <= 0 {
		maxChars = DefaultRedFlagMaxChars
	}
	return &RedFlagFilter{
		MaxChars:   maxChars,
		Signatures: DefaultConfusionSignatures,
	}
}

// IsFlagged reports whether the candidate should be excluded.
func (f *RedFlagFilter) IsFlagged(candidate string) bool {
	_, flagged := f.Reason(candidate)
	return flagged
}

// Reason is IsFlagged that also names the rule that fired.
func (f *RedFlagFilter) Reason(candidate string) (string, bool) {
	if utf8.RuneCountInString(candidate) > f.MaxChars {
		return "too_long", true
	}

	lower := strings.ToLower(candidate)
	for _, sig := range f.Signatures {
		if containsAll(lower, sig.Phrases) {
			return sig.Name, true
		}
	}
	return "", false
}

func containsAll(s string, phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	for _, p := range phrases {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
