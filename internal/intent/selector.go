package intent

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/Adr1an04/boomai/pkg/models"
)

const (
	// DefaultRaceN and DefaultRaceK are the race budget for enumeration
	// requests.
	DefaultRaceN = 5
	DefaultRaceK = 2
)

// Rule names, in evaluation order.
const (
	RuleCompound    = "compound"
	RuleArithmetic  = "arithmetic"
	RuleTime        = "time"
	RuleEnumeration = "enumeration"
	RuleDefault     = "default"
	RuleClassifier  = "classifier"
)

var (
	digitOpDigit     = regexp.MustCompile(`\d\s*[+\-*/]\s*\(?\s*\d`)
	arithmeticOnly   = regexp.MustCompile(`^[\d\s.+\-*/()]+$`)
	trailingQuestion = regexp.MustCompile(`[\s?=.!]+$`)
)

// Rule is one entry of the ordered matcher table. Match receives the
// lower-cased text; Policy receives the raw text.
type Rule struct {
	Name   string
	Match  func(lower string) (keyword string, ok bool)
	Policy func(raw string) models.ExecutionPolicy
}

// Selection is a policy together with the rule that produced it.
type Selection struct {
	Policy         models.ExecutionPolicy
	Rule           string
	MatchedKeyword string
}

// Selector maps request text to an execution policy. The first matching
// rule wins; a request matching nothing gets a single probe.
type Selector struct {
	rules      []Rule
	raceN      int
	raceK      int
	classifier Classifier
}

// Option configures a Selector.
type Option func(*Selector)

// WithRace sets the race budget used for enumeration requests.
func WithRace(n, k int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.raceN = n
		}
		if k > 0 {
			s.raceK = k
		}
	}
}

// WithClassifier enables the model fallback for requests no rule matched.
func WithClassifier(c Classifier) Option {
	return func(s *Selector) {
		s.classifier = c
	}
}

// NewSelector creates a selector over DefaultKeywords.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{raceN: DefaultRaceN, raceK: DefaultRaceK}
	for _, opt := range opts {
		opt(s)
	}
	s.rules = DefaultRules(DefaultKeywords, s.raceN, s.raceK)
	return s
}

// DefaultRules builds the ordered matcher table. Compound requests are
// checked first so multi-part requests never misfire as a single tool call.
func DefaultRules(kw Keywords, raceN, raceK int) []Rule {
	return []Rule{
		{
			Name:   RuleCompound,
			Match:  kw.matchCompound,
			Policy: func(string) models.ExecutionPolicy { return models.DecomposeAndExecute() },
		},
		{
			Name:  RuleArithmetic,
			Match: kw.matchArithmetic,
			Policy: func(raw string) models.ExecutionPolicy {
				return models.InternalStub(string(models.ToolCalculator), raw)
			},
		},
		{
			Name:  RuleTime,
			Match: kw.matchTime,
			Policy: func(string) models.ExecutionPolicy {
				return models.InternalStub(string(models.ToolSystemTime), "")
			},
		},
		{
			Name:  RuleEnumeration,
			Match: kw.matchEnumeration,
			Policy: func(raw string) models.ExecutionPolicy {
				return models.MakerRace(raw, raceN, raceK)
			},
		},
	}
}

// Select returns the heuristic policy for text.
func (s *Selector) Select(text string) models.ExecutionPolicy {
	return s.Classify(text).Policy
}

// Classify runs the heuristic table and reports which rule fired.
func (s *Selector) Classify(text string) Selection {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	for _, rule := range s.rules {
		if kw, ok := rule.Match(lower); ok {
			return Selection{Policy: rule.Policy(raw), Rule: rule.Name, MatchedKeyword: kw}
		}
	}
	return Selection{Policy: models.SingleProbe(raw), Rule: RuleDefault}
}

// SelectContext is Classify followed by the optional model classifier when
// no rule matched. COMPLEX upgrades the request to decomposition; any other
// answer, or a classifier failure, keeps the single probe.
func (s *Selector) SelectContext(ctx context.Context, text string) Selection {
	sel := s.Classify(text)
	if sel.Rule != RuleDefault || s.classifier == nil {
		return sel
	}

	class, err := s.classifier.Classify(ctx, text)
	if err != nil {
		log.Printf("[intent] classifier fallback failed: %v", err)
		return sel
	}
	log.Printf("[intent] classifier says %s", class)
	if class == ClassComplex {
		return Selection{Policy: models.DecomposeAndExecute(), Rule: RuleClassifier, MatchedKeyword: string(class)}
	}
	return sel
}

func (kw Keywords) matchCompound(lower string) (string, bool) {
	for _, re := range kw.Connectives {
		if m := re.FindString(lower); m != "" {
			return m, true
		}
	}
	if n := len(kw.ListMarker.FindAllString(lower, -1)); n >= minListItems {
		return "list markers", true
	}
	if n := len(kw.InlineMarker.FindAllString(lower, -1)); n >= minListItems {
		return "numbered items", true
	}

	words := len(strings.Fields(lower))
	if words > longWords {
		return "long request", true
	}
	if words >= denseWords && strings.Count(lower, ",") >= commaDense {
		return "comma dense", true
	}
	return "", false
}

func (kw Keywords) matchArithmetic(lower string) (string, bool) {
	if IsArithmetic(kw.QuestionPrefixes.ReplaceAllString(lower, "")) {
		return "expression", true
	}
	if verb := kw.MathVerbs.FindString(lower); verb != "" && digitOpDigit.MatchString(lower) {
		return verb, true
	}
	return "", false
}

func (kw Keywords) matchTime(lower string) (string, bool) {
	for _, re := range kw.TimePhrases {
		if m := re.FindString(lower); m != "" {
			return m, true
		}
	}
	if kw.TimeWords.MatchString(lower) && kw.NowWords.MatchString(lower) {
		return "time now", true
	}
	return "", false
}

func (kw Keywords) matchEnumeration(lower string) (string, bool) {
	for _, re := range kw.Enumeration {
		if m := re.FindString(lower); m != "" {
			return m, true
		}
	}
	return "", false
}

// IsArithmetic reports whether text is a bare arithmetic expression: only
// digits, operators and parentheses, with at least one operator between
// digits, that compiles as an expression. Trailing "?" or "=" is ignored.
func IsArithmetic(text string) bool {
	s := trailingQuestion.ReplaceAllString(strings.TrimSpace(text), "")
	if s == "" || !arithmeticOnly.MatchString(s) || !digitOpDigit.MatchString(s) {
		return false
	}
	_, err := expr.Compile(s)
	return err == nil
}
