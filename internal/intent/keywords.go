// Package intent chooses an execution policy for an incoming request.
package intent

import "regexp"

// Keywords is the single source of truth for the policy heuristics. Each
// field feeds one matcher; the matchers themselves are ordered in
// DefaultRules.
type Keywords struct {
	// Connectives mark a request made of several sequential parts.
	Connectives []*regexp.Regexp

	// ListMarker matches a numbered or bulleted item at the start of a line.
	ListMarker *regexp.Regexp

	// InlineMarker matches a numbered item inside a single line, as in
	// "1) fetch it 2) sum it".
	InlineMarker *regexp.Regexp

	// MathVerbs ask for an explicit calculation.
	MathVerbs *regexp.Regexp

	// QuestionPrefixes are stripped before testing the strict arithmetic
	// grammar, so "what is 2 + 2" parses as "2 + 2".
	QuestionPrefixes *regexp.Regexp

	// TimePhrases ask for the current time or date.
	TimePhrases []*regexp.Regexp

	// TimeWords and NowWords together are the loose time match used when no
	// phrase matched.
	TimeWords *regexp.Regexp
	NowWords  *regexp.Regexp

	// Enumeration asks for a list-shaped or length-bounded answer.
	Enumeration []*regexp.Regexp
}

// DefaultKeywords returns the built-in tables.
var DefaultKeywords = Keywords{
	Connectives: []*regexp.Regexp{
		regexp.MustCompile(`\band then\b`),
		regexp.MustCompile(`\bthen\b`),
		regexp.MustCompile(`\bafter that\b`),
		regexp.MustCompile(`\bafterwards\b`),
		regexp.MustCompile(`\bfollowed by\b`),
		regexp.MustCompile(`\bfinally\b`),
		regexp.MustCompile(`\bfirst\b.*\b(second|next)\b`),
		// Phrasings with a canned decomposition plan.
		regexp.MustCompile(`^how many years (ago|since|has it been since)\b`),
		regexp.MustCompile(`^which (came|was released|was founded|happened) first\b`),
	},

	ListMarker:   regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s+\S`),
	InlineMarker: regexp.MustCompile(`(^|\s)\d+[.)]\s+[a-z]`),

	MathVerbs: regexp.MustCompile(`\b(calculate|compute|evaluate)\b`),

	QuestionPrefixes: regexp.MustCompile(`^(what('s| is)|how much is|calculate|compute|evaluate|solve)\s+`),

	TimePhrases: []*regexp.Regexp{
		regexp.MustCompile(`\b(current|exact|system)\s+(system\s+)?(time|date)\b`),
		regexp.MustCompile(`\bwhat time is it\b`),
		regexp.MustCompile(`\btime (is it )?(right )?now\b`),
		regexp.MustCompile(`\bwhat('s| is) (the |today'?s )?date( today)?\b`),
	},

	TimeWords: regexp.MustCompile(`\b(time|date)\b`),
	NowWords:  regexp.MustCompile(`\b(now|today|currently)\b`),

	Enumeration: []*regexp.Regexp{
		regexp.MustCompile(`\blist\b`),
		regexp.MustCompile(`\bpros\b`),
		regexp.MustCompile(`\bcons\b`),
		regexp.MustCompile(`\bconcise(ly)?\b`),
		regexp.MustCompile(`\bunder \d+ words\b`),
		regexp.MustCompile(`\bin \d+ words or (less|fewer)\b`),
	},
}

const (
	// longWords is the word count above which a request counts as compound.
	longWords = 40
	// commaDense is the comma count above which a request counts as compound
	// once it is at least denseWords long.
	commaDense = 3
	denseWords = 15
	// minListItems is how many list markers make a request compound.
	minListItems = 2
)
