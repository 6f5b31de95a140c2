package decompose

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Adr1an04/boomai/internal/tools"
)

var (
	stepPlaceholder = regexp.MustCompile(`\{step(\d+)\}`)
	yearToken       = regexp.MustCompile(`\b(1[0-9]{3}|2[0-9]{3})\b`)
	comparisonExpr  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(>=|<=|>|<)\s*(-?\d+(?:\.\d+)?)`)
	greaterThanExpr = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s+(?:is\s+)?greater than\s+(-?\d+(?:\.\d+)?)`)
	arithmeticRun   = regexp.MustCompile(`[\d(][\d\s.+\-*/()]*[\d)]`)
	digitOpDigit    = regexp.MustCompile(`\d\s*[+\-*/]\s*\(?\s*\d`)
)

// ExecutionContext holds step results for one run, keyed by step id. It is
// append-only and safe for concurrent use.
type ExecutionContext struct {
	mu      sync.RWMutex
	results map[int]string
}

// NewExecutionContext creates an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{results: make(map[int]string)}
}

// Set stores the result for step id. A result already stored is kept.
func (c *ExecutionContext) Set(id int, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[id]; !ok {
		c.results[id] = result
	}
}

// Get returns the result for step id.
func (c *ExecutionContext) Get(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[id]
	return r, ok
}

// Prev returns the result with the highest step id.
func (c *ExecutionContext) Prev() (string, bool) {
	ids := c.ids()
	if len(ids) == 0 {
		return "", false
	}
	return c.Get(ids[len(ids)-1])
}

// Len returns the number of stored results.
func (c *ExecutionContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

func (c *ExecutionContext) ids() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.results))
	for id := range c.results {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Render substitutes {stepN} with step N's result and {prev} with the
// latest result. Placeholders without a stored result are left as is.
func Render(text string, ctx *ExecutionContext) string {
	rendered := stepPlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		id, err := strconv.Atoi(stepPlaceholder.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		if r, ok := ctx.Get(id); ok {
			return strings.TrimSpace(r)
		}
		return m
	})

	if strings.Contains(rendered, "{prev}") {
		if prev, ok := ctx.Prev(); ok {
			rendered = strings.ReplaceAll(rendered, "{prev}", strings.TrimSpace(prev))
		}
	}
	return rendered
}

// CalculatorArgs renders a calculator step down to an expression.
//
// Results carrying a four-digit year are first collapsed to that year, the
// previous result first. A comparison ("a > b", "a greater than b") wins
// over arithmetic; otherwise the first digit-operator-digit run is used and,
// failing that, the whole text is sanitized.
func CalculatorArgs(text string, ctx *ExecutionContext) string {
	rendered := Render(text, ctx)

	ids := ctx.ids()
	for i := len(ids) - 1; i >= 0; i-- {
		raw, _ := ctx.Get(ids[i])
		raw = strings.TrimSpace(raw)
		if raw == "" || !strings.Contains(rendered, raw) {
			continue
		}
		if year := yearToken.FindString(raw); year != "" && year != raw {
			rendered = strings.ReplaceAll(rendered, raw, year)
		}
	}

	if m := greaterThanExpr.FindStringSubmatch(rendered); m != nil {
		return m[1] + " > " + m[2]
	}
	if m := comparisonExpr.FindStringSubmatch(rendered); m != nil {
		return m[1] + " " + m[2] + " " + m[3]
	}
	for _, run := range arithmeticRun.FindAllString(rendered, -1) {
		if digitOpDigit.MatchString(run) {
			return strings.TrimSpace(run)
		}
	}
	return tools.Sanitize(rendered)
}
