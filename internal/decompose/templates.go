package decompose

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Template is a canned plan for a known multi-clause phrasing.
//
// A template either expands Pattern's capture groups into Steps ("${1}"
// is the first group), or, when Split is set, splits the goal on it and
// uses each part as a step. Fallback templates are only consulted when
// model decomposition produced nothing usable.
type Template struct {
	Name     string
	Pattern  *regexp.Regexp
	Split    *regexp.Regexp
	Steps    []string
	Fallback bool
}

// Plan expands the template against goal. It returns false when the
// template does not apply.
func (t Template) Plan(goal string) ([]string, bool) {
	goal = strings.TrimSpace(goal)

	if t.Split != nil {
		var parts []string
		for _, p := range t.Split.Split(goal, -1) {
			if p = strings.TrimSpace(strings.Trim(p, ",;")); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) < 2 {
			return nil, false
		}
		return parts, true
	}

	if t.Pattern == nil {
		return nil, false
	}
	match := t.Pattern.FindStringSubmatchIndex(goal)
	if match == nil {
		return nil, false
	}
	steps := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		steps = append(steps, string(t.Pattern.ExpandString(nil, s, goal, match)))
	}
	return steps, true
}

// DefaultTemplates are the built-in plans.
var DefaultTemplates = []Template{
	{
		Name:    "years_since",
		Pattern: regexp.MustCompile(`(?i)^how many years (?:ago|since|has it been since) (.+?)[?.]?$`),
		Steps: []string{
			"In what year ${1}? Answer with the year only.",
			"What is the current system time",
			"Calculate {step2} - {step1}",
		},
	},
	{
		Name:    "which_first",
		Pattern: regexp.MustCompile(`(?i)^which (?:came|was released|was founded|happened) first,? (.+?) or (.+?)[?.]?$`),
		Steps: []string{
			"In what year was ${1} first released or founded? Answer with the year only.",
			"In what year was ${2} first released or founded? Answer with the year only.",
			"Calculate {step1} <= {step2}",
			"If {step3} is true answer '${1}', otherwise answer '${2}'. Output only the answer.",
		},
	},
	{
		Name:    "time_and",
		Pattern: regexp.MustCompile(`(?i)^what time is it,? and (.+?)$`),
		Steps: []string{
			"What is the current system time",
			"${1}",
		},
	},
	{
		Name:     "sequence",
		Split:    regexp.MustCompile(`(?i)\s*,?\s*\b(?:and then|then|after that|afterwards|finally)\b\s*`),
		Fallback: true,
	},
}

// templateFile is the on-disk form of extra templates.
type templateFile struct {
	Templates []struct {
		Name     string   `yaml:"name"`
		Pattern  string   `yaml:"pattern"`
		Split    string   `yaml:"split"`
		Steps    []string `yaml:"steps"`
		Fallback bool     `yaml:"fallback"`
	} `yaml:"templates"`
}

// LoadTemplates reads templates from a YAML file of the form
//
//	templates:
//	  - name: convert
//	    pattern: '(?i)^convert (\d+) (\w+) to (\w+)$'
//	    steps: ["How many ${3} are in one ${2}?", "Calculate ${1} * {step1}"]
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes YAML template definitions.
func ParseTemplates(data []byte) ([]Template, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	out := make([]Template, 0, len(file.Templates))
	for i, raw := range file.Templates {
		name := raw.Name
		if name == "" {
			name = fmt.Sprintf("template_%d", i+1)
		}
		t := Template{Name: name, Steps: raw.Steps, Fallback: raw.Fallback}

		switch {
		case raw.Split != "":
			re, err := regexp.Compile(raw.Split)
			if err != nil {
				return nil, fmt.Errorf("template %q: split: %w", name, err)
			}
			t.Split = re
		case raw.Pattern != "":
			re, err := regexp.Compile(raw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("template %q: pattern: %w", name, err)
			}
			if len(raw.Steps) == 0 {
				return nil, fmt.Errorf("template %q: pattern without steps", name)
			}
			t.Pattern = re
		default:
			return nil, fmt.Errorf("template %q: needs pattern or split", name)
		}
		out = append(out, t)
	}
	return out, nil
}

// matchTemplate returns the first template that applies. fallback selects
// which group of templates is searched.
func matchTemplate(templates []Template, goal string, fallback bool) (string, []string, bool) {
	for _, t := range templates {
		if t.Fallback != fallback {
			continue
		}
		if steps, ok := t.Plan(goal); ok {
			return t.Name, steps, true
		}
	}
	return "", nil, false
}
