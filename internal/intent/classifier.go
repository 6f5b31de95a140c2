package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adr1an04/boomai/internal/provider"
)

// Class is the model classifier's answer.
type Class string

const (
	ClassSimple  Class = "SIMPLE"
	ClassComplex Class = "COMPLEX"
	ClassTool    Class = "TOOL"
)

// ErrUnknownClass is returned when the model answers outside the label set.
var ErrUnknownClass = errors.New("unrecognized classification")

const classifierPrompt = "Classify the request as SIMPLE, COMPLEX, or TOOL. Output the category name ONLY. Do not write a sentence."

// Classifier labels a request the heuristics could not place.
type Classifier interface {
	Classify(ctx context.Context, text string) (Class, error)
}

// Executor runs one model request. *provider.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, req provider.ModelRequest) (provider.ModelResponse, error)
}

// ModelClassifier asks a model for the label.
type ModelClassifier struct {
	exec Executor
}

// NewModelClassifier creates a classifier backed by exec.
func NewModelClassifier(exec Executor) *ModelClassifier {
	return &ModelClassifier{exec: exec}
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, text string) (Class, error) {
	req := provider.NewRequest(text).WithSystem(classifierPrompt)
	req.MaxOutputTokens = 8
	temp := 0.0
	req.Temperature = &temp

	resp, err := c.exec.Execute(ctx, req)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return ParseClass(resp.Content)
}

// ParseClass reads the first word of a reply as a label. Models that
// wrap the label in punctuation or trail it with prose are tolerated.
func ParseClass(reply string) (Class, error) {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty reply", ErrUnknownClass)
	}
	token := strings.ToUpper(strings.Trim(fields[0], "\"'`*.,:;!"))
	switch c := Class(token); c {
	case ClassSimple, ClassComplex, ClassTool:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownClass, token)
	}
}
