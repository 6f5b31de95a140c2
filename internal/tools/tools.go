// Package tools provides the deterministic stubs the orchestrator can call
// instead of a model: the system clock and an arithmetic evaluator.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

var (
	// ErrUnknownTool is returned for a name with no registered handler.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrNoResult is returned when a tool ran but produced nothing usable.
	ErrNoResult = errors.New("tool produced no result")
)

// TimeLayout is the format of the system_time stub.
const TimeLayout = "2006-01-02 15:04:05"

// Handler runs one tool with free-text arguments.
type Handler func(ctx context.Context, args string) (string, error)

// Invoker dispatches tool calls by name. It is safe for concurrent use.
type Invoker struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewInvoker returns an invoker with the built-in stubs registered.
func NewInvoker() *Invoker {
	inv := &Invoker{handlers: make(map[string]Handler)}
	inv.Register(string(models.ToolSystemTime), SystemTime(time.Now))
	inv.Register(string(models.ToolCalculator), Calculator)
	return inv
}

// Register adds or replaces a handler.
func (i *Invoker) Register(name string, h Handler) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers[name] = h
}

// Has reports whether name is registered.
func (i *Invoker) Has(name string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.handlers[name]
	return ok
}

// Names returns the registered tool names, sorted.
func (i *Invoker) Names() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	names := make([]string, 0, len(i.handlers))
	for name := range i.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named tool.
func (i *Invoker) Invoke(ctx context.Context, name, args string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	i.mu.RLock()
	h, ok := i.handlers[name]
	i.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	out, err := h(ctx, args)
	if err != nil {
		log.Printf("[tools] %s failed: %v", name, err)
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoResult)
	}
	return out, nil
}

// SystemTime returns a handler formatting now() with TimeLayout. Arguments
// are ignored.
func SystemTime(now func() time.Time) Handler {
	return func(context.Context, string) (string, error) {
		return now().Format(TimeLayout), nil
	}
}
