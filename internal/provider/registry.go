package provider

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// EntryKind describes the deployment behind a registry entry.
type EntryKind string

const (
	EntryLocal  EntryKind = "local"
	EntryRemote EntryKind = "remote"
	EntryMock   EntryKind = "mock"
)

// Entry is one registered provider.
type Entry struct {
	ID      string    `json:"id"`
	ModelID string    `json:"model_id"`
	Kind    EntryKind `json:"kind"`
	runner  *Runner
}

// Registry holds named runners and a default. Reads are concurrent;
// registration is exclusive.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	defaultID string
	global    *Limiter
}

// NewRegistry creates an empty registry. If global is non-nil every
// registered runner also acquires from it.
func NewRegistry(global *Limiter) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		global:  global,
	}
}

// Register adds or replaces the entry for id and returns its runner. The
// first entry registered while no default exists becomes the default.
func (r *Registry) Register(id string, p Provider, cfg RunnerConfig, modelID string, kind EntryKind) *Runner {
	opts := []RunnerOption{WithModelID(modelID)}
	if r.global != nil {
		opts = append(opts, WithGlobalLimiter(r.global))
	}
	runner := NewRunner(id, p, cfg, opts...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = &Entry{ID: id, ModelID: modelID, Kind: kind, runner: runner}
	if r.defaultID == "" {
		r.defaultID = id
		log.Printf("[registry] %s (%s) is now the default provider", id, modelID)
	}
	return runner
}

// SetDefault makes id the default. Unknown ids are ignored and reported
// as an error.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("set default %q: %w", id, ErrProviderNotFound)
	}
	r.defaultID = id
	return nil
}

// DefaultID returns the id of the default provider, or "".
func (r *Registry) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

// DefaultRunner returns the default runner.
func (r *Registry) DefaultRunner() (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[r.defaultID]
	if !ok {
		return nil, false
	}
	return e.runner, true
}

// Runner returns the runner registered under id.
func (r *Registry) Runner(id string) (*Runner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.runner, true
}

// ExecuteDefault sends req to the default runner. It never retries or
// falls back to another provider.
func (r *Registry) ExecuteDefault(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	runner, ok := r.DefaultRunner()
	if !ok {
		return ModelResponse{}, NewError(KindInternal, "registry").
			WithCode("no_default_provider").
			WithMessage("No default provider configured").
			WithCause(ErrNoDefaultProvider)
	}
	return runner.Execute(ctx, req)
}

// List returns all entries sorted by id.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Entry{ID: e.ID, ModelID: e.ModelID, Kind: e.Kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsEmpty reports whether nothing is registered.
func (r *Registry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries) == 0
}

// TotalInFlight sums in-flight calls across all runners.
func (r *Registry) TotalInFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, e := range r.entries {
		total += e.runner.InFlight()
	}
	return total
}
