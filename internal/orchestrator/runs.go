package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// maxRunIDLen bounds caller-supplied run ids.
const maxRunIDLen = 128

var (
	// ErrRunActive is returned when a run id is already in flight.
	ErrRunActive = errors.New("run id already active")
	// ErrInvalidRunID is returned for run ids that cannot name a run.
	ErrInvalidRunID = errors.New("invalid run id")
)

// ValidateRunID checks a caller-supplied run id. Ids double as signal
// file names, so path separators and dot names are refused.
func ValidateRunID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidRunID)
	case len(id) > maxRunIDLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidRunID, maxRunIDLen)
	case strings.ContainsAny(id, "/\\\x00"), id == ".", id == "..":
		return fmt.Errorf("%w %q", ErrInvalidRunID, id)
	}
	return nil
}

// runTracker holds the cancel functions of in-flight runs.
type runTracker struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newRunTracker() *runTracker {
	return &runTracker{cancels: make(map[string]context.CancelFunc)}
}

// add registers a run. An id stays owned by its first run until that run
// removes it.
func (t *runTracker) add(id string, cancel context.CancelFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cancels[id]; ok {
		return fmt.Errorf("%w: %s", ErrRunActive, id)
	}
	t.cancels[id] = cancel
	return nil
}

func (t *runTracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cancels, id)
}

// Cancel cancels the in-flight run with the given id. It reports whether
// such a run existed.
func (o *Orchestrator) Cancel(runID string) bool {
	o.runs.mu.Lock()
	cancel, ok := o.runs.cancels[runID]
	o.runs.mu.Unlock()
	if !ok {
		return false
	}
	log.Printf("[orchestrator] cancelling run %s", runID)
	cancel()
	return true
}

// CancelAll cancels every in-flight run and returns how many there were.
func (o *Orchestrator) CancelAll() int {
	o.runs.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.runs.cancels))
	for _, c := range o.runs.cancels {
		cancels = append(cancels, c)
	}
	o.runs.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	if len(cancels) > 0 {
		log.Printf("[orchestrator] cancelled %d runs", len(cancels))
	}
	return len(cancels)
}

// Active returns the ids of in-flight runs, sorted.
func (o *Orchestrator) Active() []string {
	o.runs.mu.Lock()
	defer o.runs.mu.Unlock()
	ids := make([]string, 0, len(o.runs.cancels))
	for id := range o.runs.cancels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
