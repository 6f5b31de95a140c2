package orchestrator

import (
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

// Event is one progress update from a run. Events are used by the TUI and
// the streaming endpoint; they carry no sensitive detail.
type Event struct {
	// RunID identifies the run that emitted the event.
	RunID string `json:"run_id"`
	// Status is the progress tag.
	Status models.ExecutionStatus `json:"status"`
	// StepID is the decomposed step the event belongs to, if any.
	StepID int `json:"step_id,omitempty"`
	// Message provides additional context, e.g. the step text.
	Message string `json:"message,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives events synchronously from the run that emits them.
// It must not block for long.
type Observer func(Event)
