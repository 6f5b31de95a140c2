package orchestrator

import (
	"context"
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

// Journal records run history for diagnostics. It is write-only from the
// orchestrator's point of view: nothing is ever read back to drive a run.
// Journal errors are logged and never fail a run.
type Journal interface {
	StartRun(ctx context.Context, runID, input, policy string, startedAt time.Time) error
	RecordStep(ctx context.Context, runID string, step models.StepRecord) error
	FinishRun(ctx context.Context, runID string, status models.StatusKind, message string, finishedAt time.Time) error
}

type nopJournal struct{}

func (nopJournal) StartRun(context.Context, string, string, string, time.Time) error { return nil }

func (nopJournal) RecordStep(context.Context, string, models.StepRecord) error { return nil }

func (nopJournal) FinishRun(context.Context, string, models.StatusKind, string, time.Time) error {
	return nil
}
