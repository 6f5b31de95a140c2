package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adr1an04/boomai/internal/consensus"
	"github.com/Adr1an04/boomai/internal/decompose"
	"github.com/Adr1an04/boomai/internal/intent"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/internal/tools"
	"github.com/Adr1an04/boomai/pkg/models"
)

var (
	// ErrEmptyRequest is returned when the history has no user message.
	ErrEmptyRequest = errors.New("request has no user message")
	// ErrNoAnswer is returned when a probe or race produced nothing usable.
	ErrNoAnswer = errors.New("no usable answer")

	errAttemptsFailed = errors.New("every race attempt failed")
)

// Executor runs one model request. The orchestrator always talks to the
// registry's default provider through it.
type Executor interface {
	Execute(ctx context.Context, req provider.ModelRequest) (provider.ModelResponse, error)
}

type defaultExecutor struct {
	registry *provider.Registry
}

func (d defaultExecutor) Execute(ctx context.Context, req provider.ModelRequest) (provider.ModelResponse, error) {
	return d.registry.ExecuteDefault(ctx, req)
}

// Config contains tuning for runs.
type Config struct {
	// RaceN and RaceK are the race size and winning margin.
	RaceN int
	RaceK int
	// MaxCandidateChars discards longer race candidates.
	MaxCandidateChars int
	// RedFlagMaxChars is the red-flag filter's length ceiling.
	RedFlagMaxChars int
	// MaxSteps caps decomposition plans.
	MaxSteps int
	// Verify asks the model to check each model-produced step result.
	Verify bool
	// ClassifierFallback asks the model to classify requests no rule matched.
	ClassifierFallback bool
}

// DefaultConfig returns the default run tuning.
func DefaultConfig() Config {
	return Config{
		RaceN:             intent.DefaultRaceN,
		RaceK:             intent.DefaultRaceK,
		MaxCandidateChars: consensus.DefaultMaxCandidateChars,
		RedFlagMaxChars:   consensus.DefaultRedFlagMaxChars,
		MaxSteps:          decompose.DefaultMaxSteps,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.RaceN <= 0 {
		c.RaceN = d.RaceN
	}
	if c.RaceK <= 0 {
		c.RaceK = d.RaceK
	}
	if c.MaxCandidateChars <= 0 {
		c.MaxCandidateChars = d.MaxCandidateChars
	}
	if c.RedFlagMaxChars <= 0 {
		c.RedFlagMaxChars = d.RedFlagMaxChars
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	return c
}

// Orchestrator coordinates a run from request to response.
// It wires together: selector -> decomposer -> tools / probe / race.
type Orchestrator struct {
	exec       Executor
	cfg        Config
	selector   *intent.Selector
	decomposer *decompose.Decomposer
	invoker    *tools.Invoker
	racer      consensus.Racer
	journal    Journal
	runs       *runTracker

	decomposeOpts []decompose.Option
}

// New creates an Orchestrator dispatching model calls to the registry's
// default provider.
func New(registry *provider.Registry, cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.normalized()
	exec := defaultExecutor{registry: registry}

	o := &Orchestrator{
		exec:    exec,
		cfg:     cfg,
		invoker: tools.NewInvoker(),
		racer: consensus.Racer{
			MaxCandidateChars: cfg.MaxCandidateChars,
			Filter:            consensus.NewRedFlagFilter(cfg.RedFlagMaxChars),
		},
		journal: nopJournal{},
		runs:    newRunTracker(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.selector == nil {
		selOpts := []intent.Option{intent.WithRace(cfg.RaceN, cfg.RaceK)}
		if cfg.ClassifierFallback {
			selOpts = append(selOpts, intent.WithClassifier(intent.NewModelClassifier(o.exec)))
		}
		o.selector = intent.NewSelector(selOpts...)
	}
	if o.decomposer == nil {
		dopts := append([]decompose.Option{decompose.WithMaxSteps(cfg.MaxSteps)}, o.decomposeOpts...)
		o.decomposer = decompose.New(o.exec, dopts...)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// run holds the per-request state of one Run call.
type run struct {
	o        *Orchestrator
	id       string
	observer Observer
	rounds   int
}

func (r *run) emit(status models.ExecutionStatus, stepID int, msg string) {
	if r.observer == nil {
		return
	}
	r.observer(Event{
		RunID:     r.id,
		Status:    status,
		StepID:    stepID,
		Message:   msg,
		Timestamp: time.Now(),
	})
}

// outcome is what a policy branch produced.
type outcome struct {
	answer string
	steps  []models.StepRecord
	votes  *models.VoteStats
	err    error
}

// Run executes one request. It always returns a response; when the
// response status is Failed the error is returned too. Failed responses
// carry only sanitized text.
func (o *Orchestrator) Run(ctx context.Context, req models.ChatRequest, opts ...RunOption) (models.ChatResponse, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.runID == "" {
		ro.runID = uuid.NewString()
	} else if err := ValidateRunID(ro.runID); err != nil {
		return rejected(err), err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := o.runs.add(ro.runID, cancel); err != nil {
		log.Printf("[orchestrator] run %s rejected: %v", ro.runID, err)
		return rejected(err), err
	}
	defer o.runs.remove(ro.runID)

	r := &run{o: o, id: ro.runID, observer: ro.observer}
	rc := &models.RunContext{RunID: r.id}

	text := req.LatestUserText()
	if text == "" {
		return r.finish(runCtx, rc, outcome{err: ErrEmptyRequest})
	}

	r.emit(models.Status(models.StatusClassifying), 0, "")
	sel := o.selector.SelectContext(runCtx, text)
	rc.Policy = sel.Policy.String()
	log.Printf("[orchestrator] run %s: policy %s (rule %s, matched %q)", r.id, rc.Policy, sel.Rule, sel.MatchedKeyword)

	if err := o.journal.StartRun(runCtx, r.id, text, rc.Policy, time.Now()); err != nil {
		log.Printf("[orchestrator] journal start run %s: %v", r.id, err)
	}

	var out outcome
	switch sel.Policy.Kind {
	case models.PolicyInternalStub:
		out = r.internalStub(runCtx, req, sel.Policy)
	case models.PolicyMakerRace:
		out = r.race(runCtx, sel.Policy.Prompt, sel.Policy.N, sel.Policy.K, 0)
	case models.PolicyDecompose:
		out = r.decomposeAndExecute(runCtx, text)
	default:
		out = r.probe(runCtx, req.Messages, 0)
	}
	return r.finish(runCtx, rc, out)
}

// rejected is the response for a run that never started. It carries no
// run context so nothing points at another run's id.
func rejected(err error) models.ChatResponse {
	return models.ChatResponse{
		Message: models.AssistantMessage(userMessage(context.Background(), err)),
		Status:  models.Status(models.StatusFailed),
	}
}

func (r *run) finish(ctx context.Context, rc *models.RunContext, out outcome) (models.ChatResponse, error) {
	rc.Steps = out.steps
	rc.Votes = out.votes
	resp := models.ChatResponse{Context: rc}

	if out.err != nil {
		msg := userMessage(ctx, out.err)
		log.Printf("[orchestrator] run %s failed: %v", r.id, out.err)
		resp.Message = models.AssistantMessage(msg)
		resp.Status = models.Status(models.StatusFailed)
		r.emit(resp.Status, 0, msg)
		r.journalFinish(resp)
		return resp, out.err
	}

	resp.Message = models.AssistantMessage(out.answer)
	resp.Status = models.Status(models.StatusDone)
	r.emit(resp.Status, 0, "")
	r.journalFinish(resp)
	return resp, nil
}

func (r *run) journalFinish(resp models.ChatResponse) {
	// The run context may already be cancelled; the journal entry must
	// still be written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.o.journal.FinishRun(ctx, r.id, resp.Status.Kind, resp.Message.Content, time.Now()); err != nil {
		log.Printf("[orchestrator] journal finish run %s: %v", r.id, err)
	}
}

// userMessage maps a run failure onto display-safe text.
func userMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return "The run was cancelled."
	case errors.Is(err, ErrEmptyRequest):
		return "The request has no user message."
	case errors.Is(err, ErrNoAnswer):
		return "No usable answer was produced."
	case errors.Is(err, ErrRunActive):
		return "A run with this id is already in progress."
	case errors.Is(err, ErrInvalidRunID):
		return "The run id is not valid."
	default:
		return provider.SanitizeError(err).Message
	}
}

// internalStub runs a local tool. A failing tool falls back to a single
// probe with the original history.
func (r *run) internalStub(ctx context.Context, req models.ChatRequest, p models.ExecutionPolicy) outcome {
	r.emit(models.ToolCall(p.ToolName), 0, "")
	result, err := r.o.invoker.Invoke(ctx, p.ToolName, p.Args)
	if err == nil {
		return outcome{answer: result}
	}
	if ctx.Err() != nil {
		return outcome{err: ctx.Err()}
	}
	log.Printf("[orchestrator] run %s: tool %s failed, falling back to probe: %v", r.id, p.ToolName, err)
	return r.probe(ctx, req.Messages, 0)
}

// probe sends the messages to the default provider once.
func (r *run) probe(ctx context.Context, msgs []models.Message, stepID int) outcome {
	r.emit(models.Status(models.StatusProcessing), stepID, "")
	req := provider.ModelRequest{Messages: msgs, Priority: provider.PriorityInteractive}
	if stepID > 0 {
		req.Priority = provider.PriorityBackground
	}

	resp, err := r.o.exec.Execute(ctx, req)
	if err != nil {
		return outcome{err: fmt.Errorf("probe: %w", err)}
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return outcome{err: fmt.Errorf("probe: %w: empty reply", ErrNoAnswer)}
	}
	return outcome{answer: answer}
}

// race runs a consensus race. Each race in a run gets the next round
// number for its Voting events.
func (r *run) race(ctx context.Context, prompt string, n, k, stepID int) outcome {
	r.rounds++
	round := r.rounds
	r.emit(models.Voting(round), stepID, "")

	racer := r.o.racer
	racer.OnAdmit = func(admitted int) {
		r.emit(models.Voting(round), stepID, fmt.Sprintf("%d/%d candidates admitted", admitted, n))
	}
	res := racer.Race(ctx, r.o.exec, prompt, n, k, provider.NewCancelToken())
	votes := &models.VoteStats{
		Attempts:  n,
		Admitted:  res.Admitted,
		Failed:    res.Failed,
		Discarded: res.Discarded,
		Decided:   res.Decided,
	}
	log.Printf("[orchestrator] run %s: race round %d admitted=%d failed=%d discarded=%d decided=%v",
		r.id, round, res.Admitted, res.Failed, res.Discarded, res.Decided)

	if res.Answer != "" {
		return outcome{answer: res.Answer, votes: votes}
	}
	switch {
	case ctx.Err() != nil:
		return outcome{votes: votes, err: ctx.Err()}
	case res.Admitted == 0 && res.Discarded == 0 && res.Err != nil:
		// Every attempt failed; surface the provider failure.
		return outcome{votes: votes, err: fmt.Errorf("race: %w: %w", errAttemptsFailed, res.Err)}
	default:
		return outcome{votes: votes, err: fmt.Errorf("race: %w", ErrNoAnswer)}
	}
}
