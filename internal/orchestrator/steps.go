package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Adr1an04/boomai/internal/decompose"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/pkg/models"
)

const verifierPrompt = "You are the Verifier. Check if the following Result correctly solves the Step. " +
	"If yes, output 'CORRECT'. If no, output 'INCORRECT'."

// Verifier verdicts.
const (
	VerdictCorrect   = "CORRECT"
	VerdictIncorrect = "INCORRECT"
)

// StepFailedResult is stored for a step that produced no usable answer.
// Later steps see it through {stepN} and {prev}.
const StepFailedResult = "Failed to execute step."

// decomposeAndExecute splits the goal and runs its steps strictly in
// order. Step N+1 starts only after step N's result is stored. A step
// that produces no answer is recorded as failed and the plan continues;
// cancellation and registry errors end the run.
func (r *run) decomposeAndExecute(ctx context.Context, goal string) outcome {
	r.emit(models.Status(models.StatusDecomposing), 0, "")
	d := r.o.decomposer
	plan := d.Decompose(ctx, goal)
	steps := plan.Steps(d.Registry())
	log.Printf("[orchestrator] run %s: %d steps from %s", r.id, len(steps), plan.Source)

	ectx := decompose.NewExecutionContext()
	records := make([]models.StepRecord, 0, len(steps))
	var last string
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return outcome{steps: records, err: err}
		}

		rec, err := r.executeStep(ctx, step, ectx)
		if err != nil {
			if !stepRecoverable(ctx, err) {
				return outcome{steps: records, err: fmt.Errorf("step %d: %w", step.ID, err)}
			}
			log.Printf("[orchestrator] run %s: step %d failed, continuing: %v", r.id, step.ID, err)
			rec.Result = StepFailedResult
			rec.Failed = true
		} else {
			last = rec.Result
		}
		ectx.Set(step.ID, rec.Result)
		records = append(records, rec)

		if err := r.o.journal.RecordStep(ctx, r.id, rec); err != nil {
			log.Printf("[orchestrator] journal step %d of run %s: %v", step.ID, r.id, err)
		}
		r.emit(models.Status(models.StatusSolved), step.ID, rec.Result)
	}
	if last == "" {
		return outcome{steps: records, err: fmt.Errorf("every step failed: %w", ErrNoAnswer)}
	}
	return outcome{answer: last, steps: records}
}

// stepRecoverable reports whether a step error is local to the step. A
// race whose attempts all failed and an empty answer are local; a
// cancelled run and a missing provider are not.
func stepRecoverable(ctx context.Context, err error) bool {
	switch {
	case ctx.Err() != nil:
		return false
	case errors.Is(err, provider.ErrNoDefaultProvider), errors.Is(err, provider.ErrProviderNotFound):
		return false
	default:
		return errors.Is(err, ErrNoAnswer) || errors.Is(err, errAttemptsFailed)
	}
}

// executeStep renders one step and runs it with its resolved strategy. A
// failed tool call is retried once as a single probe.
func (r *run) executeStep(ctx context.Context, step models.Step, ectx *decompose.ExecutionContext) (models.StepRecord, error) {
	strategy := decompose.ResolveStrategy(step)
	if strategy.Kind == models.StrategyMakerRace {
		strategy.N, strategy.K = r.o.cfg.RaceN, r.o.cfg.RaceK
	}

	rec := models.StepRecord{
		ID:       step.ID,
		Text:     step.Text,
		Kind:     step.Kind,
		Tool:     step.Tool,
		Strategy: strategy.String(),
	}
	rendered := decompose.Render(step.Text, ectx)
	rec.Rendered = rendered

	if strategy.Kind == models.StrategyToolCall {
		args := ""
		if strategy.Tool == models.ToolCalculator {
			args = decompose.CalculatorArgs(step.Text, ectx)
			rec.Rendered = args
		}
		r.emit(models.ToolCall(string(strategy.Tool)), step.ID, step.Text)
		result, err := r.o.invoker.Invoke(ctx, string(strategy.Tool), args)
		if err == nil {
			rec.Result = result
			return rec, nil
		}
		if ctx.Err() != nil {
			return rec, ctx.Err()
		}
		log.Printf("[orchestrator] run %s: step %d tool %s failed, probing instead: %v", r.id, step.ID, strategy.Tool, err)
		strategy = models.ExecStrategy{Kind: models.StrategySingleProbe}
		rec.Strategy = strategy.String()
		rec.Rendered = rendered
	}

	var out outcome
	if strategy.Kind == models.StrategyMakerRace {
		out = r.race(ctx, rendered, strategy.N, strategy.K, step.ID)
	} else {
		out = r.probe(ctx, []models.Message{models.UserMessage(rendered)}, step.ID)
	}
	rec.Votes = out.votes
	if out.err != nil {
		return rec, out.err
	}
	rec.Result = out.answer

	if r.o.cfg.Verify {
		rec.Verdict = r.verify(ctx, rendered, rec.Result)
	}
	return rec, nil
}

// verify asks the model whether result solves step. The verdict is only
// recorded; an INCORRECT verdict does not change the run. Returns "" when
// the verifier gave no usable verdict.
func (r *run) verify(ctx context.Context, step, result string) string {
	prompt := fmt.Sprintf("Step: %s\nResult: %s", step, result)
	req := provider.NewRequest(prompt).WithSystem(verifierPrompt)
	req.MaxOutputTokens = 8

	resp, err := r.o.exec.Execute(ctx, req)
	if err != nil {
		log.Printf("[orchestrator] run %s: verifier failed: %v", r.id, err)
		return ""
	}
	verdict := ParseVerdict(resp.Content)
	log.Printf("[orchestrator] run %s: verifier says %q", r.id, verdict)
	return verdict
}

// ParseVerdict extracts CORRECT or INCORRECT from a verifier reply.
// INCORRECT is checked first since it contains CORRECT.
func ParseVerdict(reply string) string {
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, VerdictIncorrect):
		return VerdictIncorrect
	case strings.Contains(upper, VerdictCorrect):
		return VerdictCorrect
	default:
		return ""
	}
}
