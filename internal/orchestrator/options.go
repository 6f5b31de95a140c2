package orchestrator

import (
	"github.com/Adr1an04/boomai/internal/decompose"
	"github.com/Adr1an04/boomai/internal/intent"
	"github.com/Adr1an04/boomai/internal/tools"
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*Orchestrator)

// WithJournal records every run in j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) {
		if j != nil {
			o.journal = j
		}
	}
}

// WithInvoker sets the tool invoker.
func WithInvoker(inv *tools.Invoker) Option {
	return func(o *Orchestrator) { o.invoker = inv }
}

// WithSelector replaces the policy selector. The configured classifier
// fallback is not applied to a replaced selector.
func WithSelector(s *intent.Selector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithDecomposer replaces the decomposer, e.g. to add custom templates.
func WithDecomposer(d *decompose.Decomposer) Option {
	return func(o *Orchestrator) { o.decomposer = d }
}

// WithDecomposeOptions adds options to the default decomposer, which
// already carries the configured step cap. Ignored with WithDecomposer.
func WithDecomposeOptions(opts ...decompose.Option) Option {
	return func(o *Orchestrator) {
		o.decomposeOpts = append(o.decomposeOpts, opts...)
	}
}

// WithExecutor routes model calls to exec instead of the registry default.
func WithExecutor(exec Executor) Option {
	return func(o *Orchestrator) { o.exec = exec }
}

// RunOption configures a single Run.
type RunOption func(*runOptions)

type runOptions struct {
	runID    string
	observer Observer
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(o *runOptions) { o.runID = id }
}

// WithObserver receives the run's status events.
func WithObserver(obs Observer) RunOption {
	return func(o *runOptions) { o.observer = obs }
}
