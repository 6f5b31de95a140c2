package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/fatih/color"

	"github.com/Adr1an04/boomai/internal/config"
	"github.com/Adr1an04/boomai/internal/decompose"
	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/internal/server"
	"github.com/Adr1an04/boomai/internal/signals"
	"github.com/Adr1an04/boomai/internal/state"
)

var (
	_ orchestrator.Journal = (*state.DB)(nil)
	_ server.History       = (*state.DB)(nil)
	_ server.Orchestrator  = (*orchestrator.Orchestrator)(nil)
	_ signals.Canceller    = (*orchestrator.Orchestrator)(nil)
)

// loadConfig loads --config when given, otherwise the layered config.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newProvider builds the backend for one configured provider and reports
// its deployment kind and model id.
func newProvider(ctx context.Context, pc config.ProviderConfig) (provider.Provider, provider.EntryKind, string, error) {
	switch pc.Kind {
	case config.KindAnthropic:
		key, err := pc.RequireAPIKey()
		if err != nil {
			return nil, "", "", err
		}
		p, err := provider.NewAnthropic(ctx, provider.AnthropicConfig{
			ID:            pc.ID,
			Model:         pc.Model,
			APIKey:        key,
			UseAWSBedrock: pc.Bedrock,
			AWSRegion:     pc.AWSRegion,
			AWSProfile:    pc.AWSProfile,
		})
		if err != nil {
			return nil, "", "", err
		}
		return p, provider.EntryRemote, p.Model(), nil

	case config.KindOpenAI:
		key, _ := pc.ResolveAPIKey()
		p, err := provider.NewOpenAI(provider.OpenAIConfig{
			ID:      pc.ID,
			BaseURL: pc.BaseURL,
			APIKey:  key,
			Model:   pc.Model,
		})
		if err != nil {
			return nil, "", "", err
		}
		return p, endpointKind(pc.BaseURL), p.Model(), nil

	case config.KindGemini:
		key, err := pc.RequireAPIKey()
		if err != nil {
			return nil, "", "", err
		}
		p, err := provider.NewGemini(ctx, provider.GeminiConfig{ID: pc.ID, Model: pc.Model, APIKey: key})
		if err != nil {
			return nil, "", "", err
		}
		return p, provider.EntryRemote, p.Model(), nil

	case config.KindFake:
		model := pc.Model
		if model == "" {
			model = "fake"
		}
		return provider.NewFake(pc.Replies...), provider.EntryMock, model, nil

	default:
		return nil, "", "", fmt.Errorf("unknown provider kind %q", pc.Kind)
	}
}

// endpointKind reports whether an OpenAI-compatible endpoint is local.
func endpointKind(baseURL string) provider.EntryKind {
	u, err := url.Parse(baseURL)
	if err != nil {
		return provider.EntryRemote
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return provider.EntryLocal
	default:
		return provider.EntryRemote
	}
}

// buildRegistry registers every configured provider behind the shared
// global limiter.
func buildRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry(provider.NewLimiter(cfg.Limits.GlobalConcurrent))

	for _, pc := range cfg.Providers {
		p, kind, model, err := newProvider(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.ID, err)
		}
		rc := provider.RunnerConfig{RequestTimeout: pc.Timeout, MaxConcurrent: pc.MaxConcurrent}
		reg.Register(pc.ID, p, rc, model, kind)
		log.Printf("[registry] registered %s (%s, model %s)", pc.ID, kind, model)
	}

	if cfg.DefaultProvider != "" {
		if err := reg.SetDefault(cfg.DefaultProvider); err != nil {
			return nil, fmt.Errorf("default provider: %w", err)
		}
	}
	return reg, nil
}

// buildOrchestrator wires the orchestrator from config. journal may be nil.
func buildOrchestrator(cfg *config.Config, reg *provider.Registry, journal *state.DB) (*orchestrator.Orchestrator, error) {
	ocfg := orchestrator.Config{
		RaceN:              cfg.Consensus.N,
		RaceK:              cfg.Consensus.K,
		MaxCandidateChars:  cfg.Consensus.MaxCandidateChars,
		RedFlagMaxChars:    cfg.Consensus.RedFlagMaxChars,
		MaxSteps:           cfg.Orchestrator.MaxSteps,
		Verify:             cfg.Orchestrator.Verify,
		ClassifierFallback: cfg.Orchestrator.ClassifierFallback,
	}

	dopts := []decompose.Option{decompose.WithCacheSize(cfg.Decompose.CacheSize)}
	if path := cfg.Decompose.TemplatesFile; path != "" {
		ts, err := decompose.LoadTemplates(path)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		dopts = append(dopts, decompose.WithTemplates(ts...))
	}

	opts := []orchestrator.Option{orchestrator.WithDecomposeOptions(dopts...)}
	if journal != nil {
		opts = append(opts, orchestrator.WithJournal(journal))
	}
	return orchestrator.New(reg, ocfg, opts...), nil
}

// openJournal opens the run journal. The journal is diagnostic, so a
// failure is reported and the caller runs without one.
func openJournal(ctx context.Context, cfg *config.Config) *state.DB {
	db, err := state.OpenMigrated(cfg.State.Path)
	if err != nil {
		printStatus("⚠", fmt.Sprintf("Run history disabled: %v", err), color.FgYellow)
		return nil
	}
	if ids, err := db.MarkInterrupted(ctx, time.Now()); err != nil {
		log.Printf("[state] mark interrupted: %v", err)
	} else if len(ids) > 0 {
		log.Printf("[state] marked %d interrupted run(s)", len(ids))
	}
	return db
}

// startSignals watches the cancel directory. Returns nil when watching
// is unavailable.
func startSignals(cfg *config.Config, orch *orchestrator.Orchestrator) *signals.Watcher {
	w, err := signals.NewWatcher(cfg.Signals.Dir, orch)
	if err != nil {
		printStatus("⚠", fmt.Sprintf("Cancel signals disabled: %v", err), color.FgYellow)
		return nil
	}
	return w
}

// engine is everything a run-serving command needs.
type engine struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	journal *state.DB
	watcher *signals.Watcher
}

func newEngine(ctx context.Context) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	reg, err := buildRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if reg.IsEmpty() {
		printStatus("⚠", "No providers configured; only tool answers will work", color.FgYellow)
	}

	e := &engine{cfg: cfg, journal: openJournal(ctx, cfg)}
	e.orch, err = buildOrchestrator(cfg, reg, e.journal)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.watcher = startSignals(cfg, e.orch)
	return e, nil
}

// Close releases the watcher and the journal.
func (e *engine) Close() {
	if e.watcher != nil {
		e.watcher.Close()
	}
	if e.journal != nil {
		e.journal.Close()
	}
}
