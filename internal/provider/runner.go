package provider

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultRequestTimeout bounds a single backend call.
	DefaultRequestTimeout = 60 * time.Second
	// DefaultMaxConcurrent is the per-endpoint permit count.
	DefaultMaxConcurrent = 8
)

// RunnerConfig is fixed when a provider is registered.
type RunnerConfig struct {
	RequestTimeout time.Duration
	MaxConcurrent  int
	// Cancel, when set, fails every call fast once triggered.
	Cancel *CancelToken
}

// DefaultRunnerConfig returns the default timeout and concurrency.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		RequestTimeout: DefaultRequestTimeout,
		MaxConcurrent:  DefaultMaxConcurrent,
	}
}

func (c RunnerConfig) normalized() RunnerConfig {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	return c
}

// Limiter is a concurrency limit shared by several runners.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter creates a limiter admitting n concurrent calls. Returns nil
// when n <= 0, which disables global limiting.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the number of permits.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return l.size
}

// Runner wraps one Provider with a timeout, a local limiter, an optional
// global limiter and cancellation.
type Runner struct {
	id       string
	modelID  string
	provider Provider
	cfg      RunnerConfig
	local    *semaphore.Weighted
	global   *Limiter
	inFlight atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithGlobalLimiter makes the runner also acquire from l.
func WithGlobalLimiter(l *Limiter) RunnerOption {
	return func(r *Runner) {
		r.global = l
	}
}

// WithModelID records the model id used in errors.
func WithModelID(modelID string) RunnerOption {
	return func(r *Runner) {
		r.modelID = modelID
	}
}

// NewRunner creates a Runner for provider p registered under id.
func NewRunner(id string, p Provider, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	cfg = cfg.normalized()
	r := &Runner{
		id:       id,
		provider: p,
		cfg:      cfg,
		local:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the provider id.
func (r *Runner) ID() string { return r.id }

// ModelID returns the model id.
func (r *Runner) ModelID() string { return r.modelID }

// Config returns the runner configuration.
func (r *Runner) Config() RunnerConfig { return r.cfg }

// InFlight returns the number of calls currently holding permits.
func (r *Runner) InFlight() int { return int(r.inFlight.Load()) }

// Close marks the runner's limiter as closed. Later calls fail with an
// internal error.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Runner) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

type chatResult struct {
	resp ModelResponse
	err  error
}

// Execute runs one request through the provider.
//
// Permits are taken local first, then global, and released in reverse on
// every path. If the call outlives the request timeout it is abandoned and
// KindTimeout is returned; its eventual result is dropped.
func (r *Runner) Execute(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	if r.isClosed() {
		return ModelResponse{}, r.limiterError("local limiter closed")
	}
	if r.cancelled(ctx) {
		return ModelResponse{}, r.newError(KindCancelled)
	}

	if err := r.local.Acquire(ctx, 1); err != nil {
		return ModelResponse{}, r.acquireError(ctx, err)
	}
	defer r.local.Release(1)

	if r.global != nil {
		if err := r.global.sem.Acquire(ctx, 1); err != nil {
			return ModelResponse{}, r.acquireError(ctx, err)
		}
		defer r.global.sem.Release(1)
	}

	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	if r.cancelled(ctx) {
		return ModelResponse{}, r.newError(KindCancelled)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	done := make(chan chatResult, 1)
	start := time.Now()
	go func() {
		resp, err := r.provider.Chat(callCtx, req)
		done <- chatResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			pe := classify(res.err, r.id, r.modelID)
			if pe.InternalDetail != "" {
				log.Printf("[runner] %s: %s (%s)", r.id, pe.Kind, pe.InternalDetail)
			}
			return ModelResponse{}, pe
		}
		resp := res.resp
		if resp.Latency == 0 {
			resp.Latency = time.Since(start)
		}
		if resp.ModelID == "" {
			resp.ModelID = r.modelID
		}
		return resp, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return ModelResponse{}, r.newError(KindCancelled).WithCause(ctx.Err())
		}
		log.Printf("[runner] %s: abandoned call after %s", r.id, r.cfg.RequestTimeout)
		return ModelResponse{}, r.newError(KindTimeout).
			WithDetail("no response within %s", r.cfg.RequestTimeout).
			WithCause(context.DeadlineExceeded)
	case <-r.cfg.Cancel.Done():
		return ModelResponse{}, r.newError(KindCancelled)
	}
}

func (r *Runner) cancelled(ctx context.Context) bool {
	return ctx.Err() != nil || r.cfg.Cancel.Cancelled()
}

func (r *Runner) newError(kind Kind) *ProviderError {
	return NewError(kind, r.id).WithModel(r.modelID)
}

func (r *Runner) limiterError(detail string) *ProviderError {
	return r.newError(KindInternal).
		WithCode("concurrency_limiter").
		WithMessage("Failed to acquire concurrency permit").
		WithDetail("%s", detail)
}

// acquireError maps a failed permit acquisition. Waiting is only
// interrupted by the caller's context; anything else means the limiter
// itself is broken.
func (r *Runner) acquireError(ctx context.Context, err error) *ProviderError {
	if ctx.Err() != nil {
		return r.newError(KindCancelled).WithCause(err)
	}
	return r.limiterError(err.Error()).WithCause(err)
}
