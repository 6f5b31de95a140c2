// Package server exposes the orchestrator over HTTP. Plain requests go to
// POST /chat; GET /chat/stream upgrades to a websocket that streams run
// events before the final response. The handler speaks cleartext HTTP/2.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/internal/state"
	"github.com/Adr1an04/boomai/pkg/models"
)

// Orchestrator is the part of the orchestrator the server needs.
type Orchestrator interface {
	Run(ctx context.Context, req models.ChatRequest, opts ...orchestrator.RunOption) (models.ChatResponse, error)
	Cancel(runID string) bool
	Active() []string
}

// History serves the run journal. *state.DB implements it.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]state.Run, error)
	GetRun(ctx context.Context, runID string) (*state.Run, error)
	Steps(ctx context.Context, runID string) ([]models.StepRecord, error)
}

// Server is the boomai HTTP front door.
type Server struct {
	orch    Orchestrator
	history History
	version string

	mux        *http.ServeMux
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the /runs endpoints.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithVersion sets the string reported by /version.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a server listening on addr.
func New(addr string, orch Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:    orch,
		version: "dev",
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /chat/stream", s.handleStream)
	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("POST /runs/{id}/cancel", s.handleCancel)
}

// Handler returns the routed handler without the h2c wrapper.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[server] listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
