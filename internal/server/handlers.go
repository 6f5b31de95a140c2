package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/internal/state"
	"github.com/Adr1an04/boomai/pkg/models"
)

const maxBodyBytes = 1 << 20

// statusClientClosedRequest is reported when the run was cancelled.
const statusClientClosedRequest = 499

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON chat request")
		return
	}

	var opts []orchestrator.RunOption
	if id := r.Header.Get("X-Run-ID"); id != "" {
		opts = append(opts, orchestrator.WithRunID(id))
	}

	resp, err := s.orch.Run(r.Context(), req, opts...)
	if resp.Context != nil {
		w.Header().Set("X-Run-ID", resp.Context.RunID)
	}
	code := http.StatusOK
	if err != nil {
		code = statusCode(r.Context(), err)
		if san := provider.SanitizeError(err); san.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(san.RetryAfterSeconds))
		}
	}
	writeJSON(w, code, resp)
}

// statusCode maps a failed run onto an HTTP status. Only the category of a
// provider failure is consulted.
func statusCode(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyRequest), errors.Is(err, orchestrator.ErrInvalidRunID):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrRunActive):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrNoAnswer):
		return http.StatusBadGateway
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}

	pe, ok := provider.AsProviderError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if pe.Kind == provider.KindCancelled {
		return statusClientClosedRequest
	}
	switch provider.SanitizeError(err).Category {
	case provider.CategoryTimeout:
		return http.StatusGatewayTimeout
	case provider.CategoryService:
		return http.StatusServiceUnavailable
	case provider.CategoryAuthentication, provider.CategoryAuthorization,
		provider.CategoryNetwork, provider.CategoryRequest:
		return http.StatusBadGateway
	case provider.CategoryConfiguration, provider.CategoryUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

type runDetail struct {
	state.Run
	Steps []models.StepRecord `json:"steps"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		log.Printf("[server] list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read run history")
		return
	}
	if runs == nil {
		runs = []state.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "active": s.orch.Active()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	id := r.PathValue("id")
	run, err := s.history.GetRun(r.Context(), id)
	if errors.Is(err, state.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		log.Printf("[server] get run %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not read run history")
		return
	}

	steps, err := s.history.Steps(r.Context(), id)
	if err != nil {
		log.Printf("[server] steps for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not read run history")
		return
	}
	if steps == nil {
		steps = []models.StepRecord{}
	}
	writeJSON(w, http.StatusOK, runDetail{Run: *run, Steps: steps})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.orch.Cancel(id) {
		writeError(w, http.StatusNotFound, "no active run with that id")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": "cancelling"})
}
