// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/allot/internal/app"
	"github.com/okian/allot/internal/domain/capability"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	WorkerDependencies
	RequestDependencies
	AllocateDependencies
}

// DefaultMaxLimit bounds list endpoints when the server is built without one.
const DefaultMaxLimit = 1000

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	workersHandler  *WorkersHandler
	requestsHandler *RequestsHandler
	allocateHandler *AllocateHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter of list endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		workersHandler:  NewWorkersHandler(deps, maxLimit),
		requestsHandler: NewRequestsHandler(deps, maxLimit),
		allocateHandler: NewAllocateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/workers", MetricsMiddleware(s.workersHandler.HandleWorkers, "workers"))
	mux.HandleFunc("/workers/", MetricsMiddleware(s.workersHandler.HandleWorkerCapability, "worker_capability"))
	mux.HandleFunc("/requests", MetricsMiddleware(s.requestsHandler.HandleRequests, "requests"))
	mux.HandleFunc("/allocate", MetricsMiddleware(s.allocateHandler.HandleAllocate, "allocate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service errors into status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRecord), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrWorkerNotFound), errors.Is(err, capability.ErrCapabilityNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseLimit reads ?limit=N. A missing limit means maxLimit.
func parseLimit(op string, r *http.Request, maxLimit int) (int, string, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return maxLimit, "", nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "bad_request", WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer"))
	}
	if n > maxLimit {
		return 0, "limit_exceeded", WrapKind(op, ErrBadRequest, errors.New("limit exceeds "+strconv.Itoa(maxLimit)))
	}
	return n, "", nil
}
