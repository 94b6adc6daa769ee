package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/allot/internal/domain/model"
)

// WorkerDependencies defines the registry operations used by the workers routes.
type WorkerDependencies interface {
	RegisterWorker(ctx context.Context, rec model.WorkerRecord) error
	Workers(ctx context.Context, limit int) ([]model.WorkerRecord, error)
	UpdateCapability(ctx context.Context, workerID, name string, level int, create bool) (int, error)
}

// WorkersHandler handles worker registration, listing and capability updates.
type WorkersHandler struct {
	deps     WorkerDependencies
	maxLimit int
}

// NewWorkersHandler creates a new workers handler.
func NewWorkersHandler(deps WorkerDependencies, maxLimit int) *WorkersHandler {
	return &WorkersHandler{deps: deps, maxLimit: maxLimit}
}

type registeredResponse struct {
	Status         string `json:"status"`
	EmployeeNumber string `json:"employee_number"`
}

type proficiencyRequest struct {
	Proficiency *int `json:"proficiency"`
}

type capabilityResponse struct {
	EmployeeNumber string `json:"employee_number"`
	Capability     string `json:"capability"`
	Proficiency    int    `json:"proficiency"`
	Profiles       int    `json:"profiles"`
}

// HandleWorkers handles POST /workers and GET /workers?limit=N.
func (h *WorkersHandler) HandleWorkers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.register(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *WorkersHandler) register(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_worker"
	var rec model.WorkerRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.RegisterWorker(r.Context(), rec); err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, registeredResponse{Status: "registered", EmployeeNumber: rec.EmployeeNumber})
}

func (h *WorkersHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_workers"
	limit, code, err := parseLimit(op, r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, err)
		return
	}
	workers, err := h.deps.Workers(r.Context(), limit)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

// HandleWorkerCapability handles /workers/{employee_number}/capabilities/{name}.
// PUT adds or overwrites the capability; PATCH changes the proficiency of a
// capability the worker already holds and answers 404 otherwise.
func (h *WorkersHandler) HandleWorkerCapability(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_worker_capability"
	var create bool
	switch r.Method {
	case http.MethodPut:
		create = true
	case http.MethodPatch:
	default:
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/workers/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "capabilities" || parts[2] == "" {
		http.NotFound(w, r)
		return
	}
	workerID, name := parts[0], parts[2]

	var body proficiencyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if body.Proficiency == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing proficiency")))
		return
	}

	n, err := h.deps.UpdateCapability(r.Context(), workerID, name, *body.Proficiency, create)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, capabilityResponse{
		EmployeeNumber: workerID,
		Capability:     name,
		Proficiency:    *body.Proficiency,
		Profiles:       n,
	})
}
