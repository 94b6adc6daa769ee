package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/allot/internal/app"
	"github.com/okian/allot/internal/domain/model"
)

// RequestDependencies defines the queue operations used by the requests routes.
type RequestDependencies interface {
	EnqueueRequest(ctx context.Context, rec model.RequestRecord) (service.Ack, error)
	Requests(ctx context.Context, limit int) ([]model.RequestRecord, error)
}

// RequestsHandler handles request submission and listing.
type RequestsHandler struct {
	deps     RequestDependencies
	maxLimit int
}

// NewRequestsHandler creates a new requests handler.
func NewRequestsHandler(deps RequestDependencies, maxLimit int) *RequestsHandler {
	return &RequestsHandler{deps: deps, maxLimit: maxLimit}
}

type ackResponse struct {
	Status    string `json:"status"`
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

// HandleRequests handles POST /requests and GET /requests?limit=N.
func (h *RequestsHandler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.enqueue(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *RequestsHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_request"
	var rec model.RequestRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ack, err := h.deps.EnqueueRequest(r.Context(), rec)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: ack.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: ack.ID})
}

func (h *RequestsHandler) list(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_requests"
	limit, code, err := parseLimit(op, r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, err)
		return
	}
	requests, err := h.deps.Requests(r.Context(), limit)
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, requests)
}
