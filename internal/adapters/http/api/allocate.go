package api

import (
	"context"
	"net/http"

	"github.com/okian/allot/internal/domain/allocation"
)

// AllocateDependencies runs allocation passes.
type AllocateDependencies interface {
	Allocate(ctx context.Context) (allocation.Result, error)
}

// AllocateHandler handles allocation requests.
type AllocateHandler struct {
	deps AllocateDependencies
}

// NewAllocateHandler creates a new allocate handler.
func NewAllocateHandler(deps AllocateDependencies) *AllocateHandler {
	return &AllocateHandler{deps: deps}
}

type assignmentResponse struct {
	RequestID string  `json:"request_id"`
	WorkerID  *string `json:"worker_id"`
}

type allocateResponse struct {
	Allocation  allocation.Result    `json:"allocation"`
	Assignments []assignmentResponse `json:"assignments"`
	Matched     int                  `json:"matched"`
	Unmatched   int                  `json:"unmatched"`
}

// HandleAllocate handles POST /allocate (GET is accepted too). The pass is
// read-only, so repeating the call returns the same answer until the
// registry or the queue changes.
func (h *AllocateHandler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	const op = "api.allocate"
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	result, err := h.deps.Allocate(r.Context())
	if err != nil {
		writeServiceError(w, Wrap(op, err))
		return
	}

	assignments := result.Assignments()
	resp := allocateResponse{
		Allocation:  result,
		Assignments: make([]assignmentResponse, len(assignments)),
		Matched:     result.Matched(),
		Unmatched:   result.Unmatched(),
	}
	for i, a := range assignments {
		resp.Assignments[i] = assignmentResponse{RequestID: a.RequestID}
		if a.Matched {
			id := a.WorkerID
			resp.Assignments[i].WorkerID = &id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
