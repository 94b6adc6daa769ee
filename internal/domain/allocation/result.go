package allocation

import (
	"bytes"
	"encoding/json"
)

// Assignment is the outcome for one request. Matched is false for "no match".
type Assignment struct {
	RequestID string `json:"request_id"`
	WorkerID  string `json:"worker_id,omitempty"`
	Matched   bool   `json:"matched"`
}

// Result is the outcome of one allocation pass, in request processing order.
type Result struct {
	assignments []Assignment
	// last assignment index per request id
	index map[string]int
}

func newResult(capacity int) Result {
	return Result{
		assignments: make([]Assignment, 0, capacity),
		index:       make(map[string]int, capacity),
	}
}

func (r *Result) record(a Assignment) {
	r.index[a.RequestID] = len(r.assignments)
	r.assignments = append(r.assignments, a)
}

// Len returns the number of assignments, one per enqueued request.
func (r Result) Len() int {
	return len(r.assignments)
}

// Assignments returns a copy of the assignments in processing order.
func (r Result) Assignments() []Assignment {
	out := make([]Assignment, len(r.assignments))
	copy(out, r.assignments)
	return out
}

// WorkerFor returns the worker assigned to requestID. matched is false for
// "no match"; found is false when the request was not part of the pass.
// When a request id was enqueued more than once the last outcome wins.
func (r Result) WorkerFor(requestID string) (workerID string, matched bool, found bool) {
	i, ok := r.index[requestID]
	if !ok {
		return "", false, false
	}
	a := r.assignments[i]
	return a.WorkerID, a.Matched, true
}

// Matched returns the number of requests that were assigned a worker.
func (r Result) Matched() int {
	n := 0
	for _, a := range r.assignments {
		if a.Matched {
			n++
		}
	}
	return n
}

// Unmatched returns the number of requests with no match.
func (r Result) Unmatched() int {
	return len(r.assignments) - r.Matched()
}

// Map returns the request id to worker id mapping. Unmatched requests map to nil.
func (r Result) Map() map[string]*string {
	out := make(map[string]*string, len(r.index))
	for id, i := range r.index {
		a := r.assignments[i]
		if a.Matched {
			w := a.WorkerID
			out[id] = &w
		} else {
			out[id] = nil
		}
	}
	return out
}

// MarshalJSON renders {"request_id": "worker_id" | null, ...} keeping
// processing order. Repeated request ids appear once, with their last outcome.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, a := range r.assignments {
		if r.index[a.RequestID] != i {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(a.RequestID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !a.Matched {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(a.WorkerID)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
