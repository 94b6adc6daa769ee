// Package allocation matches a queue of requests against an ordered registry
// of worker capability profiles.
//
// A pass is greedy and first-match-wins: requests are processed in enqueue
// order and each one goes to the first registered worker whose profile
// satisfies every required capability. Registration and enqueue order are
// the tie-breakers, so both collections are kept as slices.
package allocation

import (
	"github.com/okian/allot/internal/domain/capability"
)

// Engine holds the worker registry and the request queue. It is not safe for
// concurrent use; callers serving several goroutines must synchronise.
type Engine struct {
	registry []*capability.Profile
	requests []Request

	allowReassignment bool
}

// New creates an engine. By default a worker may be assigned to any number
// of requests in the same pass.
func New(opts ...Option) *Engine {
	e := &Engine{
		allowReassignment: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegisterWorker appends p to the registry. Registration order is the scan order.
// Duplicate worker ids are accepted as-is.
func (e *Engine) RegisterWorker(p *capability.Profile) {
	if p == nil {
		return
	}
	e.registry = append(e.registry, p)
}

// EnqueueRequest appends r to the queue. Enqueue order is the processing order.
func (e *Engine) EnqueueRequest(r Request) {
	e.requests = append(e.requests, r)
}

// Allocate runs one allocation pass over the current registry and queue and
// returns a fresh result with one assignment per enqueued request. It does
// not modify the registry or the queue, so repeated calls agree.
func (e *Engine) Allocate() Result {
	result := newResult(len(e.requests))

	// registry indexes taken in this pass; only consulted in exclusive mode
	var taken map[int]struct{}
	if !e.allowReassignment {
		taken = make(map[int]struct{}, len(e.registry))
	}

	for _, req := range e.requests {
		a := Assignment{RequestID: req.ID}
		for i, p := range e.registry {
			if taken != nil {
				if _, used := taken[i]; used {
					continue
				}
			}
			if !p.Satisfies(req.Required) {
				continue
			}
			a.WorkerID = p.WorkerID
			a.Matched = true
			if taken != nil {
				taken[i] = struct{}{}
			}
			break
		}
		result.record(a)
	}

	return result
}

// AllowReassignment reports whether a worker may serve several requests in one pass.
func (e *Engine) AllowReassignment() bool {
	return e.allowReassignment
}

// Workers returns the registry in scan order. The profiles are shared, not copied.
func (e *Engine) Workers() []*capability.Profile {
	out := make([]*capability.Profile, len(e.registry))
	copy(out, e.registry)
	return out
}

// Requests returns the queue in processing order.
func (e *Engine) Requests() []Request {
	out := make([]Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// WorkerCount returns the number of registered profiles.
func (e *Engine) WorkerCount() int {
	return len(e.registry)
}

// RequestCount returns the number of enqueued requests.
func (e *Engine) RequestCount() int {
	return len(e.requests)
}
