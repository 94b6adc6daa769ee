// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/domain/capability"
	"github.com/okian/allot/internal/domain/dedupe"
	"github.com/okian/allot/internal/domain/model"
	"github.com/okian/allot/internal/snapshot"
	"github.com/okian/allot/pkg/logger"
	"github.com/okian/allot/pkg/metrics"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrWorkerNotFound = errors.New("worker not found")
)

const (
	defaultDedupeSize  = 100_000
	defaultMaxRequired = 32
)

// Ack is the outcome of a request submission.
type Ack struct {
	ID        string
	Duplicate bool
}

// Service owns one allocation engine and serialises access to it: mutations
// take the write lock, allocation passes and reads take the read lock.
type Service struct {
	mu sync.RWMutex

	engine  *allocation.Engine
	deduper dedupe.Deduper

	// Configuration
	allowReassignment bool
	dedupeSize        int
	maxRequired       int
	snapshot          *snapshot.Snapshot

	// State
	started bool
	passes  atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowReassignment sets the engine's reassignment policy.
func WithAllowReassignment(allow bool) Option {
	return func(s *Service) {
		s.allowReassignment = allow
	}
}

// WithDedupeSize sets the size of the request-id cache. Zero or less is unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithMaxRequiredCapabilities caps how many capabilities one request may demand.
func WithMaxRequiredCapabilities(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRequired = n
		}
	}
}

// WithSnapshot seeds the engine with snap when the service starts.
func WithSnapshot(snap *snapshot.Snapshot) Option {
	return func(s *Service) {
		s.snapshot = snap
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		allowReassignment: true,
		dedupeSize:        defaultDedupeSize,
		maxRequired:       defaultMaxRequired,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the engine and applies the seed snapshot, if any.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.engine == nil {
		if err := s.seed(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.updateGauges()
	s.logger.Info(ctx, "allocation service started",
		logger.Bool("allowReassignment", s.allowReassignment),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxRequiredCapabilities", s.maxRequired),
	)

	return nil
}

// seed builds the engine and applies the snapshot. Caller holds s.mu.
func (s *Service) seed(ctx context.Context) error {
	engine := allocation.New(allocation.WithAllowReassignment(s.allowReassignment))
	deduper := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	if s.snapshot != nil {
		if err := s.snapshot.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
		for _, r := range s.snapshot.Requests {
			if deduper.SeenAndRecord(ctx, r.ID) {
				return fmt.Errorf("%w: duplicate request id %q in snapshot", ErrInvalidRecord, r.ID)
			}
		}
		s.snapshot.Apply(engine)
		s.logger.Info(ctx, "seeded from snapshot",
			logger.Int("workers", len(s.snapshot.Workers)),
			logger.Int("requests", len(s.snapshot.Requests)),
		)
	}

	s.engine = engine
	s.deduper = deduper
	return nil
}

// Stop marks the service stopped. Registered state is kept for a later Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "allocation service stopped")
}

// RegisterWorker validates rec and appends it to the registry.
func (s *Service) RegisterWorker(ctx context.Context, rec model.WorkerRecord) error {
	if err := rec.Validate(); err != nil {
		metrics.RecordValidationFailure("worker")
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	s.engine.RegisterWorker(rec.ToProfile())
	s.updateGauges()
	s.logger.Debug(ctx, "worker registered",
		logger.String("worker", rec.EmployeeNumber),
		logger.Int("capabilities", len(rec.Capabilities)),
		logger.Int("position", s.engine.WorkerCount()),
	)
	return nil
}

// EnqueueRequest validates rec and appends it to the queue. A request without
// an id gets a generated one; a request id seen before is acknowledged as a
// duplicate and not enqueued again.
func (s *Service) EnqueueRequest(ctx context.Context, rec model.RequestRecord) (Ack, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.validateRequest(rec); err != nil {
		metrics.RecordValidationFailure("request")
		return Ack{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return Ack{}, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, rec.ID) {
		metrics.RecordRequestDuplicate()
		s.logger.Debug(ctx, "duplicate request skipped", logger.String("request", rec.ID))
		return Ack{ID: rec.ID, Duplicate: true}, nil
	}
	if err := ctx.Err(); err != nil {
		s.deduper.Unrecord(ctx, rec.ID)
		return Ack{}, err
	}

	s.engine.EnqueueRequest(rec.ToRequest())
	for name := range rec.RequiredCapabilities {
		metrics.RecordCapabilityRequested(name)
	}
	s.updateGauges()
	s.logger.Debug(ctx, "request enqueued",
		logger.String("request", rec.ID),
		logger.Int("required", len(rec.RequiredCapabilities)),
		logger.String("sla", rec.TriageSLA),
	)
	return Ack{ID: rec.ID}, nil
}

func (s *Service) validateRequest(rec model.RequestRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if len(rec.RequiredCapabilities) > s.maxRequired {
		return fmt.Errorf("%w: request %q demands %d capabilities, limit is %d",
			ErrInvalidRecord, rec.ID, len(rec.RequiredCapabilities), s.maxRequired)
	}
	return nil
}

// UpdateCapability sets capability on every registered profile with workerID.
// With create false the capability must already be held (update semantics);
// with create true it is added when missing. Returns the number of profiles changed.
func (s *Service) UpdateCapability(ctx context.Context, workerID, name string, level int, create bool) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: %w: empty capability name", ErrInvalidRecord, model.ErrInvalidCapability)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, ErrNotStarted
	}

	var matches []*capability.Profile
	for _, p := range s.engine.Workers() {
		if p.WorkerID == workerID {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrWorkerNotFound, workerID)
	}

	// check every duplicate before touching any of them
	if !create {
		for _, p := range matches {
			if _, ok := p.Proficiency(name); !ok {
				return 0, p.UpdateProficiency(name, capability.Level(level))
			}
		}
	}
	for _, p := range matches {
		if create {
			p.AddCapability(name, capability.Level(level))
			continue
		}
		if err := p.UpdateProficiency(name, capability.Level(level)); err != nil {
			return 0, err
		}
	}

	s.logger.Debug(ctx, "capability updated",
		logger.String("worker", workerID),
		logger.String("capability", name),
		logger.Int("level", level),
		logger.Int("profiles", len(matches)),
	)
	return len(matches), nil
}

// Allocate runs one allocation pass over the current registry and queue.
func (s *Service) Allocate(ctx context.Context) (allocation.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return allocation.Result{}, ErrNotStarted
	}

	start := time.Now()
	result := s.engine.Allocate()
	elapsed := time.Since(start)

	matched := result.Matched()
	unmatched := result.Len() - matched
	metrics.RecordAllocationPass(float64(elapsed.Microseconds())/1000, matched, unmatched)
	pass := s.passes.Add(1)

	s.logger.Info(ctx, "allocation pass complete",
		logger.Int("pass", int(pass)),
		logger.Int("workers", s.engine.WorkerCount()),
		logger.Int("requests", result.Len()),
		logger.Int("matched", matched),
		logger.Int("unmatched", unmatched),
		logger.String("took", elapsed.String()),
	)
	for _, a := range result.Assignments() {
		if !a.Matched {
			s.logger.Debug(ctx, "no qualifying worker", logger.String("request", a.RequestID))
		}
	}

	return result, nil
}

// Workers returns up to limit registered workers in scan order. limit <= 0 means all.
func (s *Service) Workers(_ context.Context, limit int) ([]model.WorkerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}

	profiles := s.engine.Workers()
	if limit > 0 && limit < len(profiles) {
		profiles = profiles[:limit]
	}
	out := make([]model.WorkerRecord, len(profiles))
	for i, p := range profiles {
		out[i] = model.WorkerRecordFrom(p)
	}
	return out, nil
}

// Requests returns up to limit queued requests in processing order. limit <= 0 means all.
func (s *Service) Requests(_ context.Context, limit int) ([]model.RequestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}

	requests := s.engine.Requests()
	if limit > 0 && limit < len(requests) {
		requests = requests[:limit]
	}
	out := make([]model.RequestRecord, len(requests))
	for i, r := range requests {
		out[i] = model.RequestRecordFrom(r)
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"allowReassignment": s.allowReassignment,
		"passes":            int(s.passes.Load()),
	}

	if s.engine != nil {
		stats["workers"] = s.engine.WorkerCount()
		stats["requests"] = s.engine.RequestCount()
		stats["knownRequestIDs"] = int(s.deduper.Size())
	}

	return stats
}

// updateGauges refreshes registry and queue gauges. Caller holds s.mu.
func (s *Service) updateGauges() {
	metrics.UpdateWorkersRegistered(s.engine.WorkerCount())
	metrics.UpdateRequestsQueued(s.engine.RequestCount())
}
