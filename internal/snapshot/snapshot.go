// Package snapshot loads a static set of workers and requests from a YAML
// (or JSON) document, preserving document order.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSnapshot is returned when a snapshot document cannot be used.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is a registry and a request queue, both in document order.
type Snapshot struct {
	Workers  []model.WorkerRecord  `yaml:"workers"`
	Requests []model.RequestRecord `yaml:"requests"`
}

// Load reads and parses the snapshot at path.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a snapshot document. Unknown fields are rejected.
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every record.
func (s *Snapshot) Validate() error {
	for i, w := range s.Workers {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: workers[%d]: %w", ErrInvalidSnapshot, i, err)
		}
	}
	for i, r := range s.Requests {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: requests[%d]: %w", ErrInvalidSnapshot, i, err)
		}
	}
	return nil
}

// Apply registers the workers and enqueues the requests on e, in order.
func (s *Snapshot) Apply(e *allocation.Engine) {
	for _, w := range s.Workers {
		e.RegisterWorker(w.ToProfile())
	}
	for _, r := range s.Requests {
		e.EnqueueRequest(r.ToRequest())
	}
}

// Marshal renders the snapshot as YAML.
func (s *Snapshot) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
