// Package model contains the boundary records exchanged with producers and
// consumers of allocation data.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/domain/capability"
)

// Sentinel errors for record validation.
var (
	ErrMissingID         = errors.New("missing id")
	ErrInvalidCapability = errors.New("invalid capability")
)

// WorkerRecord is the input record for a worker.
type WorkerRecord struct {
	EmployeeNumber string         `json:"employee_number" yaml:"employee_number"`
	Capabilities   map[string]int `json:"capabilities" yaml:"capabilities"`
}

// Validate checks the record is usable.
func (w WorkerRecord) Validate() error {
	if strings.TrimSpace(w.EmployeeNumber) == "" {
		return fmt.Errorf("worker: %w: employee_number", ErrMissingID)
	}
	return validateCapabilities(w.Capabilities)
}

// ToProfile converts the record into a capability profile.
func (w WorkerRecord) ToProfile() *capability.Profile {
	return capability.New(w.EmployeeNumber, toLevels(w.Capabilities))
}

// WorkerRecordFrom converts a profile back into its boundary record.
func WorkerRecordFrom(p *capability.Profile) WorkerRecord {
	caps := p.Capabilities()
	out := WorkerRecord{EmployeeNumber: p.WorkerID, Capabilities: make(map[string]int, len(caps))}
	for name, level := range caps {
		out.Capabilities[name] = int(level)
	}
	return out
}

// RequestRecord is the input record for a request. TriageSLA and
// Description are optional ticket metadata.
type RequestRecord struct {
	ID                   string         `json:"id" yaml:"id"`
	RequiredCapabilities map[string]int `json:"required_capabilities" yaml:"required_capabilities"`
	TriageSLA            string         `json:"triage_sla,omitempty" yaml:"triage_sla,omitempty"`
	Description          string         `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the record is usable.
func (r RequestRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("request: %w: id", ErrMissingID)
	}
	if _, err := allocation.ParseTriageSLA(r.TriageSLA); err != nil {
		return fmt.Errorf("request %q: %w", r.ID, err)
	}
	return validateCapabilities(r.RequiredCapabilities)
}

// ToRequest converts the record into an allocation request. The record must
// be valid; an unknown SLA is dropped.
func (r RequestRecord) ToRequest() allocation.Request {
	req := allocation.NewRequest(r.ID, toLevels(r.RequiredCapabilities))
	req.SLA, _ = allocation.ParseTriageSLA(r.TriageSLA)
	return req
}

// RequestRecordFrom converts an allocation request back into its boundary record.
func RequestRecordFrom(r allocation.Request) RequestRecord {
	out := RequestRecord{
		ID:                   r.ID,
		RequiredCapabilities: make(map[string]int, len(r.Required)),
		TriageSLA:            string(r.SLA),
	}
	for name, level := range r.Required {
		out.RequiredCapabilities[name] = int(level)
	}
	return out
}

func validateCapabilities(caps map[string]int) error {
	for name := range caps {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty capability name", ErrInvalidCapability)
		}
	}
	return nil
}

func toLevels(caps map[string]int) map[string]capability.Level {
	out := make(map[string]capability.Level, len(caps))
	for name, level := range caps {
		out[name] = capability.Level(level)
	}
	return out
}
