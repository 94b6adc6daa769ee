// Package capability models a worker's skill set and proficiency levels.
package capability

import (
	"errors"
	"fmt"
)

// ErrCapabilityNotFound is returned when updating a capability the profile does not hold.
var ErrCapabilityNotFound = errors.New("capability not found")

// Level is a proficiency level. Higher is more qualified.
type Level int

// Profile holds the capabilities of one worker.
type Profile struct {
	WorkerID     string
	capabilities map[string]Level
}

// New creates a profile for workerID. The capabilities map is copied.
func New(workerID string, capabilities map[string]Level) *Profile {
	p := &Profile{
		WorkerID:     workerID,
		capabilities: make(map[string]Level, len(capabilities)),
	}
	for name, level := range capabilities {
		p.capabilities[name] = level
	}
	return p
}

// AddCapability inserts or overwrites the level for capability.
func (p *Profile) AddCapability(capability string, level Level) {
	if p.capabilities == nil {
		p.capabilities = make(map[string]Level)
	}
	p.capabilities[capability] = level
}

// UpdateProficiency overwrites the level of a capability the profile already holds.
func (p *Profile) UpdateProficiency(capability string, level Level) error {
	if _, ok := p.capabilities[capability]; !ok {
		return fmt.Errorf("update %q for worker %q: %w", capability, p.WorkerID, ErrCapabilityNotFound)
	}
	p.capabilities[capability] = level
	return nil
}

// Proficiency returns the level held for capability. ok is false when the
// worker does not hold it; a missing capability is never level zero.
func (p *Profile) Proficiency(capability string) (level Level, ok bool) {
	level, ok = p.capabilities[capability]
	return level, ok
}

// Capabilities returns a copy of the capability map.
func (p *Profile) Capabilities() map[string]Level {
	out := make(map[string]Level, len(p.capabilities))
	for name, level := range p.capabilities {
		out[name] = level
	}
	return out
}

// Len returns the number of capabilities held.
func (p *Profile) Len() int {
	return len(p.capabilities)
}

// Satisfies reports whether every required capability is held at or above
// its minimum. An empty requirement is satisfied by any profile.
func (p *Profile) Satisfies(required map[string]Level) bool {
	for name, minLevel := range required {
		level, ok := p.Proficiency(name)
		if !ok || level < minLevel {
			return false
		}
	}
	return true
}
