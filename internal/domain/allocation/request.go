package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/allot/internal/domain/capability"
)

// ErrInvalidSLA is returned when a triage SLA value is not recognised.
var ErrInvalidSLA = errors.New("invalid triage sla")

// TriageSLA is the response window a ticket was filed with. It is carried
// with the request for reporting and does not influence matching.
type TriageSLA string

// Known triage SLA values. The zero value means unspecified.
const (
	SLASixHours  TriageSLA = "6hrs"
	SLAOneDay    TriageSLA = "1day"
	SLAThreeDays TriageSLA = "3day"
)

// SLAs lists the known triage SLA values, shortest first.
var SLAs = []TriageSLA{SLASixHours, SLAOneDay, SLAThreeDays}

// ParseTriageSLA validates s. An empty string yields the unspecified SLA.
func ParseTriageSLA(s string) (TriageSLA, error) {
	v := TriageSLA(strings.TrimSpace(s))
	if v == "" {
		return "", nil
	}
	for _, known := range SLAs {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be one of 6hrs, 1day, 3day)", ErrInvalidSLA, s)
}

// Request is a unit of work demanding a minimum level per capability.
type Request struct {
	ID       string
	Required map[string]capability.Level
	SLA      TriageSLA
}

// NewRequest builds a request, copying required.
func NewRequest(id string, required map[string]capability.Level) Request {
	r := Request{ID: id, Required: make(map[string]capability.Level, len(required))}
	for name, level := range required {
		r.Required[name] = level
	}
	return r
}
