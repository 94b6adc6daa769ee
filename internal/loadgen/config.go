// Package loadgen drives a running allocation service with synthetic workers
// and tickets and reports how the demand was spread and served.
package loadgen

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid loadgen config")

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Workers     int           // Number of worker profiles to register
	Tickets     int           // Number of tickets to submit
	Concurrency int           // Concurrent ticket submitters
	Timeout     time.Duration // HTTP request timeout
	Seed        uint64        // Generator seed; the same seed yields the same workers and tickets
	SnapshotOut string        // Optional path to write the generated data as a snapshot
	Verbose     bool          // Log every submission
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Workers < 0 || c.Tickets < 0:
		return fmt.Errorf("%w: workers and tickets must not be negative", ErrInvalidConfig)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	WorkersRegistered int
	TicketsSubmitted  int
	TicketsAccepted   int
	TicketsDuplicate  int
	TicketsFailed     int
	Matched           int
	Unmatched         int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
