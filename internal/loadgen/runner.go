package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/allot/internal/domain/model"
	"github.com/okian/allot/internal/snapshot"
	"github.com/okian/allot/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete load run against cfg.BaseURL and writes the report to out.
//
// Workers are registered one at a time because registration order is the
// allocation scan order. Tickets are submitted by cfg.Concurrency goroutines,
// so their queue order is not the generation order.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Int("tickets", cfg.Tickets),
		logger.Int("concurrency", cfg.Concurrency),
		logger.String("timeout", cfg.Timeout.String()),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Seed)
	workers := gen.Workers(cfg.Workers)
	tickets := gen.Tickets(cfg.Tickets)

	for _, w := range workers {
		if err := client.RegisterWorker(ctx, w); err != nil {
			return stats, fmt.Errorf("worker registration failed: %w", err)
		}
		stats.WorkersRegistered++
	}
	log.Info(ctx, "workers registered", logger.Int("count", stats.WorkersRegistered))

	submitTickets(ctx, cfg, client, tickets, stats, log)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	alloc, err := client.Allocate(ctx)
	if err != nil {
		return stats, fmt.Errorf("allocation failed: %w", err)
	}
	stats.Matched = alloc.Matched
	stats.Unmatched = alloc.Unmatched

	if _, err := NewReport(tickets, alloc).WriteTo(out); err != nil {
		return stats, err
	}

	if cfg.SnapshotOut != "" {
		if err := saveSnapshot(cfg.SnapshotOut, workers, tickets); err != nil {
			log.Warn(ctx, "failed to save snapshot", logger.Error(err))
		} else {
			log.Info(ctx, "snapshot saved", logger.String("path", cfg.SnapshotOut))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if stats.TicketsFailed > 0 {
		return stats, fmt.Errorf("%d of %d ticket submissions failed", stats.TicketsFailed, stats.TicketsSubmitted)
	}
	return stats, nil
}

// submitTickets fans tickets out to a pool of submitters.
func submitTickets(ctx context.Context, cfg *Config, client *Client, tickets []model.RequestRecord, stats *Stats, log logger.Logger) {
	var submitted, accepted, duplicate, failed atomic.Int64

	ticketChan := make(chan model.RequestRecord, cfg.Concurrency*2)
	var wg sync.WaitGroup

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range ticketChan {
				outcome, err := client.SubmitTicket(ctx, t)
				submitted.Add(1)
				switch outcome {
				case OutcomeAccepted:
					accepted.Add(1)
				case OutcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
					if !errors.Is(err, context.Canceled) {
						log.Warn(ctx, "ticket submission failed", logger.String("ticket", t.ID), logger.Error(err))
					}
				}
				if cfg.Verbose {
					log.Debug(ctx, "ticket submitted", logger.String("ticket", t.ID), logger.Int("outcome", int(outcome)))
				}
			}
		}()
	}

	go func() {
		defer close(ticketChan)
		for _, t := range tickets {
			select {
			case <-ctx.Done():
				return
			case ticketChan <- t:
			}
		}
	}()

	wg.Wait()

	stats.TicketsSubmitted = int(submitted.Load())
	stats.TicketsAccepted = int(accepted.Load())
	stats.TicketsDuplicate = int(duplicate.Load())
	stats.TicketsFailed = int(failed.Load())
}

// saveSnapshot writes the generated data in the snapshot format, so a run can
// be replayed offline with the allot CLI.
func saveSnapshot(path string, workers []model.WorkerRecord, tickets []model.RequestRecord) error {
	data, err := (&snapshot.Snapshot{Workers: workers, Requests: tickets}).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var ticketsPerSecond float64
	if stats.Duration > 0 {
		ticketsPerSecond = float64(stats.TicketsSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("workersRegistered", stats.WorkersRegistered),
		logger.Int("ticketsSubmitted", stats.TicketsSubmitted),
		logger.Int("ticketsAccepted", stats.TicketsAccepted),
		logger.Int("ticketsDuplicate", stats.TicketsDuplicate),
		logger.Int("ticketsFailed", stats.TicketsFailed),
		logger.Int("matched", stats.Matched),
		logger.Int("unmatched", stats.Unmatched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("ticketsPerSecond", ticketsPerSecond),
	)
}
