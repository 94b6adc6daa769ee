// Package main provides the loadgen binary, which drives a running allot
// server with synthetic workers and tickets.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/allot/internal/loadgen"
	"github.com/okian/allot/pkg/logger"
	"github.com/spf13/pflag"
)

// Default configuration constants.
const (
	defaultWorkers     = 200
	defaultTickets     = 10000
	defaultConcurrency = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg := loadgen.Config{}
	var logLevel string

	flagSet := pflag.NewFlagSet("loadgen", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the allot server")
	flagSet.IntVar(&cfg.Workers, "workers", defaultWorkers, "number of worker profiles to register")
	flagSet.IntVar(&cfg.Tickets, "tickets", defaultTickets, "number of tickets to submit")
	flagSet.IntVarP(&cfg.Concurrency, "concurrency", "c", runtime.NumCPU()*defaultConcurrency, "concurrent ticket submitters")
	flagSet.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flagSet.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "generator seed")
	flagSet.StringVar(&cfg.SnapshotOut, "snapshot-out", "", "write the generated workers and tickets to this YAML snapshot")
	flagSet.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every submission")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if err := logger.Init(logger.WithWriter(stderr)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if cfg.Verbose && logLevel == "info" {
		logLevel = "debug"
	}
	if err := logger.SetLevelString(logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := loadgen.Run(ctx, &cfg, stdout)
	return err
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `loadgen: drive an allot server with synthetic demand.

Registers generated workers in order, submits generated tickets concurrently,
triggers an allocation pass and prints how demand was spread across
capabilities, proficiency levels and triage SLAs.

Ticket demand is right-skewed: most tickets need a single capability at
Beginner level with a 6hrs SLA.

Usage:
  loadgen [flags]

Examples:
  # Default run against a local server
  loadgen

  # Reproducible run that also saves the data for offline replay
  loadgen --seed 42 --tickets 500 --snapshot-out run.yaml
  allot run --snapshot run.yaml

Flags:
`)
	flagSet.PrintDefaults()
}
