// Package main provides the allot command line tool, which runs allocation
// passes offline against a snapshot file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/okian/allot/internal/domain/allocation"
	"github.com/okian/allot/internal/snapshot"
	"github.com/okian/allot/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "allot"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Capability-based work allocation",
		Long: `allot assigns queued requests to registered workers. Each request goes,
in queue order, to the first registered worker whose capability levels meet
every requirement of the request.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return logger.SetLevelString(logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCmd(), validateCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func runCmd() *cobra.Command {
	var (
		snapshotPath string
		exclusive    bool
		format       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Allocate the requests of a snapshot",
		Long: `Load workers and requests from a YAML snapshot, run one allocation pass
and print the result. JSON output maps each request id to the chosen worker id,
or null when no worker qualifies, in queue order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "table" {
				return fmt.Errorf("unknown format %q (json, table)", format)
			}

			snap, err := snapshot.Load(cmd.Context(), snapshotPath)
			if err != nil {
				return err
			}

			engine := allocation.New(allocation.WithAllowReassignment(!exclusive))
			snap.Apply(engine)

			start := time.Now()
			result := engine.Allocate()
			logger.Get().Info(cmd.Context(), "allocation pass complete",
				logger.Int("workers", engine.WorkerCount()),
				logger.Int("requests", result.Len()),
				logger.Int("matched", result.Matched()),
				logger.Bool("exclusive", exclusive),
				logger.String("took", time.Since(start).String()),
			)

			if format == "table" {
				return writeTable(cmd, result)
			}
			data, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (YAML)")
	cmd.Flags().BoolVar(&exclusive, "exclusive", false, "Assign each worker at most once per pass")
	cmd.Flags().StringVarP(&format, "output", "o", "json", "Output format (json, table)")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}

func writeTable(cmd *cobra.Command, result allocation.Result) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tWORKER")
	for _, a := range result.Assignments() {
		worker := a.WorkerID
		if !a.Matched {
			worker = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", a.RequestID, worker)
	}
	fmt.Fprintf(tw, "\nmatched %d of %d\n", result.Matched(), result.Len())
	return tw.Flush()
}

func validateCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a snapshot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := snapshot.Load(cmd.Context(), snapshotPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d workers, %d requests\n", len(snap.Workers), len(snap.Requests))
			return err
		},
	}

	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (YAML)")
	_ = cmd.MarkFlagRequired("snapshot")

	return cmd
}
