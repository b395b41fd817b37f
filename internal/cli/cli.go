// ============================================================================
// simjobs CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides the command line interface based on Cobra framework
//
// Command Structure:
//   simjobs                        # Root command
//   ├── submit                     # Generate scripts + descriptor, submit
//   │   ├── --no-submit            # Write files only
//   │   ├── --no-audit             # Do not inspect existing outputs
//   │   ├── --strict               # Fail when the scheduler rejects the job
//   │   ├── --submit-timeout       # Bound the scheduler call
//   │   └── --metrics-file         # Write a Prometheus textfile
//   ├── plan                       # Print the enumeration, write nothing
//   │   └── --list                 # Also print every job unit
//   ├── --config, -c               # Config file (default: configs/sim.yaml)
//   ├── --verbose, -v              # Debug logging
//   └── --version                  # Display version information
//
// Exit Status:
//   0  success, including "all output files are correct"
//   1  any precondition failure (job directory exists, missing paths,
//      invalid configuration) or, with --strict, a failed submission
//
// Examples:
//   ./simjobs submit -c configs/sim.yaml
//   ./simjobs submit --no-submit --no-audit
//   ./simjobs plan --list
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ChuLiYu/simjobs/internal/audit"
	"github.com/ChuLiYu/simjobs/internal/config"
	"github.com/ChuLiYu/simjobs/internal/executor"
	"github.com/ChuLiYu/simjobs/internal/planner"
)

var (
	configFile string
	verbose    bool
	logger     *zap.Logger
)

// BuildCLI assembles the root command.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simjobs",
		Short: "simjobs: detector simulation batch job generator",
		Long: `simjobs expands detector models, particles, polar angles and momenta
into one simulation job script per parameter combination and job index,
writes an HTCondor submit description queueing them, and submits it.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/sim.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildSubmitCommand())
	rootCmd.AddCommand(buildPlanCommand())

	return rootCmd
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// submitFlags are the flags of the submit command.
type submitFlags struct {
	noSubmit      bool
	noAudit       bool
	strict        bool
	submitTimeout time.Duration
	metricsFile   string
}

func buildSubmitCommand() *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Generate job scripts and submit them to the scheduler",
		Long: `Creates the job directory, audits existing outputs, writes one script per
job unit that still needs simulating, writes the submit description and
runs the scheduler submit command from inside the job directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.noSubmit, "no-submit", false, "write scripts and descriptor without submitting")
	cmd.Flags().BoolVar(&flags.noAudit, "no-audit", false, "regenerate every output without inspecting existing files")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "return an error when the submit command fails")
	cmd.Flags().DurationVar(&flags.submitTimeout, "submit-timeout", 0, "timeout for the submit command (0 = none)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")

	return cmd
}

func runSubmit(ctx context.Context, out io.Writer, flags submitFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := currentLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	auditor := audit.New(cfg.Jobs.CheckOutput && !flags.noAudit, cfg.Simulation.Tree, audit.RootCounter{})
	runner := executor.NewExecRunner(flags.submitTimeout)
	p := planner.New(cfg, auditor, runner, nil, log)

	report, runErr := p.Run(ctx, planner.Options{
		Submit: !flags.noSubmit,
		Strict: flags.strict,
	})

	if flags.metricsFile != "" {
		if err := p.Metrics().WriteTextfile(flags.metricsFile); err != nil {
			log.Warn("metrics not written", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r *planner.Report) {
	fmt.Fprintf(out, "Run:        %s\n", r.RunID)
	fmt.Fprintf(out, "Job dir:    %s\n", r.JobDir)
	fmt.Fprintf(out, "Job units:  %d (%d parameter sets x %d jobs)\n", r.Counts.Total, r.Counts.ParaSets, r.Counts.JobsPerSet)
	fmt.Fprintf(out, "Satisfied:  %d\n", r.Satisfied)
	fmt.Fprintf(out, "Scripts:    %d\n", len(r.Scripts))

	if r.Phase == planner.PhaseAllSatisfied {
		fmt.Fprintln(out, "All output files are correct.")
		return
	}
	fmt.Fprintf(out, "Descriptor: %s (%d scripts queued)\n", r.Descriptor, r.Queued)

	switch {
	case !r.Submitted:
		fmt.Fprintln(out, "Submission: skipped")
	case r.Submission != nil:
		fmt.Fprintf(out, "Submission: %d job(s) in cluster %s\n", r.Submission.Jobs, r.Submission.Cluster)
	default:
		fmt.Fprintf(out, "Submission: exit code %d\n", r.Submit.ExitCode)
	}
}

func buildPlanCommand() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the job units a submit would produce",
		Long:  "Validate the configuration and print the enumeration without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPlan(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every job unit with its script and output path")

	return cmd
}

func showPlan(out io.Writer, list bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	counts, entries := planner.Preview(cfg)

	fmt.Fprintf(out, "Config:          %s\n", configFile)
	fmt.Fprintf(out, "Job dir:         %s\n", cfg.JobDir())
	fmt.Fprintf(out, "Parameter sets:  %d\n", counts.ParaSets)
	fmt.Fprintf(out, "Jobs per set:    %d (%d events, %d per job)\n", counts.JobsPerSet, cfg.Jobs.TotalEvents, cfg.Jobs.EventsPerJob)
	fmt.Fprintf(out, "Total jobs:      %d\n", counts.Total)
	fmt.Fprintf(out, "Naming:          %s\n", cfg.Jobs.Naming)
	fmt.Fprintf(out, "Output audit:    %t\n", cfg.Jobs.CheckOutput)
	fmt.Fprintf(out, "Priority:        %s\n", cfg.Jobs.Priority)

	if list {
		for _, e := range entries {
			fmt.Fprintf(out, "%s\t%s\t%s\n", e.Unit, e.Script, e.Output)
		}
	}
	return nil
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
