package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/orchestrator"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
)

// LaunchOptions holds flags for the launch command.
type LaunchOptions struct {
	SweepOptions

	Ledger        string
	SkipSubmitted bool

	// IDGenerator overrides the sweep ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator orchestrator.IDGenerator

	// Clock overrides the ledger clock (for testing).
	Clock func() time.Time
}

// NewLaunchCommand creates the launch command.
func NewLaunchCommand(rootOpts *RootOptions) *cobra.Command {
	return newLaunchCommand(&LaunchOptions{SweepOptions: SweepOptions{RootOptions: rootOpts}})
}

func newLaunchCommand(opts *LaunchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Expand a sweep and submit every run",
		Long: `Expand a sweep into training runs and submit them one at a time.

Every combination of dataset, shot and seed becomes one run, or one run per
freezing strategy (--freeze-mode) or LoRA rank (--use-lora). Runs go to
SLURM (--exec-type slurm) or are started locally and waited for
(--exec-type python). The sweep stops at the first failed submission.

Example:
  sweep launch --config configs/models/diffusiondet_dota.json --shots 1,5,10 --seed 1337,1338
  sweep launch --use-lora --lora-ranks 4,8 --over-lora --exec-type python
  sweep launch --sweep-file sweeps/coco.yaml --ledger sweeps.db --skip-submitted`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(opts, cmd)
		},
	}

	addSweepFlags(cmd, &opts.SweepOptions)
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "SQLite ledger recording the sweep and its submissions")
	cmd.Flags().BoolVar(&opts.SkipSubmitted, "skip-submitted", false, "skip runs the ledger has already seen accepted (requires --ledger)")

	return cmd
}

func runLaunch(opts *LaunchOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.SkipSubmitted && opts.Ledger == "" {
		return fail(formatter, ExitCommandError, ErrCodeGeneric, "--skip-submitted requires --ledger", nil)
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithSkipSubmitted(opts.SkipSubmitted),
	}
	if opts.IDGenerator != nil {
		orchOpts = append(orchOpts, orchestrator.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Clock != nil {
		orchOpts = append(orchOpts, orchestrator.WithClock(opts.Clock))
	}

	if opts.Ledger != "" {
		slog.Debug("opening ledger", "path", opts.Ledger)
		st, err := store.Open(opts.Ledger)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing ledger", "error", closeErr)
			}
		}()
		orchOpts = append(orchOpts, orchestrator.WithLedger(st))
	}

	orch, err := newOrchestrator(cmd, &opts.SweepOptions, orchOpts...)
	if err != nil {
		return fail(formatter, exitCodeFor(err), errorCodeFor(err), "invalid sweep", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping after the current submission", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := orch.Run(ctx)
	if err != nil {
		if opts.Format == "json" {
			_ = formatter.Error(errorCodeFor(err), err.Error(), report)
		} else {
			writeReport(formatter.Writer, report)
			_ = formatter.Error(errorCodeFor(err), err.Error(), nil)
		}
		return WrapExitError(exitCodeFor(err), "sweep "+string(report.State), err)
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	writeReport(formatter.Writer, report)
	return nil
}

// newOrchestrator builds an orchestrator from the sweep flags.
func newOrchestrator(cmd *cobra.Command, opts *SweepOptions, orchOpts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	spec, err := buildSpec(cmd, opts)
	if err != nil {
		return nil, err
	}
	b, err := newBackend(cmd, opts, spec)
	if err != nil {
		return nil, err
	}
	base, err := loadBase(opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded base config", "path", opts.ConfigPath, "keys", base.Len())

	exp, err := sweep.NewExpander(spec, base)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(exp, sweep.NewChainResolver(spec.OutputRoot), b, orchOpts...), nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// fail reports an error through the formatter and returns it with an exit
// code.
func fail(f *OutputFormatter, exitCode int, code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	_ = f.Error(code, msg, nil)
	if err == nil {
		return NewExitError(exitCode, message)
	}
	return WrapExitError(exitCode, message, err)
}

// writeReport prints a sweep report as text.
func writeReport(w io.Writer, r *orchestrator.Report) {
	for _, sub := range r.Submissions {
		switch {
		case sub.JobID != "":
			fmt.Fprintf(w, "%-9s %s (job %s)\n", sub.Status, sub.OutputDir, sub.JobID)
		default:
			fmt.Fprintf(w, "%-9s %s (exit %d)\n", sub.Status, sub.OutputDir, sub.ExitCode)
		}
	}
	if r.SweepID == "" {
		return
	}
	fmt.Fprintf(w, "Sweep %s %s: %d planned, %d submitted, %d skipped",
		r.SweepID, r.State, r.Planned, r.Submitted, r.Skipped)
	if n := r.Remaining(); n > 0 && r.State == orchestrator.StateAborted {
		fmt.Fprintf(w, ", %d not submitted", n)
	}
	fmt.Fprintln(w)
}
