package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Ledger string
	Limit  int
}

// SweepList is the JSON output of history without a sweep id.
type SweepList struct {
	Sweeps []store.Sweep `json:"sweeps"`
}

// SweepHistory is the JSON output of history for one sweep.
type SweepHistory struct {
	Sweep       store.Sweep        `json:"sweep"`
	Submissions []store.Submission `json:"submissions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [sweep-id]",
		Short: "List recorded sweeps or one sweep's submissions",
		Long: `Read the submission ledger written by launch --ledger.

Without arguments, lists sweeps newest first. With a sweep id, lists that
sweep's submissions in order.

Example:
  sweep history --ledger sweeps.db
  sweep history --ledger sweeps.db --limit 5
  sweep history --ledger sweeps.db 0190a6f8-3c1e-7b44-9d2e-5f0a1b2c3d4e`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to the SQLite ledger (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of sweeps to list (0 = all)")
	_ = cmd.MarkFlagRequired("ledger")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Ledger)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		return showSweep(ctx, st, args[0], formatter)
	}

	sweeps, err := st.ListSweeps(ctx, opts.Limit)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeLedger, "failed to list sweeps", err)
	}
	if opts.Format == "json" {
		return formatter.Success(SweepList{Sweeps: sweeps})
	}
	if len(sweeps) == 0 {
		fmt.Fprintln(formatter.Writer, "No sweeps recorded.")
		return nil
	}
	writeSweeps(formatter.Writer, sweeps)
	return nil
}

func showSweep(ctx context.Context, st *store.Store, id string, formatter *OutputFormatter) error {
	sw, err := st.GetSweep(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fail(formatter, ExitCommandError, ErrCodeLedger, fmt.Sprintf("sweep %q not found", id), nil)
	}
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeLedger, "failed to read sweep", err)
	}

	subs, err := st.ListSubmissions(ctx, id)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeLedger, "failed to list submissions", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(SweepHistory{Sweep: sw, Submissions: subs})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Sweep %s (%s, %s): %d planned, %d recorded\n", sw.ID, sw.Backend, sw.State, sw.Planned, len(subs))
	if sw.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", sw.Error)
	}
	writeSubmissions(w, subs)
	return nil
}

func writeSweeps(w io.Writer, sweeps []store.Sweep) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBACKEND\tSTATE\tPLANNED\tSTARTED\tFINISHED")
	for _, sw := range sweeps {
		finished := "-"
		if sw.FinishedAt != nil {
			finished = sw.FinishedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			sw.ID, sw.Backend, sw.State, sw.Planned,
			sw.StartedAt.UTC().Format(time.RFC3339), finished)
	}
	_ = tw.Flush()
}

func writeSubmissions(w io.Writer, subs []store.Submission) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tSTATUS\tJOB\tEXIT\tOUTPUT DIR")
	for _, sub := range subs {
		job := sub.JobName
		if sub.JobID != "" {
			job += "/" + sub.JobID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", sub.Seq, sub.Status, job, sub.ExitCode, sub.OutputDir)
	}
	_ = tw.Flush()
}
