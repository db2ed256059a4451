package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/orchestrator"
)

// PlanResult is the JSON output of the plan command.
type PlanResult struct {
	Runs []PlannedRun `json:"runs"`
}

// PlannedRun is one run of a plan.
type PlannedRun struct {
	Index       int    `json:"index"`
	OutputDir   string `json:"output_dir"`
	JobName     string `json:"job_name"`
	Branch      string `json:"branch"`
	Rank        string `json:"rank,omitempty"`
	Checkpoint  string `json:"checkpoint,omitempty"`
	CommandLine string `json:"command"`
	Fingerprint string `json:"fingerprint"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the runs a sweep would submit",
		Long: `Expand a sweep and print every run's output directory and command
without submitting anything.

Over-LoRA runs are chained onto checkpoints already recorded on disk, and
the plan fails if two runs would share an output directory.

Example:
  sweep plan --shots 1,5,10 --seed 1337,1338
  sweep plan --use-lora --over-lora --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, cmd)
		},
	}

	addSweepFlags(cmd, opts)
	return cmd
}

func runPlan(opts *SweepOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	orch, err := newOrchestrator(cmd, opts)
	if err != nil {
		return fail(formatter, exitCodeFor(err), errorCodeFor(err), "invalid sweep", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	plan, err := orch.Plan(ctx)
	if err != nil {
		return fail(formatter, exitCodeFor(err), errorCodeFor(err), "invalid sweep", err)
	}

	if opts.Format == "json" {
		return formatter.Success(planResult(plan))
	}
	writePlan(formatter.Writer, plan)
	return nil
}

func planResult(plan *orchestrator.Plan) PlanResult {
	result := PlanResult{Runs: make([]PlannedRun, 0, plan.Len())}
	for _, run := range plan.Runs {
		p := run.Point
		result.Runs = append(result.Runs, PlannedRun{
			Index:       p.Index,
			OutputDir:   p.OutputDir(),
			JobName:     p.Identity().JobName,
			Branch:      string(p.Branch),
			Rank:        p.Rank,
			Checkpoint:  p.Checkpoint,
			CommandLine: run.CommandLine,
			Fingerprint: run.Fingerprint,
		})
	}
	return result
}

// writePlan prints one block per run followed by a count.
func writePlan(w io.Writer, plan *orchestrator.Plan) {
	for _, run := range plan.Runs {
		p := run.Point
		fmt.Fprintf(w, "[%d] %s (%s)\n", p.Index, p.OutputDir(), p.Identity().JobName)
		if p.Checkpoint != "" {
			fmt.Fprintf(w, "    chained onto %s\n", p.Checkpoint)
		}
		fmt.Fprintf(w, "    %s\n", run.CommandLine)
	}
	fmt.Fprintf(w, "%d run(s) planned\n", plan.Len())
}
