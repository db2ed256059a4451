package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/sweep/internal/backend"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
)

// Ledger records sweeps and their submissions.
// Implemented by *store.Store.
type Ledger interface {
	BeginSweep(ctx context.Context, sw store.Sweep) error
	RecordSubmission(ctx context.Context, sub store.Submission) error
	FinishSweep(ctx context.Context, id, state string, finishedAt time.Time, errMsg string) error
	HasAccepted(ctx context.Context, fingerprint string) (bool, error)
}

// Orchestrator runs one sweep through one backend.
//
// Run must be called at most once. Submissions are strictly sequential.
type Orchestrator struct {
	expander *sweep.Expander
	resolver sweep.ChainResolver
	backend  backend.Backend

	ledger        Ledger
	ids           IDGenerator
	now           func() time.Time
	skipSubmitted bool

	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLedger records the sweep and every submission in l.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = l
	}
}

// WithIDGenerator sets the sweep ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *Orchestrator) {
		o.ids = g
	}
}

// WithClock sets the wall clock used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithSkipSubmitted skips points whose fingerprint the ledger has already
// seen accepted. Has no effect without a ledger.
func WithSkipSubmitted(skip bool) Option {
	return func(o *Orchestrator) {
		o.skipSubmitted = skip
	}
}

// New creates an Orchestrator in StateReady.
func New(exp *sweep.Expander, resolver sweep.ChainResolver, b backend.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		expander: exp,
		resolver: resolver,
		backend:  b,
		ids:      UUIDv7Generator{},
		now:      time.Now,
		state:    StateReady,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run plans the sweep and submits every point in order, stopping at the
// first rejected submission.
//
// The returned report is never nil. A non-nil error means the sweep ended
// Aborted; sweep.IsSubmissionFailure distinguishes a rejected run from a
// planning error.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{Backend: o.backend.Kind(), State: o.state}
	if o.state != StateReady {
		return report, fmt.Errorf("orchestrator: sweep already %s", o.state)
	}

	plan, err := o.Plan(ctx)
	if err != nil {
		o.state = StateAborted
		report.State = o.state
		return report, err
	}

	report.SweepID = o.ids.Generate()
	report.Planned = plan.Len()
	if err := o.beginLedger(ctx, report); err != nil {
		o.state = StateAborted
		report.State = o.state
		return report, err
	}

	o.state = StateRunning
	slog.Info("sweep started",
		"sweep", report.SweepID,
		"backend", report.Backend,
		"mode", o.expander.Mode().Name(),
		"points", report.Planned,
	)

	if err := o.submitAll(ctx, plan, report); err != nil {
		return report, o.abort(report, err)
	}

	o.state = StateCompleted
	report.State = o.state
	if err := o.finishLedger(report, ""); err != nil {
		return report, err
	}
	slog.Info("sweep completed",
		"sweep", report.SweepID,
		"submitted", report.Submitted,
		"skipped", report.Skipped,
	)
	return report, nil
}

func (o *Orchestrator) submitAll(ctx context.Context, plan *Plan, report *Report) error {
	seen := make(map[string]sweep.Point, plan.Len())
	for _, run := range plan.Runs {
		seen[run.Point.OutputDir()] = run.Point
	}

	for _, run := range plan.Runs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sweep interrupted before point %d: %w", run.Point.Index, err)
		}

		run, err := o.rechain(run, seen)
		if err != nil {
			return err
		}

		if o.skipSubmitted && o.ledger != nil {
			done, err := o.ledger.HasAccepted(ctx, run.Fingerprint)
			if err != nil {
				return err
			}
			if done {
				slog.Info("skipping point already submitted",
					"index", run.Point.Index,
					"output_dir", run.Point.OutputDir(),
				)
				report.Skipped++
				continue
			}
		}

		sub, err := o.submit(ctx, report.SweepID, run)
		report.Submissions = append(report.Submissions, sub)
		if err != nil {
			report.Failed = &report.Submissions[len(report.Submissions)-1]
			return err
		}
		report.Submitted++
	}
	return nil
}

// rechain resolves a chain that had no trainer state at planning time. The
// nolora run may have finished since.
func (o *Orchestrator) rechain(run Run, seen map[string]sweep.Point) (Run, error) {
	p := run.Point
	if p.ChainFrom == "" || p.Checkpoint != "" {
		return run, nil
	}

	resolved, err := o.resolver.Resolve(p)
	if err != nil {
		return run, err
	}
	if resolved.Checkpoint == "" {
		return run, nil
	}

	delete(seen, p.OutputDir())
	if err := claimOutputDir(seen, resolved); err != nil {
		return run, err
	}
	slog.Info("chained onto checkpoint",
		"index", p.Index,
		"checkpoint", resolved.Checkpoint,
		"output_dir", resolved.OutputDir(),
	)
	return o.prepare(resolved)
}

func (o *Orchestrator) submit(ctx context.Context, sweepID string, run Run) (Submission, error) {
	p := run.Point
	id := p.Identity()

	slog.Info("submitting",
		"index", p.Index,
		"job_name", id.JobName,
		"output_dir", p.OutputDir(),
	)
	slog.Debug("command", "line", run.CommandLine)

	res, err := o.backend.Submit(ctx, run.Flags, id)
	if err == nil && !res.Accepted() {
		err = fmt.Errorf("exit status %d", res.ExitCode)
	}

	sub := Submission{
		Index:       p.Index,
		Dataset:     p.Dataset,
		Shot:        p.Shot,
		Seed:        p.Seed,
		Branch:      p.Branch,
		Rank:        p.Rank,
		OutputDir:   p.OutputDir(),
		JobName:     id.JobName,
		JobID:       res.JobID,
		CommandLine: run.CommandLine,
		Fingerprint: run.Fingerprint,
		ExitCode:    res.ExitCode,
		Status:      res.Status,
	}
	if err != nil {
		sub.Status = backend.StatusRejected
	}

	if recErr := o.recordLedger(ctx, sweepID, sub); recErr != nil {
		return sub, recErr
	}

	if err != nil {
		slog.Error("error running command: "+run.CommandLine,
			"index", p.Index,
			"exit_code", res.ExitCode,
			"error", err,
		)
		return sub, sweep.NewSubmissionError(p, run.CommandLine, err)
	}

	slog.Info("submission accepted",
		"index", p.Index,
		"job_name", id.JobName,
		"job_id", res.JobID,
	)
	return sub, nil
}

// abort moves the sweep to StateAborted and records why.
func (o *Orchestrator) abort(report *Report, cause error) error {
	o.state = StateAborted
	report.State = o.state

	slog.Error("sweep aborted",
		"sweep", report.SweepID,
		"submitted", report.Submitted,
		"remaining", report.Remaining(),
		"error", cause,
	)

	if err := o.finishLedger(report, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (o *Orchestrator) beginLedger(ctx context.Context, report *Report) error {
	if o.ledger == nil {
		return nil
	}
	spec, err := store.MarshalJSON(o.expander.Spec())
	if err != nil {
		return err
	}
	err = o.ledger.BeginSweep(ctx, store.Sweep{
		ID:        report.SweepID,
		Backend:   string(report.Backend),
		Spec:      spec,
		State:     store.StateRunning,
		Planned:   report.Planned,
		StartedAt: o.now(),
	})
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

func (o *Orchestrator) recordLedger(ctx context.Context, sweepID string, sub Submission) error {
	if o.ledger == nil {
		return nil
	}
	// Record the outcome even if ctx was cancelled mid-submission.
	err := o.ledger.RecordSubmission(context.WithoutCancel(ctx), store.Submission{
		SweepID:     sweepID,
		Seq:         sub.Index,
		Dataset:     sub.Dataset,
		Shot:        sub.Shot,
		Seed:        sub.Seed,
		Branch:      string(sub.Branch),
		Rank:        sub.Rank,
		OutputDir:   sub.OutputDir,
		Command:     sub.CommandLine,
		Fingerprint: sub.Fingerprint,
		JobName:     sub.JobName,
		JobID:       sub.JobID,
		ExitCode:    sub.ExitCode,
		Status:      string(sub.Status),
		SubmittedAt: o.now(),
	})
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}

// finishLedger records the final state. It runs after cancellation too, so
// it does not take the sweep's context.
func (o *Orchestrator) finishLedger(report *Report, errMsg string) error {
	if o.ledger == nil {
		return nil
	}
	err := o.ledger.FinishSweep(context.Background(), report.SweepID, string(report.State), o.now(), errMsg)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}
