// Package backend submits training runs.
//
// Two execution backends exist:
//
//   - BatchScheduler ("slurm") writes a job script and hands it to sbatch.
//     An accepted submission only means the job was queued.
//   - LocalProcess ("python") runs the trainer as a child process. An
//     accepted submission means training finished with exit status 0.
//
// Both block until their external command returns.
package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roach88/sweep/internal/sweep"
)

// Kind selects an execution backend.
type Kind string

const (
	KindSlurm  Kind = "slurm"
	KindPython Kind = "python"
)

// Kinds lists the accepted backend selectors.
var Kinds = []Kind{KindSlurm, KindPython}

// ParseKind validates a backend selector. Matching is case-sensitive.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", sweep.NewConfigurationError(fmt.Sprintf("unknown execution backend %q: must be one of %v", s, Kinds), nil)
}

// Status is the outcome of a submission.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Result is what a backend reports for one submission.
type Result struct {
	Status Status

	// ExitCode is the exit status of sbatch or of the trainer. -1 when the
	// command could not be started or was killed.
	ExitCode int

	// JobID is the scheduler's job id, when the scheduler printed one.
	JobID string

	// Output is the captured output of the submission command (batch only).
	Output string
}

// Accepted reports whether the submission succeeded.
func (r Result) Accepted() bool {
	return r.Status == StatusAccepted
}

func resultFor(exitCode int) Result {
	status := StatusRejected
	if exitCode == 0 {
		status = StatusAccepted
	}
	return Result{Status: status, ExitCode: exitCode}
}

// Backend submits a run and waits for the submission command to return.
type Backend interface {
	// Kind identifies the backend.
	Kind() Kind

	// Submit submits the trainer with the given flag string. A non-nil error
	// means the submission could not be attempted; a rejected Result means
	// it was attempted and failed.
	Submit(ctx context.Context, flags string, id sweep.Identity) (Result, error)

	// CommandLine is the trainer invocation the run executes, for logs and
	// diagnostics.
	CommandLine(flags string) string
}

// Options configures backend construction.
type Options struct {
	// Python is the interpreter used to start the trainer. Default "python".
	Python string

	// Trainer is the trainer script. Default "run_object_detection.py".
	Trainer string

	// ScriptPath is where the batch job script is written.
	// Default "launchers/automatic_launcher.slurm".
	ScriptPath string

	// TemplatePath overrides the embedded job script template.
	TemplatePath string

	// SubmitCommand is the scheduler's submission command. Default "sbatch".
	SubmitCommand string

	// Timeout bounds each submission. Zero means no timeout.
	Timeout time.Duration

	// Runner runs external commands. Default ExecRunner.
	Runner Runner

	// Stdout and Stderr receive the child's output. Default os.Stdout and
	// os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

const (
	DefaultPython     = "python"
	DefaultTrainer    = "run_object_detection.py"
	DefaultScriptPath = "launchers/automatic_launcher.slurm"
	DefaultSubmit     = "sbatch"
)

func (o Options) withDefaults() Options {
	if o.Python == "" {
		o.Python = DefaultPython
	}
	if o.Trainer == "" {
		o.Trainer = DefaultTrainer
	}
	if o.ScriptPath == "" {
		o.ScriptPath = DefaultScriptPath
	}
	if o.SubmitCommand == "" {
		o.SubmitCommand = DefaultSubmit
	}
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

// New builds the backend for kind.
func New(kind Kind, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch kind {
	case KindSlurm:
		return NewBatchScheduler(opts)
	case KindPython:
		return NewLocalProcess(opts), nil
	default:
		_, err := ParseKind(string(kind))
		return nil, err
	}
}

// withTimeout applies the backend timeout, if any.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
